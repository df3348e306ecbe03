package loader

import (
	"github.com/lazypaws/meowvm/internal/gc"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// link implements spec §4.E's four-step linking phase: resolve label
// patches, intern deferred string constants, construct every FunctionProto
// with GC disabled, then resolve deferred proto-reference constants now
// that every proto object exists.
func (p *parser) link(mm *gc.MemoryManager) (map[string]*objects.FunctionProto, error) {
	for _, name := range p.order {
		b := p.builders[name]
		for _, patch := range b.patches {
			target, ok := b.labels[patch.label]
			if !ok {
				return nil, vmerr.New(vmerr.LinkError, "line %d: unresolved label %q in function %q", patch.line, patch.label, b.name)
			}
			if target < 0 || target > 0xFFFF {
				return nil, vmerr.New(vmerr.LinkError, "line %d: label %q target out of range", patch.line, patch.label)
			}
			b.ch.PatchVarU16At(patch.offset, uint16(target))
		}
	}

	for _, ref := range p.stringRefs {
		ref.builder.ch.Constants[ref.constIndex] = value.FromObject(mm.NewString(ref.text))
	}

	protoTable := make(map[string]*objects.FunctionProto, len(p.order))
	restore := mm.DisableGuard()
	for _, name := range p.order {
		b := p.builders[name]
		protoName := mm.NewString(b.name)
		proto := mm.NewFunctionProto(b.numRegisters, b.numUpvalues, protoName, b.ch, b.upvalueDescs)
		protoTable[name] = proto
	}
	restore()

	for _, ref := range p.protoRefs {
		target, ok := protoTable[ref.targetName]
		if !ok {
			return nil, vmerr.New(vmerr.LinkError, "line %d: unresolved proto reference @%s", ref.line, ref.targetName)
		}
		ref.builder.ch.Constants[ref.constIndex] = value.FromObject(target)
	}

	return protoTable, nil
}
