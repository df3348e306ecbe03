package loader

import (
	"github.com/lazypaws/meowvm/internal/chunk"
	"github.com/lazypaws/meowvm/internal/gc"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/opcode"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

type labelPatch struct {
	offset int
	label  string
	line   int
}

type protoPlaceholder struct {
	builder    *funcBuilder
	constIndex int
	targetName string
	line       int
}

// stringPlaceholder records a raw string literal that was reserved a
// constant-pool slot during parsing but can only become a real interned
// *objects.String once a Memory Manager is available, at link time.
type stringPlaceholder struct {
	builder    *funcBuilder
	constIndex int
	text       string
}

// funcBuilder accumulates one `.func ... .endfunc` block's state while its
// body is being parsed (spec §4.E "per-function parsing"): a temporary code
// buffer, a temporary constant pool, and the label table local to this
// function.
type funcBuilder struct {
	name          string
	line          int
	numRegisters  int
	numUpvalues   int
	haveRegisters bool
	haveUpvalues  bool
	upvalueDescs  []objects.UpvalueDesc
	ch            *chunk.Chunk
	labels        map[string]int
	patches       []labelPatch
	autoConst     map[string]uint16
}

func newFuncBuilder(name string, line int, sourceName string) *funcBuilder {
	return &funcBuilder{
		name:   name,
		line:   line,
		ch:     chunk.New(sourceName),
		labels: make(map[string]int),
		autoConst: make(map[string]uint16),
	}
}

// parser walks a flat token stream spanning every `.func` block in one
// source unit.
type parser struct {
	toks       []Token
	pos        int
	sourceName string

	order      []string
	builders   map[string]*funcBuilder
	protoRefs  []protoPlaceholder
	stringRefs []stringPlaceholder
}

// Parse lexes and parses source into finalised FunctionProto objects keyed
// by name, allocating through mm so the result participates in the GC arena
// from the moment it exists (spec §4.E: "Construct FunctionProto objects
// via the Memory Manager with GC disabled").
func Parse(mm *gc.MemoryManager, sourceName, source string) (map[string]*objects.FunctionProto, error) {
	lexer := NewLexer(source)
	lines, err := lexer.Lines()
	if err != nil {
		return nil, err
	}
	var toks []Token
	for _, l := range lines {
		toks = append(toks, l.Tokens...)
	}

	p := &parser{
		toks:       toks,
		sourceName: sourceName,
		builders:   make(map[string]*funcBuilder),
	}
	if err := p.parseTopLevel(); err != nil {
		return nil, err
	}
	return p.link(mm)
}

func (p *parser) peek() (Token, bool) {
	if p.pos >= len(p.toks) {
		return Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *parser) parseTopLevel() error {
	for {
		tok, ok := p.peek()
		if !ok {
			break
		}
		if tok.Kind != TokDirective || tok.Text != ".func" {
			return vmerr.New(vmerr.ParseError, "line %d: expected '.func', got %q", tok.Line, tok.Text)
		}
		if err := p.parseFunc(); err != nil {
			return err
		}
	}
	if _, ok := p.builders["main"]; !ok {
		return vmerr.New(vmerr.LinkError, "missing required 'main' function")
	}
	return nil
}

func (p *parser) parseFunc() error {
	dot, _ := p.next() // ".func"
	nameTok, ok := p.next()
	if !ok || nameTok.Kind != TokIdent {
		return vmerr.New(vmerr.ParseError, "line %d: expected function name after .func", dot.Line)
	}
	name := nameTok.Text
	if _, exists := p.builders[name]; exists {
		return vmerr.New(vmerr.ParseError, "line %d: duplicate function name %q", dot.Line, name)
	}

	b := newFuncBuilder(name, dot.Line, p.sourceName)
	p.builders[name] = b
	p.order = append(p.order, name)

	for {
		tok, ok := p.peek()
		if !ok {
			return vmerr.New(vmerr.ParseError, "line %d: unterminated .func %q (missing .endfunc)", dot.Line, name)
		}
		if tok.Kind == TokDirective && tok.Text == ".endfunc" {
			p.next()
			if !b.haveRegisters || !b.haveUpvalues {
				return vmerr.New(vmerr.ParseError, "line %d: function %q missing .registers/.upvalues directive", dot.Line, name)
			}
			return nil
		}
		if err := p.parseBodyItem(b); err != nil {
			return err
		}
	}
}

func (p *parser) parseBodyItem(b *funcBuilder) error {
	tok, _ := p.peek()
	switch {
	case tok.Kind == TokDirective && tok.Text == ".registers":
		p.next()
		n, err := p.expectInt()
		if err != nil {
			return err
		}
		b.numRegisters = int(n)
		b.haveRegisters = true
		return nil
	case tok.Kind == TokDirective && tok.Text == ".upvalues":
		p.next()
		n, err := p.expectInt()
		if err != nil {
			return err
		}
		b.numUpvalues = int(n)
		b.haveUpvalues = true
		b.upvalueDescs = make([]objects.UpvalueDesc, n)
		return nil
	case tok.Kind == TokDirective && tok.Text == ".const":
		p.next()
		return p.parseConstDirective(b)
	case tok.Kind == TokDirective && tok.Text == ".upvalue":
		p.next()
		return p.parseUpvalueDirective(b)
	case tok.Kind == TokLabelDef:
		p.next()
		if _, exists := b.labels[tok.Text]; exists {
			return vmerr.New(vmerr.ParseError, "line %d: duplicate label %q", tok.Line, tok.Text)
		}
		b.labels[tok.Text] = b.ch.Len()
		return nil
	case tok.Kind == TokIdent:
		if !b.haveRegisters || !b.haveUpvalues {
			return vmerr.New(vmerr.ParseError, "line %d: instruction before .registers/.upvalues", tok.Line)
		}
		return p.parseInstruction(b)
	default:
		return vmerr.New(vmerr.ParseError, "line %d: unexpected token %q in function body", tok.Line, tok.Text)
	}
}

func (p *parser) expectInt() (int64, error) {
	tok, ok := p.next()
	if !ok || tok.Kind != TokInt {
		return 0, vmerr.New(vmerr.ParseError, "expected integer literal")
	}
	return tok.Int, nil
}

// parseConstDirective handles ".const VALUE" (spec §4.E: "VALUE is parsed
// per type (string, int, float, bool, null, @name proto placeholder)").
// String and proto-ref literals can't become a real Value until link time
// (a string needs the Memory Manager to intern it; a proto ref needs the
// target FunctionProto to exist), so both reserve a Null placeholder slot
// now and register it for second-pass resolution.
func (p *parser) parseConstDirective(b *funcBuilder) error {
	tok, ok := p.next()
	if !ok {
		return vmerr.New(vmerr.ParseError, "line %d: .const requires a literal value", b.line)
	}
	switch tok.Kind {
	case TokString:
		idx, err := b.ch.AddConstant(value.Null())
		if err != nil {
			return vmerr.Wrap(vmerr.LinkError, err, "line %d: %s", tok.Line, err.Error())
		}
		p.stringRefs = append(p.stringRefs, stringPlaceholder{builder: b, constIndex: int(idx), text: tok.Text})
		return nil
	case TokProtoRef:
		idx, err := b.ch.AddConstant(value.Null())
		if err != nil {
			return vmerr.Wrap(vmerr.LinkError, err, "line %d: %s", tok.Line, err.Error())
		}
		p.protoRefs = append(p.protoRefs, protoPlaceholder{builder: b, constIndex: int(idx), targetName: tok.Text, line: tok.Line})
		return nil
	case TokInt:
		_, err := b.ch.AddConstant(value.Int(tok.Int))
		return wrapAddConstErr(err, tok)
	case TokFloat:
		_, err := b.ch.AddConstant(value.Float(tok.Float))
		return wrapAddConstErr(err, tok)
	case TokIdent:
		switch tok.Text {
		case "true":
			_, err := b.ch.AddConstant(value.Bool(true))
			return wrapAddConstErr(err, tok)
		case "false":
			_, err := b.ch.AddConstant(value.Bool(false))
			return wrapAddConstErr(err, tok)
		case "null":
			_, err := b.ch.AddConstant(value.Null())
			return wrapAddConstErr(err, tok)
		}
		return vmerr.New(vmerr.ParseError, "line %d: invalid .const literal %q", tok.Line, tok.Text)
	default:
		return vmerr.New(vmerr.ParseError, "line %d: invalid .const literal format", tok.Line)
	}
}

func wrapAddConstErr(err error, tok Token) error {
	if err == nil {
		return nil
	}
	return vmerr.Wrap(vmerr.LinkError, err, "line %d: %s", tok.Line, err.Error())
}

func (p *parser) parseUpvalueDirective(b *funcBuilder) error {
	lineTok, _ := p.peek()
	idx, err := p.expectInt()
	if err != nil {
		return err
	}
	kindTok, ok := p.next()
	if !ok || kindTok.Kind != TokIdent || (kindTok.Text != "local" && kindTok.Text != "parent") {
		return vmerr.New(vmerr.ParseError, "line %d: expected 'local' or 'parent' in .upvalue directive", lineTok.Line)
	}
	slot, err := p.expectInt()
	if err != nil {
		return err
	}
	if idx < 0 || int(idx) >= len(b.upvalueDescs) {
		return vmerr.New(vmerr.ParseError, "line %d: .upvalue index %d out of range (declared %d upvalues)", lineTok.Line, idx, len(b.upvalueDescs))
	}
	b.upvalueDescs[idx] = objects.UpvalueDesc{IsLocal: kindTok.Text == "local", Index: int(slot)}
	return nil
}

// addAutoConst adds an operand literal's value to this proto's constant
// pool, deduplicating repeats within the same function by key.
func (b *funcBuilder) addAutoConst(key string, v value.Value) (uint16, error) {
	if idx, ok := b.autoConst[key]; ok {
		return idx, nil
	}
	idx, err := b.ch.AddConstant(v)
	if err != nil {
		return 0, err
	}
	b.autoConst[key] = idx
	return idx, nil
}

func (p *parser) parseInstruction(b *funcBuilder) error {
	opTok, _ := p.next()
	op, ok := opcode.ByName(opTok.Text)
	if !ok {
		return vmerr.New(vmerr.ParseError, "line %d: unknown opcode %q", opTok.Line, opTok.Text)
	}
	b.ch.AppendByte(byte(op))

	switch op {
	case opcode.Return:
		return p.encodeReturn(b, opTok)
	case opcode.Closure:
		return p.encodeClosure(b, opTok)
	}

	specs, ok := instrSpecs[op]
	if !ok {
		return vmerr.New(vmerr.ParseError, "line %d: opcode %s has no operand specification", opTok.Line, op)
	}
	for _, kind := range specs {
		if err := p.encodeArg(b, opTok, op, kind); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) encodeArg(b *funcBuilder, opTok Token, op opcode.Op, kind ArgKind) error {
	switch kind {
	case ArgReg, ArgConstIdx:
		n, err := p.expectInt()
		if err != nil {
			return vmerr.Wrap(vmerr.ParseError, err, "line %d: %s: expected integer operand", opTok.Line, op)
		}
		if n < 0 || n > 0xFFFF {
			return vmerr.New(vmerr.ParseError, "line %d: %s: operand %d out of range", opTok.Line, op, n)
		}
		b.ch.AppendVarU16(uint16(n))
		return nil
	case ArgImmI64:
		n, err := p.expectInt()
		if err != nil {
			return vmerr.Wrap(vmerr.ParseError, err, "line %d: %s: expected int64 immediate", opTok.Line, op)
		}
		b.ch.AppendI64(n)
		return nil
	case ArgImmF64:
		tok, ok := p.next()
		if !ok {
			return vmerr.New(vmerr.ParseError, "line %d: %s: expected float immediate", opTok.Line, op)
		}
		var f float64
		switch tok.Kind {
		case TokFloat:
			f = tok.Float
		case TokInt:
			f = float64(tok.Int)
		default:
			return vmerr.New(vmerr.ParseError, "line %d: %s: invalid float literal", tok.Line, op)
		}
		b.ch.AppendF64(f)
		return nil
	case ArgJumpTarget:
		tok, ok := p.next()
		if !ok {
			return vmerr.New(vmerr.ParseError, "line %d: %s: expected jump target", opTok.Line, op)
		}
		if tok.Kind == TokInt {
			if tok.Int < 0 || tok.Int > 0xFFFF {
				return vmerr.New(vmerr.ParseError, "line %d: %s: jump target out of range", tok.Line, op)
			}
			b.ch.AppendPlaceholderU16()
			b.ch.PatchVarU16At(b.ch.Len()-2, uint16(tok.Int))
			return nil
		}
		if tok.Kind != TokIdent {
			return vmerr.New(vmerr.ParseError, "line %d: %s: invalid jump target %q", tok.Line, op, tok.Text)
		}
		offset := b.ch.Len()
		b.ch.AppendPlaceholderU16()
		b.patches = append(b.patches, labelPatch{offset: offset, label: tok.Text, line: tok.Line})
		return nil
	case ArgConstAuto:
		tok, ok := p.next()
		if !ok {
			return vmerr.New(vmerr.ParseError, "line %d: %s: expected operand literal", opTok.Line, op)
		}
		idx, err := p.autoConstIndex(b, tok)
		if err != nil {
			return err
		}
		b.ch.AppendVarU16(idx)
		return nil
	case ArgProtoRef:
		tok, ok := p.next()
		if !ok || tok.Kind != TokProtoRef {
			return vmerr.New(vmerr.ParseError, "line %d: %s: expected @name proto reference", opTok.Line, op)
		}
		idx, err := b.ch.AddConstant(value.Null())
		if err != nil {
			return vmerr.Wrap(vmerr.LinkError, err, "line %d: %s", tok.Line, err.Error())
		}
		p.protoRefs = append(p.protoRefs, protoPlaceholder{builder: b, constIndex: int(idx), targetName: tok.Text, line: tok.Line})
		b.ch.AppendVarU16(idx)
		return nil
	default:
		return vmerr.New(vmerr.ParseError, "line %d: %s: unsupported operand kind", opTok.Line, op)
	}
}

func (p *parser) autoConstIndex(b *funcBuilder, tok Token) (uint16, error) {
	switch tok.Kind {
	case TokString:
		key := "s:" + tok.Text
		if idx, ok := b.autoConst[key]; ok {
			return idx, nil
		}
		idx, err := b.ch.AddConstant(value.Null())
		if err != nil {
			return 0, err
		}
		b.autoConst[key] = idx
		p.stringRefs = append(p.stringRefs, stringPlaceholder{builder: b, constIndex: int(idx), text: tok.Text})
		return idx, nil
	case TokInt:
		return b.addAutoConst("i:"+tok.Text, value.Int(tok.Int))
	case TokFloat:
		return b.addAutoConst("f:"+tok.Text, value.Float(tok.Float))
	case TokIdent:
		switch tok.Text {
		case "true":
			return b.addAutoConst("b:true", value.Bool(true))
		case "false":
			return b.addAutoConst("b:false", value.Bool(false))
		case "null":
			return b.addAutoConst("n:", value.Null())
		}
	}
	return 0, vmerr.New(vmerr.ParseError, "line %d: invalid literal operand %q", tok.Line, tok.Text)
}

// encodeReturn handles RETURN's variable arity: zero operands means the
// sentinel is still written to the wire (spec §9 Open Question 1).
func (p *parser) encodeReturn(b *funcBuilder, opTok Token) error {
	tok, ok := p.peek()
	if ok && tok.Kind == TokInt {
		p.next()
		if tok.Int < 0 || tok.Int > 0xFFFF {
			return vmerr.New(vmerr.ParseError, "line %d: RETURN register out of range", tok.Line)
		}
		b.ch.AppendVarU16(uint16(tok.Int))
		return nil
	}
	b.ch.AppendVarU16(ReturnSentinel)
	return nil
}

// encodeClosure handles CLOSURE's variable-length upvalue pair list (spec
// §4.H: "dst, proto_cidx, followed by proto.upvalue_count pairs").
func (p *parser) encodeClosure(b *funcBuilder, opTok Token) error {
	if err := p.encodeArg(b, opTok, opcode.Closure, ArgReg); err != nil {
		return err
	}
	if err := p.encodeArg(b, opTok, opcode.Closure, ArgProtoRef); err != nil {
		return err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.Kind != TokInt {
			return nil
		}
		isLocal, err := p.expectInt()
		if err != nil {
			return err
		}
		idx, err := p.expectInt()
		if err != nil {
			return vmerr.Wrap(vmerr.ParseError, err, "line %d: CLOSURE: incomplete upvalue pair", tok.Line)
		}
		b.ch.AppendVarU16(uint16(isLocal))
		b.ch.AppendVarU16(uint16(idx))
	}
}
