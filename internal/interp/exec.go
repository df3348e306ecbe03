package interp

import (
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/opcode"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// errHalt is the sentinel step() returns for HALT, distinguishing ordinary
// termination from an error — mirroring the teacher's internal/vm.go
// pattern of a package-level sentinel error driving normal loop exit
// (`errStackUnderflow`-style), rather than a separate bool return.
var errHalt = &vmerr.Error{Kind: vmerr.Kind(255), Message: "halt"}

// run drives the fetch/decode/dispatch loop until the frame stack returns
// to baseDepth (spec §4.H "state machine per frame"). A HALT anywhere
// terminates the whole engine, not just the current frame, matching S1–S3:
// every scenario's main proto ends in HALT.
func (e *Engine) run(baseDepth int) error {
	ctx := e.ctx
	for {
		if len(ctx.Frames) <= baseDepth {
			return nil
		}
		f := ctx.top()
		if err := e.step(); err != nil {
			if err == errHalt {
				return nil
			}
			err = e.raiseAt(f, err)
			handled, rerr := e.dispatchError(err)
			if rerr != nil {
				return rerr
			}
			if !handled {
				// dispatchError reports every unhandled error through rerr
				// above; a (false, nil) result would surface err as-is.
				return err
			}
		}
	}
}

// dispatchError implements spec §7's error-to-throw conversion: every
// recoverable vmerr.Kind becomes a thrown Instance routed through the same
// handler stack as an explicit THROW; FatalAllocation is not catchable and
// propagates as a Go error all the way to the CLI. UncaughtThrow is also
// left alone here: it only ever arrives already-final — either the THROW
// opcode's own no-handler path (exec.go) or a previous trip through this
// same function — so re-running it through errorInstance/handleThrow would
// wrap an already-uncaught throw a second time (spec §7's "thrown value's
// string form" must stay the original form, not "uncaught UncaughtThrow:
// uncaught ...").
func (e *Engine) dispatchError(err error) (handled bool, propagate error) {
	ve, ok := err.(*vmerr.Error)
	if !ok {
		return false, err
	}
	if ve.Kind == vmerr.FatalAllocation || ve.Kind == vmerr.UncaughtThrow {
		return false, err
	}
	thrown := e.errorInstance(ve.Kind, ve.Message)
	if e.handleThrow(thrown) {
		return true, nil
	}
	return false, vmerr.Wrap(vmerr.UncaughtThrow, ve, "uncaught %s: %s", ve.Kind, ve.Message)
}

// step executes exactly one instruction on the current top frame.
func (e *Engine) step() error {
	ctx := e.ctx
	f := ctx.top()
	code := f.Closure.Proto.Chunk.Code
	op := opcode.Op(code[f.IP])
	ip := f.IP + 1

	switch op {
	case opcode.LoadConst:
		dst := readVarU16(code, &ip)
		cidx := readVarU16(code, &ip)
		cv, err := f.Closure.Proto.Chunk.Constant(cidx)
		f.IP = ip
		if err != nil {
			return vmerr.Wrap(vmerr.LinkError, err, "LOAD_CONST: %s", err.Error())
		}
		f.setReg(ctx, dst, cv)
		return nil

	case opcode.LoadNull:
		dst := readVarU16(code, &ip)
		f.IP = ip
		f.setReg(ctx, dst, value.Null())
		return nil

	case opcode.LoadTrue:
		dst := readVarU16(code, &ip)
		f.IP = ip
		f.setReg(ctx, dst, value.Bool(true))
		return nil

	case opcode.LoadFalse:
		dst := readVarU16(code, &ip)
		f.IP = ip
		f.setReg(ctx, dst, value.Bool(false))
		return nil

	case opcode.LoadInt:
		dst := readVarU16(code, &ip)
		imm := readI64(code, &ip)
		f.IP = ip
		f.setReg(ctx, dst, value.Int(imm))
		return nil

	case opcode.LoadFloat:
		dst := readVarU16(code, &ip)
		imm := readF64(code, &ip)
		f.IP = ip
		f.setReg(ctx, dst, value.Float(imm))
		return nil

	case opcode.Move:
		dst := readVarU16(code, &ip)
		src := readVarU16(code, &ip)
		f.IP = ip
		f.setReg(ctx, dst, f.reg(ctx, src))
		return nil

	case opcode.Add, opcode.Sub, opcode.Mul, opcode.Div, opcode.Mod, opcode.Pow,
		opcode.Eq, opcode.Neq, opcode.Lt, opcode.Le, opcode.Gt, opcode.Ge,
		opcode.BAnd, opcode.BOr, opcode.BXor, opcode.Shl, opcode.Shr:
		dst := readVarU16(code, &ip)
		a := readVarU16(code, &ip)
		b := readVarU16(code, &ip)
		f.IP = ip
		left, right := f.reg(ctx, a), f.reg(ctx, b)
		fn, ok := e.dispatcher.FindBinary(op, left, right)
		if !ok {
			return vmerr.New(vmerr.TypeError, "unsupported operand types for %s: %s and %s", op, left.TypeName(), right.TypeName())
		}
		res, err := fn(left, right)
		if err != nil {
			return err
		}
		f.setReg(ctx, dst, res)
		return nil

	case opcode.Neg, opcode.Not, opcode.BNot:
		dst := readVarU16(code, &ip)
		src := readVarU16(code, &ip)
		f.IP = ip
		v := f.reg(ctx, src)
		fn, ok := e.dispatcher.FindUnary(op, v)
		if !ok {
			return vmerr.New(vmerr.TypeError, "unsupported operand type for %s: %s", op, v.TypeName())
		}
		res, err := fn(v)
		if err != nil {
			return err
		}
		f.setReg(ctx, dst, res)
		return nil

	case opcode.GetGlobal:
		dst := readVarU16(code, &ip)
		nameIdx := readVarU16(code, &ip)
		f.IP = ip
		name, err := e.constName(f, nameIdx)
		if err != nil {
			return err
		}
		mod := e.homeModule(f)
		v, ok := mod.GetGlobal(name)
		if !ok {
			v = value.Null()
		}
		f.setReg(ctx, dst, v)
		return nil

	case opcode.SetGlobal:
		src := readVarU16(code, &ip)
		nameIdx := readVarU16(code, &ip)
		f.IP = ip
		name, err := e.constName(f, nameIdx)
		if err != nil {
			return err
		}
		e.homeModule(f).SetGlobal(name, f.reg(ctx, src))
		return nil

	case opcode.GetUpvalue:
		dst := readVarU16(code, &ip)
		idx := readVarU16(code, &ip)
		f.IP = ip
		uv := f.Closure.Upvalues[idx]
		f.setReg(ctx, dst, e.readUpvalue(uv))
		return nil

	case opcode.SetUpvalue:
		idx := readVarU16(code, &ip)
		src := readVarU16(code, &ip)
		f.IP = ip
		uv := f.Closure.Upvalues[idx]
		e.writeUpvalue(uv, f.reg(ctx, src))
		return nil

	case opcode.Closure:
		return e.execClosure(f, code, &ip)

	case opcode.CloseUpvalues:
		start := readVarU16(code, &ip)
		f.IP = ip
		ctx.closeUpvaluesFrom(f.Base + int(start))
		return nil

	case opcode.Jump:
		target := readVarU16(code, &ip)
		f.IP = int(target)
		return nil

	case opcode.JumpIfFalse:
		cond := readVarU16(code, &ip)
		target := readVarU16(code, &ip)
		if !f.reg(ctx, cond).Truthy() {
			f.IP = int(target)
		} else {
			f.IP = ip
		}
		return nil

	case opcode.JumpIfTrue:
		cond := readVarU16(code, &ip)
		target := readVarU16(code, &ip)
		if f.reg(ctx, cond).Truthy() {
			f.IP = int(target)
		} else {
			f.IP = ip
		}
		return nil

	case opcode.Call:
		dst := readVarU16(code, &ip)
		fnReg := readVarU16(code, &ip)
		argStart := readVarU16(code, &ip)
		argc := readVarU16(code, &ip)
		f.IP = ip
		return e.execCall(f, dst, f.reg(ctx, fnReg), argStart, argc)

	case opcode.Return:
		retReg := readVarU16(code, &ip)
		f.IP = ip
		return e.execReturn(f, retReg)

	case opcode.Halt:
		return errHalt

	case opcode.NewArray:
		dst := readVarU16(code, &ip)
		start := readVarU16(code, &ip)
		count := readVarU16(code, &ip)
		f.IP = ip
		elems := make([]value.Value, count)
		for i := uint16(0); i < count; i++ {
			elems[i] = f.reg(ctx, start+i)
		}
		f.setReg(ctx, dst, value.FromObject(e.heap.NewArray(elems)))
		return nil

	case opcode.NewHash:
		dst := readVarU16(code, &ip)
		start := readVarU16(code, &ip)
		count := readVarU16(code, &ip)
		f.IP = ip
		fields := make(map[*objects.String]value.Value, count)
		for i := uint16(0); i < count; i++ {
			k := f.reg(ctx, start+2*i)
			v := f.reg(ctx, start+2*i+1)
			ks, ok := k.AsObject().(*objects.String)
			if !k.IsObject() || !ok {
				return vmerr.New(vmerr.TypeError, "NEW_HASH: key must be a String, got %s", k.TypeName())
			}
			fields[ks] = v
		}
		f.setReg(ctx, dst, value.FromObject(e.heap.NewHash(fields)))
		return nil

	case opcode.GetIndex:
		dst := readVarU16(code, &ip)
		containerReg := readVarU16(code, &ip)
		indexReg := readVarU16(code, &ip)
		f.IP = ip
		v, err := e.getIndex(f.reg(ctx, containerReg), f.reg(ctx, indexReg))
		if err != nil {
			return err
		}
		f.setReg(ctx, dst, v)
		return nil

	case opcode.SetIndex:
		containerReg := readVarU16(code, &ip)
		indexReg := readVarU16(code, &ip)
		valueReg := readVarU16(code, &ip)
		f.IP = ip
		return e.setIndex(f.reg(ctx, containerReg), f.reg(ctx, indexReg), f.reg(ctx, valueReg))

	case opcode.GetKeys:
		dst := readVarU16(code, &ip)
		src := readVarU16(code, &ip)
		f.IP = ip
		h, ok := f.reg(ctx, src).AsObject().(*objects.Hash)
		if !ok {
			return vmerr.New(vmerr.TypeError, "GET_KEYS: operand is not a HashTable")
		}
		keys := h.Keys()
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			out[i] = value.FromObject(k)
		}
		f.setReg(ctx, dst, value.FromObject(e.heap.NewArray(out)))
		return nil

	case opcode.GetValues:
		dst := readVarU16(code, &ip)
		src := readVarU16(code, &ip)
		f.IP = ip
		h, ok := f.reg(ctx, src).AsObject().(*objects.Hash)
		if !ok {
			return vmerr.New(vmerr.TypeError, "GET_VALUES: operand is not a HashTable")
		}
		keys := h.Keys()
		out := make([]value.Value, len(keys))
		for i, k := range keys {
			v, _ := h.Get(k)
			out[i] = v
		}
		f.setReg(ctx, dst, value.FromObject(e.heap.NewArray(out)))
		return nil

	case opcode.NewClass:
		dst := readVarU16(code, &ip)
		nameIdx := readVarU16(code, &ip)
		f.IP = ip
		name, err := e.constName(f, nameIdx)
		if err != nil {
			return err
		}
		f.setReg(ctx, dst, value.FromObject(e.heap.NewClass(name, nil)))
		return nil

	case opcode.NewInstance:
		dst := readVarU16(code, &ip)
		classReg := readVarU16(code, &ip)
		f.IP = ip
		cls, ok := f.reg(ctx, classReg).AsObject().(*objects.Class)
		if !ok {
			return vmerr.New(vmerr.TypeError, "NEW_INSTANCE: operand is not a Class")
		}
		f.setReg(ctx, dst, value.FromObject(e.heap.NewInstance(cls)))
		return nil

	case opcode.GetProp:
		dst := readVarU16(code, &ip)
		recvReg := readVarU16(code, &ip)
		nameIdx := readVarU16(code, &ip)
		f.IP = ip
		name, err := e.constName(f, nameIdx)
		if err != nil {
			return err
		}
		v, err := e.getProp(f.reg(ctx, recvReg), name)
		if err != nil {
			return err
		}
		f.setReg(ctx, dst, v)
		return nil

	case opcode.SetProp:
		recvReg := readVarU16(code, &ip)
		nameIdx := readVarU16(code, &ip)
		valueReg := readVarU16(code, &ip)
		f.IP = ip
		name, err := e.constName(f, nameIdx)
		if err != nil {
			return err
		}
		return e.setProp(f.reg(ctx, recvReg), name, f.reg(ctx, valueReg))

	case opcode.SetMethod:
		classReg := readVarU16(code, &ip)
		nameIdx := readVarU16(code, &ip)
		methodReg := readVarU16(code, &ip)
		f.IP = ip
		name, err := e.constName(f, nameIdx)
		if err != nil {
			return err
		}
		cls, ok := f.reg(ctx, classReg).AsObject().(*objects.Class)
		if !ok {
			return vmerr.New(vmerr.TypeError, "SET_METHOD: target is not a Class")
		}
		cls.SetMethod(name, f.reg(ctx, methodReg))
		return nil

	case opcode.Inherit:
		subReg := readVarU16(code, &ip)
		superReg := readVarU16(code, &ip)
		f.IP = ip
		sub, ok := f.reg(ctx, subReg).AsObject().(*objects.Class)
		if !ok {
			return vmerr.New(vmerr.TypeError, "INHERIT: sub operand is not a Class")
		}
		super, ok := f.reg(ctx, superReg).AsObject().(*objects.Class)
		if !ok {
			return vmerr.New(vmerr.TypeError, "INHERIT: super operand is not a Class")
		}
		sub.Super = super
		for name, m := range super.Methods {
			if _, overridden := sub.Methods[name]; !overridden {
				sub.SetMethod(name, m)
			}
		}
		return nil

	case opcode.GetSuper:
		dst := readVarU16(code, &ip)
		nameIdx := readVarU16(code, &ip)
		f.IP = ip
		name, err := e.constName(f, nameIdx)
		if err != nil {
			return err
		}
		return e.execGetSuper(f, dst, name)

	case opcode.SetupTry:
		target := readVarU16(code, &ip)
		f.IP = ip
		ctx.handlers = append(ctx.handlers, tryHandler{
			frameDepth: len(ctx.Frames),
			regDepth:   len(ctx.Registers),
			handlerIP:  int(target),
		})
		return nil

	case opcode.PopTry:
		f.IP = ip
		if len(ctx.handlers) > 0 {
			ctx.handlers = ctx.handlers[:len(ctx.handlers)-1]
		}
		return nil

	case opcode.Throw:
		src := readVarU16(code, &ip)
		f.IP = ip
		thrown := f.reg(ctx, src)
		if !e.handleThrow(thrown) {
			return vmerr.New(vmerr.UncaughtThrow, "%s", thrown.Inspect())
		}
		return nil

	case opcode.ImportModule:
		dst := readVarU16(code, &ip)
		pathIdx := readVarU16(code, &ip)
		f.IP = ip
		return e.execImportModule(f, dst, pathIdx)

	case opcode.Export:
		nameIdx := readVarU16(code, &ip)
		srcReg := readVarU16(code, &ip)
		f.IP = ip
		name, err := e.constName(f, nameIdx)
		if err != nil {
			return err
		}
		e.homeModule(f).Export(name, f.reg(ctx, srcReg))
		return nil

	case opcode.GetExport, opcode.GetModuleExport:
		dst := readVarU16(code, &ip)
		modReg := readVarU16(code, &ip)
		nameIdx := readVarU16(code, &ip)
		f.IP = ip
		name, err := e.constName(f, nameIdx)
		if err != nil {
			return err
		}
		mod, ok := f.reg(ctx, modReg).AsObject().(*objects.Module)
		if !ok {
			return vmerr.New(vmerr.TypeError, "%s: operand is not a Module", op)
		}
		v, ok := mod.GetExport(name)
		if !ok {
			return vmerr.New(vmerr.KeyNotFound, "module %s has no export %q", mod.Path, name.Inspect())
		}
		f.setReg(ctx, dst, v)
		return nil

	case opcode.ImportAll:
		modReg := readVarU16(code, &ip)
		f.IP = ip
		mod, ok := f.reg(ctx, modReg).AsObject().(*objects.Module)
		if !ok {
			return vmerr.New(vmerr.TypeError, "IMPORT_ALL: operand is not a Module")
		}
		home := e.homeModule(f)
		for name, v := range mod.Exports {
			home.SetGlobal(name, v)
		}
		return nil

	default:
		return vmerr.New(vmerr.LinkError, "unimplemented opcode %s", op)
	}
}

// constName fetches a constant expected to be an interned *objects.String,
// the shape a quoted string literal written as an ArgConstAuto "name"
// operand resolves to once the parser has added it as a String constant.
func (e *Engine) constName(f *CallFrame, idx uint16) (*objects.String, error) {
	cv, err := f.Closure.Proto.Chunk.Constant(idx)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.LinkError, err, "%s", err.Error())
	}
	s, ok := cv.AsObject().(*objects.String)
	if !cv.IsObject() || !ok {
		return nil, vmerr.New(vmerr.TypeError, "expected a String constant, got %s", cv.TypeName())
	}
	return s, nil
}

// homeModule returns the module GET_GLOBAL/SET_GLOBAL/EXPORT/IMPORT_ALL
// should act on: the closure's lexical home module (see objects.Closure.Module
// doc comment), not whatever module's code happens to be calling it.
func (e *Engine) homeModule(f *CallFrame) *objects.Module {
	return f.Module
}
