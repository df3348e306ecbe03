package interp

import (
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"
)

// ReturnSentinel / CallVoidSentinel mirror internal/loader's encoder
// constants of the same name and value (0xFFFF): "no return register" for
// RETURN, "discard the result" for CALL's dst (spec §4.H, §9 Open Question
// 1). Kept as a second definition rather than importing internal/loader —
// a decoder constant is cheap enough to simply restate, the way the teacher restates its own
// wire constants in both vm.go and compiler.go rather than sharing a
// third package for two bytes of meaning).
const (
	ReturnSentinel   uint16 = 0xFFFF
	CallVoidSentinel uint16 = 0xFFFF
)

// execCall reads CALL's register-window arguments and dispatches (spec
// §4.H "CALL semantics").
func (e *Engine) execCall(f *CallFrame, dst uint16, callee value.Value, argStart, argc uint16) error {
	ctx := e.ctx
	args := make([]value.Value, argc)
	for i := uint16(0); i < argc; i++ {
		args[i] = f.reg(ctx, argStart+i)
	}
	return e.invoke(f, dst, callee, args, value.Null())
}

// invoke implements the four CALL target shapes (spec §4.H): Closure
// (push a new frame), NativeFunction (synchronous Go call), BoundMethod
// (prepend the receiver and recurse on the underlying method), and Class
// (construct an Instance, run its `init` method if one exists). Taking
// args as an already-materialised slice rather than a register window lets
// BoundMethod and Class-as-constructor synthesize a shifted/implicit
// argument list without needing a scratch register range of their own.
// boundReceiver is Null for an ordinary (unbound) call and carries the
// dispatching instance through BoundMethod recursion, so the pushed frame
// can answer GET_SUPER (spec §4.H: "current bound receiver").
func (e *Engine) invoke(f *CallFrame, dst uint16, callee value.Value, args []value.Value, boundReceiver value.Value) error {
	ctx := e.ctx
	if !callee.IsObject() {
		return vmerr.New(vmerr.TypeError, "call target is not callable: %s", callee.TypeName())
	}

	switch c := callee.AsObject().(type) {
	case *objects.Closure:
		if len(args) > c.Proto.NumRegisters {
			return vmerr.New(vmerr.TypeError, "CALL: argc %d exceeds %s's register count %d", len(args), c.Proto.Inspect(), c.Proto.NumRegisters)
		}
		nf := ctx.pushFrame(c, c.Module, dst, boundReceiver)
		for i, a := range args {
			nf.setReg(ctx, uint16(i), a)
		}
		return nil

	case *objects.NativeFunction:
		if c.Arity >= 0 && len(args) != c.Arity {
			return vmerr.New(vmerr.TypeError, "CALL: %s expects %d arguments, got %d", c.Inspect(), c.Arity, len(args))
		}
		result, err := c.Call(e, args)
		if err != nil {
			return err
		}
		if dst != CallVoidSentinel {
			f.setReg(ctx, dst, result)
		}
		return nil

	case *objects.BoundMethod:
		shifted := make([]value.Value, 0, len(args)+1)
		shifted = append(shifted, c.Receiver)
		shifted = append(shifted, args...)
		return e.invoke(f, dst, c.Method, shifted, c.Receiver)

	case *objects.Class:
		inst := e.heap.NewInstance(c)
		instVal := value.FromObject(inst)
		if method, ok := c.FindMethod(e.initName()); ok {
			bound := value.FromObject(e.heap.NewBoundMethod(instVal, method))
			if err := e.invoke(f, CallVoidSentinel, bound, args, instVal); err != nil {
				return err
			}
		}
		if dst != CallVoidSentinel {
			f.setReg(ctx, dst, instVal)
		}
		return nil

	default:
		return vmerr.New(vmerr.TypeError, "call target is not callable: %s", callee.TypeName())
	}
}

// initName is the interned "init" method name consulted when CALL targets
// a Class (spec §4.H: "look up an initialiser method named init").
func (e *Engine) initName() *objects.String {
	if e.initNameCache == nil {
		e.initNameCache = e.heap.NewString("init")
	}
	return e.initNameCache
}

// execReturn implements RETURN (spec §4.H): close the departing frame's
// open upvalues (via ExecutionContext.popFrame), write its result into the
// caller's declared return register (unless CALL_VOID discarded it), and
// resume the caller.
func (e *Engine) execReturn(f *CallFrame, retReg uint16) error {
	ctx := e.ctx
	var result value.Value
	if retReg == ReturnSentinel {
		result = value.Null()
	} else {
		result = f.reg(ctx, retReg)
	}

	done := ctx.popFrame()
	if len(ctx.Frames) == 0 {
		return nil
	}
	if done.ReturnReg != CallVoidSentinel {
		caller := ctx.top()
		caller.setReg(ctx, done.ReturnReg, result)
	}
	return nil
}
