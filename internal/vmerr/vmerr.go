// Package vmerr defines the closed set of error kinds the interpreter can
// raise (spec §6 "Error Handling Design"): every runtime error, link error,
// and parse error carries one of these kinds so callers — the THROW/try
// machinery, the CLI exit-code mapping, and tests — can switch on it
// without string-matching messages.
package vmerr

import "fmt"

type Kind uint8

const (
	ParseError Kind = iota
	LinkError
	TypeError
	ZeroDivision
	IndexOutOfRange
	KeyNotFound
	AttributeNotFound
	ModuleLoadError
	UncaughtThrow
	FatalAllocation
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case LinkError:
		return "LinkError"
	case TypeError:
		return "TypeError"
	case ZeroDivision:
		return "ZeroDivision"
	case IndexOutOfRange:
		return "IndexOutOfRange"
	case KeyNotFound:
		return "KeyNotFound"
	case AttributeNotFound:
		return "AttributeNotFound"
	case ModuleLoadError:
		return "ModuleLoadError"
	case UncaughtThrow:
		return "UncaughtThrow"
	case FatalAllocation:
		return "FatalAllocation"
	default:
		return "UnknownError"
	}
}

// Error is a Kind-tagged runtime error. SourceName and Line are best-effort:
// empty/zero when the error originates outside an executing frame (e.g.
// during linking, before any frame exists). For runtime errors the
// interpreter stores the frame's instruction offset in Line.
type Error struct {
	Kind       Kind
	Message    string
	SourceName string
	Line       int
	Cause      error
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.SourceName != "" {
		return fmt.Sprintf("%s: %s:%d: %s", e.Kind, e.SourceName, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithLocation returns a copy of e annotated with a frame's source name and
// a line (the interpreter passes the frame's instruction offset), used by the interpreter loop when it catches an error bubbling out
// of an instruction dispatch (spec §4.H: "runtime errors are annotated with
// the current frame's source name and line before propagating").
func (e *Error) WithLocation(sourceName string, line int) *Error {
	cp := *e
	cp.SourceName = sourceName
	cp.Line = line
	return &cp
}

// As reports whether err is a *Error of the given kind, unwrapping along the
// way. Mirrors the teacher's errors.Is/As usage in funvibe/funxy's VM loop.
func As(err error, kind Kind) (*Error, bool) {
	for err != nil {
		if ve, ok := err.(*Error); ok {
			if ve.Kind == kind {
				return ve, true
			}
			err = ve.Cause
			continue
		}
		break
	}
	return nil, false
}
