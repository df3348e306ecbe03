package objects

import (
	"fmt"

	"github.com/lazypaws/meowvm/internal/value"
)

// String is an immutable, interned UTF-8 byte sequence (spec §3 "String").
// It has no outgoing references, so Trace is a no-op. Equality and identity
// both reduce to pointer equality once the memory manager has interned the
// byte content — see internal/gc.MemoryManager.NewString.
type String struct {
	bytes []byte
}

func NewString(s string) *String {
	return &String{bytes: []byte(s)}
}

func (s *String) ObjKind() value.Kind { return value.KindString }
func (s *String) Inspect() string     { return s.bytes2string() }
func (s *String) Trace(v value.Visitor) {}

func (s *String) Bytes() []byte { return s.bytes }
func (s *String) Len() int      { return len(s.bytes) }
func (s *String) bytes2string() string {
	return string(s.bytes)
}

func (s *String) String() string { return s.bytes2string() }

// Equal compares byte content; builtins.Registry.Lookup uses it to match a
// name by content. After interning, == on *String pointers is
// sufficient (and is what Value.Equals uses).
func (s *String) Equal(other *String) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	if len(s.bytes) != len(other.bytes) {
		return false
	}
	for i := range s.bytes {
		if s.bytes[i] != other.bytes[i] {
			return false
		}
	}
	return true
}

func (s *String) GoString() string { return fmt.Sprintf("String(%q)", s.bytes2string()) }
