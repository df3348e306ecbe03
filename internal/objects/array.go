package objects

import (
	"strings"

	"github.com/lazypaws/meowvm/internal/value"
)

// Array is an ordered Value sequence with amortised O(1) push/pop and O(1)
// indexed access (spec §3). Grounded on the teacher's ObjArray-equivalent
// use of a Go slice (funvibe/funxy uses plain []Value backing for its List
// object); here it is its own heap kind per the spec's closed tag set.
type Array struct {
	elements []value.Value
}

func NewArray(elements []value.Value) *Array {
	cp := make([]value.Value, len(elements))
	copy(cp, elements)
	return &Array{elements: cp}
}

func (a *Array) ObjKind() value.Kind { return value.KindArray }

func (a *Array) Trace(v value.Visitor) {
	for _, e := range a.elements {
		v.VisitValue(e)
	}
}

func (a *Array) Inspect() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range a.elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Inspect())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (a *Array) Len() int { return len(a.elements) }

func (a *Array) Get(i int) (value.Value, bool) {
	if i < 0 || i >= len(a.elements) {
		return value.Null(), false
	}
	return a.elements[i], true
}

func (a *Array) Set(i int, v value.Value) bool {
	if i < 0 || i >= len(a.elements) {
		return false
	}
	a.elements[i] = v
	return true
}

func (a *Array) Push(v value.Value) { a.elements = append(a.elements, v) }

func (a *Array) Pop() (value.Value, bool) {
	if len(a.elements) == 0 {
		return value.Null(), false
	}
	last := a.elements[len(a.elements)-1]
	a.elements = a.elements[:len(a.elements)-1]
	return last, true
}

func (a *Array) Elements() []value.Value { return a.elements }

// Concat returns a new Array (new allocation, per spec §4.G "Array + Array
// -> new Array with concatenated elements").
func Concat(a, b *Array) *Array {
	out := make([]value.Value, 0, a.Len()+b.Len())
	out = append(out, a.elements...)
	out = append(out, b.elements...)
	return &Array{elements: out}
}
