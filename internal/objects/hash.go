package objects

import (
	"strings"

	"github.com/lazypaws/meowvm/internal/value"
)

// Hash is a String-keyed map with O(1) average lookup (spec §3
// "HashTable"). Keyed by *String pointer identity: because the memory
// manager interns all strings, byte-equal keys are always the same pointer,
// so a native Go map over *String is both correct and as fast as a custom
// hash table — grounding for not reimplementing std::unordered_map by hand
// (see DESIGN.md).
type Hash struct {
	fields map[*String]value.Value
	// order preserves insertion order for GET_KEYS/GET_VALUES even though
	// the spec does not require it ("insertion-order not guaranteed") —
	// kept anyway because it makes output deterministic for tests, matching
	// the teacher's own map-with-order pattern in internal/vm/globals_map.go.
	order []*String
}

func NewHash(fields map[*String]value.Value) *Hash {
	h := &Hash{fields: make(map[*String]value.Value, len(fields))}
	for k, v := range fields {
		h.Set(k, v)
	}
	return h
}

func (h *Hash) ObjKind() value.Kind { return value.KindHash }

func (h *Hash) Trace(v value.Visitor) {
	for _, k := range h.order {
		v.VisitObject(k)
		v.VisitValue(h.fields[k])
	}
}

func (h *Hash) Inspect() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range h.order {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k.Inspect())
		sb.WriteString(": ")
		sb.WriteString(h.fields[k].Inspect())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (h *Hash) Get(key *String) (value.Value, bool) {
	v, ok := h.fields[key]
	return v, ok
}

func (h *Hash) Set(key *String, v value.Value) {
	if h.fields == nil {
		h.fields = make(map[*String]value.Value)
	}
	if _, exists := h.fields[key]; !exists {
		h.order = append(h.order, key)
	}
	h.fields[key] = v
}

func (h *Hash) Has(key *String) bool {
	_, ok := h.fields[key]
	return ok
}

func (h *Hash) Len() int { return len(h.fields) }

func (h *Hash) Keys() []*String { return h.order }
