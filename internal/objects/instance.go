package objects

import (
	"fmt"

	"github.com/lazypaws/meowvm/internal/value"
)

// Instance is a class instance with an open field table (spec §3
// "Instance"): fields are created on first SET_PROP, not declared by the
// class, mirroring the original's dynamically-extensible object layout.
type Instance struct {
	Class  *Class
	Fields map[*String]value.Value
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: make(map[*String]value.Value)}
}

func (i *Instance) ObjKind() value.Kind { return value.KindInstance }

func (i *Instance) Inspect() string {
	if i.Class != nil && i.Class.Name != nil {
		return fmt.Sprintf("<instance of %s>", i.Class.Name.Inspect())
	}
	return "<instance>"
}

func (i *Instance) Trace(v value.Visitor) {
	if i.Class != nil {
		v.VisitObject(i.Class)
	}
	for k, f := range i.Fields {
		v.VisitObject(k)
		v.VisitValue(f)
	}
}

func (i *Instance) GetField(name *String) (value.Value, bool) {
	v, ok := i.Fields[name]
	return v, ok
}

func (i *Instance) SetField(name *String, v value.Value) {
	i.Fields[name] = v
}
