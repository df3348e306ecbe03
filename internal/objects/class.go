package objects

import (
	"fmt"

	"github.com/lazypaws/meowvm/internal/value"
)

// Class is a single-inheritance class object (spec §3 "Class"). Methods
// maps a method name (*String, interned) to a Value that is either a
// Closure or a NativeFunction; SET_METHOD populates it, INHERIT wires
// Super, and GET_SUPER / method dispatch walk the Super chain on miss.
type Class struct {
	Name    *String
	Super   *Class
	Methods map[*String]value.Value
}

func NewClass(name *String, super *Class) *Class {
	return &Class{Name: name, Super: super, Methods: make(map[*String]value.Value)}
}

func (c *Class) ObjKind() value.Kind { return value.KindClass }

func (c *Class) Inspect() string {
	if c.Name != nil {
		return fmt.Sprintf("<class %s>", c.Name.Inspect())
	}
	return "<class>"
}

func (c *Class) Trace(v value.Visitor) {
	if c.Name != nil {
		v.VisitObject(c.Name)
	}
	if c.Super != nil {
		v.VisitObject(c.Super)
	}
	for k, m := range c.Methods {
		v.VisitObject(k)
		v.VisitValue(m)
	}
}

func (c *Class) SetMethod(name *String, m value.Value) {
	c.Methods[name] = m
}

// FindMethod looks up name on c, then walks the Super chain (spec §4.H
// "GET_SUPER" / method-dispatch invariant: "a method lookup miss on the
// instance's own class consults its superclass chain before failing").
func (c *Class) FindMethod(name *String) (value.Value, bool) {
	for cls := c; cls != nil; cls = cls.Super {
		if m, ok := cls.Methods[name]; ok {
			return m, true
		}
	}
	return value.Null(), false
}

// IsSubclassOf reports whether c is cls or a descendant of cls, walking Super.
func (c *Class) IsSubclassOf(cls *Class) bool {
	for cur := c; cur != nil; cur = cur.Super {
		if cur == cls {
			return true
		}
	}
	return false
}
