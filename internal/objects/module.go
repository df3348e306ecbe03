package objects

import (
	"fmt"

	"github.com/lazypaws/meowvm/internal/value"
)

// ModuleState is the three-state lifecycle the Module Manager drives a
// Module through (spec §4.F "Module lifecycle"): PENDING (parsed, not yet
// run), EXECUTING (main proto currently running — importers that hit this
// state are in an import cycle and get the partial Exports table as-is),
// EXECUTED (main proto ran to completion).
type ModuleState uint8

const (
	ModulePending ModuleState = iota
	ModuleExecuting
	ModuleExecuted
)

func (s ModuleState) String() string {
	switch s {
	case ModulePending:
		return "PENDING"
	case ModuleExecuting:
		return "EXECUTING"
	case ModuleExecuted:
		return "EXECUTED"
	default:
		return "UNKNOWN"
	}
}

// Module is one loaded and (eventually) executed source unit (spec §3
// "Module"). Globals holds every top-level binding; Exports is the
// subset published via EXPORT and visible to importers through
// GET_MODULE_EXPORT / IMPORT_ALL.
type Module struct {
	Path    string
	Main    *FunctionProto
	Globals map[*String]value.Value
	Exports map[*String]value.Value
	State   ModuleState
}

func NewModule(path string, main *FunctionProto) *Module {
	return &Module{
		Path:    path,
		Main:    main,
		Globals: make(map[*String]value.Value),
		Exports: make(map[*String]value.Value),
		State:   ModulePending,
	}
}

func (m *Module) ObjKind() value.Kind { return value.KindModule }
func (m *Module) Inspect() string     { return fmt.Sprintf("<module %s>", m.Path) }

func (m *Module) Trace(v value.Visitor) {
	if m.Main != nil {
		v.VisitObject(m.Main)
	}
	for k, val := range m.Globals {
		v.VisitObject(k)
		v.VisitValue(val)
	}
	for k, val := range m.Exports {
		v.VisitObject(k)
		v.VisitValue(val)
	}
}

func (m *Module) GetGlobal(name *String) (value.Value, bool) {
	v, ok := m.Globals[name]
	return v, ok
}

func (m *Module) SetGlobal(name *String, v value.Value) {
	m.Globals[name] = v
}

func (m *Module) Export(name *String, v value.Value) {
	m.Exports[name] = v
}

func (m *Module) GetExport(name *String) (value.Value, bool) {
	v, ok := m.Exports[name]
	return v, ok
}
