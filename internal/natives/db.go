// Package natives registers in-process modules that IMPORT_MODULE can load
// by name without ever touching the filesystem resolver (SPEC_FULL.md
// Supplemented Feature 3: the original's dlopen/LoadLibrary native-library resolution
// is dropped in favor of this package; see modmgr.Manager.RegisterNative).
// Each module is built once at Engine construction and seeded directly into
// the Module Manager's cache as an already-EXECUTED Module, so a script's
// `IMPORT_MODULE "db"` behaves exactly like importing any other module.
package natives

import (
	"database/sql"
	"fmt"

	"github.com/lazypaws/meowvm/internal/gc"
	"github.com/lazypaws/meowvm/internal/modmgr"
	"github.com/lazypaws/meowvm/internal/objects"
	"github.com/lazypaws/meowvm/internal/value"
	"github.com/lazypaws/meowvm/internal/vmerr"

	_ "modernc.org/sqlite"
)

// heapProvider is the minimal slice of *interp.Engine a native function
// needs. Defining it here rather than importing internal/interp avoids a
// dependency this package has no other reason to take, mirroring the
// consumer-defined-interface pattern used throughout (gc.RootProvider,
// modmgr.Executor, objects.NativeFunc's untyped engine parameter).
type heapProvider interface {
	Heap() *gc.MemoryManager
}

// RegisterDB installs the "db" module: a single export, open(path), that
// returns a Hash of three bound NativeFunctions (exec, query, close) closing
// over a live *sql.DB. The connection itself never needs a place in the
// closed value.Kind enum — it lives only in the closure environment of the
// NativeFunctions open returns, the same way the teacher keeps native state
// out of the tagged Value union entirely.
func RegisterDB(mgr *modmgr.Manager, heap *gc.MemoryManager) {
	mod := heap.NewModule("db", nil)
	mod.State = objects.ModuleExecuted
	mod.Export(heap.NewString("open"), value.FromObject(heap.NewNativeFunction(heap.NewString("open"), 1, dbOpen)))
	mgr.RegisterNative("db", mod)
}

func dbOpen(engine interface{}, args []value.Value) (value.Value, error) {
	eng, ok := engine.(heapProvider)
	if !ok {
		return value.Null(), vmerr.New(vmerr.TypeError, "db.open: engine does not expose a heap")
	}
	if len(args) != 1 {
		return value.Null(), vmerr.New(vmerr.TypeError, "db.open: expected 1 argument (path), got %d", len(args))
	}
	pathStr, ok := asString(args[0])
	if !ok {
		return value.Null(), vmerr.New(vmerr.TypeError, "db.open: path must be a String")
	}

	heap := eng.Heap()
	conn, err := sql.Open("sqlite", pathStr.String())
	if err != nil {
		return value.Null(), vmerr.Wrap(vmerr.ModuleLoadError, err, "db.open: %s", err.Error())
	}

	h := &dbHandle{conn: conn, heap: heap}
	fields := map[*objects.String]value.Value{
		heap.NewString("exec"):  value.FromObject(heap.NewNativeFunction(heap.NewString("exec"), -1, h.exec)),
		heap.NewString("query"): value.FromObject(heap.NewNativeFunction(heap.NewString("query"), -1, h.query)),
		heap.NewString("close"): value.FromObject(heap.NewNativeFunction(heap.NewString("close"), 0, h.close)),
	}
	return value.FromObject(heap.NewHash(fields)), nil
}

// dbHandle holds the one piece of state a "db" connection needs across
// calls. It is captured by the three NativeFuncs open returns and is never
// itself wrapped in a value.Value.
type dbHandle struct {
	conn *sql.DB
	heap *gc.MemoryManager
}

func (h *dbHandle) exec(_ interface{}, args []value.Value) (value.Value, error) {
	stmt, rest, err := sqlArgs("db exec", args)
	if err != nil {
		return value.Null(), err
	}
	res, execErr := h.conn.Exec(stmt, toDriverArgs(rest)...)
	if execErr != nil {
		return value.Null(), vmerr.Wrap(vmerr.ModuleLoadError, execErr, "db exec: %s", execErr.Error())
	}
	n, _ := res.RowsAffected()
	return value.Int(n), nil
}

func (h *dbHandle) query(_ interface{}, args []value.Value) (value.Value, error) {
	stmt, rest, err := sqlArgs("db query", args)
	if err != nil {
		return value.Null(), err
	}
	rows, queryErr := h.conn.Query(stmt, toDriverArgs(rest)...)
	if queryErr != nil {
		return value.Null(), vmerr.Wrap(vmerr.ModuleLoadError, queryErr, "db query: %s", queryErr.Error())
	}
	defer rows.Close()

	cols, colErr := rows.Columns()
	if colErr != nil {
		return value.Null(), vmerr.Wrap(vmerr.ModuleLoadError, colErr, "db query: %s", colErr.Error())
	}

	var out []value.Value
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if scanErr := rows.Scan(ptrs...); scanErr != nil {
			return value.Null(), vmerr.Wrap(vmerr.ModuleLoadError, scanErr, "db query: %s", scanErr.Error())
		}
		row := make(map[*objects.String]value.Value, len(cols))
		for i, col := range cols {
			row[h.heap.NewString(col)] = fromDriverValue(h.heap, raw[i])
		}
		out = append(out, value.FromObject(h.heap.NewHash(row)))
	}
	return value.FromObject(h.heap.NewArray(out)), nil
}

func (h *dbHandle) close(_ interface{}, _ []value.Value) (value.Value, error) {
	if err := h.conn.Close(); err != nil {
		return value.Null(), vmerr.Wrap(vmerr.ModuleLoadError, err, "db close: %s", err.Error())
	}
	return value.Null(), nil
}

func sqlArgs(who string, args []value.Value) (string, []value.Value, error) {
	if len(args) == 0 {
		return "", nil, vmerr.New(vmerr.TypeError, "%s: missing SQL statement", who)
	}
	stmt, ok := asString(args[0])
	if !ok {
		return "", nil, vmerr.New(vmerr.TypeError, "%s: SQL statement must be a String", who)
	}
	return stmt.String(), args[1:], nil
}

func asString(v value.Value) (*objects.String, bool) {
	if !v.IsObject() {
		return nil, false
	}
	s, ok := v.AsObject().(*objects.String)
	return s, ok
}

func toDriverArgs(args []value.Value) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		switch {
		case a.IsNull():
			out[i] = nil
		case a.IsBool():
			out[i] = a.AsBool()
		case a.IsInt():
			out[i] = a.AsInt()
		case a.IsFloat():
			out[i] = a.AsFloat()
		default:
			if s, ok := asString(a); ok {
				out[i] = s.String()
			} else {
				out[i] = a.Inspect()
			}
		}
	}
	return out
}

func fromDriverValue(heap *gc.MemoryManager, raw interface{}) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null()
	case int64:
		return value.Int(v)
	case float64:
		return value.Float(v)
	case bool:
		return value.Bool(v)
	case []byte:
		return value.FromObject(heap.NewString(string(v)))
	case string:
		return value.FromObject(heap.NewString(v))
	default:
		return value.FromObject(heap.NewString(fmt.Sprintf("%v", v)))
	}
}
