package interp

import (
	"github.com/lazypaws/meowvm/internal/value"
)

// execImportModule implements IMPORT_MODULE (spec §4.F/§4.H): resolve
// pathIdx's constant against the importing module's own path, hand off to
// the Module Manager, and write the resulting Module object to dst. The
// Manager itself runs a freshly-loaded module's main proto to completion
// (via the Executor callback wired in interp.New) before Load returns, so
// by the time control comes back here the import has either fully executed
// or — in an import cycle — is the partial EXECUTING instance the spec
// says an importer sees as-is.
func (e *Engine) execImportModule(f *CallFrame, dst, pathIdx uint16) error {
	pathStr, err := e.constName(f, pathIdx)
	if err != nil {
		return err
	}
	mod, err := e.modules.Load(pathStr.String(), e.homeModule(f).Path)
	if err != nil {
		return err
	}
	f.setReg(e.ctx, dst, value.FromObject(mod))
	return nil
}
