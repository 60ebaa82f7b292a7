package plugin

import (
	"errors"
	"fmt"
	goplugin "plugin"
)

// SymbolName is the exported symbol a plugin binary must provide.
const SymbolName = "Plugin"

// Loader resolves plugin binaries into Plugin implementations.
// It is the optional discovery collaborator of the host; plugins can always
// be registered directly instead.
type Loader interface {
	Load(path string) (Plugin, error)
}

// GoPluginLoader opens shared objects built with -buildmode=plugin.
// Go plugins cannot be unloaded, so callers should validate a manifest file
// before opening a binary whenever one is available.
type GoPluginLoader struct{}

// Load opens the shared object and looks up the exported `Plugin` symbol.
// The symbol may be a Plugin value, a pointer to one, or a constructor.
func (GoPluginLoader) Load(path string) (Plugin, error) {
	if path == "" {
		return nil, errors.New("plugin path cannot be empty")
	}
	so, err := goplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	symbol, err := so.Lookup(SymbolName)
	if err != nil {
		return nil, fmt.Errorf("lookup %s in %s: %w", SymbolName, path, err)
	}
	switch p := symbol.(type) {
	case Plugin:
		return p, nil
	case *Plugin:
		if p == nil || *p == nil {
			return nil, errors.New("plugin symbol is nil")
		}
		return *p, nil
	case func() Plugin:
		if inst := p(); inst != nil {
			return inst, nil
		}
		return nil, errors.New("plugin constructor returned nil")
	default:
		return nil, errors.New("plugin symbol must implement plugin.Plugin")
	}
}
