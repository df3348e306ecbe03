// Package config loads meow.yaml, the optional project manifest that tells
// the Module Manager where to find a configured library root (spec §4.F
// resolution order: "absolute; importer-relative; entry-dir-relative;
// library-root-relative") and lists default arguments the CLI appends to
// the command-line argv.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level meow.yaml shape.
type Config struct {
	// LibraryRoot is the directory IMPORT_MODULE falls back to once an
	// import resolves against neither the importer's own directory nor the
	// entry module's directory. Relative paths are resolved against the
	// directory containing meow.yaml itself, not the process cwd.
	LibraryRoot string `yaml:"library_root,omitempty"`

	// EntryArgs is appended after any argv cmd/meow was invoked with,
	// letting a project pin default script arguments in the manifest.
	EntryArgs []string `yaml:"entry_args,omitempty"`
}

// Load reads and parses path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes meow.yaml content already read into memory; path is used
// only to resolve LibraryRoot and in error messages.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.LibraryRoot != "" && !filepath.IsAbs(cfg.LibraryRoot) {
		cfg.LibraryRoot = filepath.Join(filepath.Dir(path), cfg.LibraryRoot)
	}
	return &cfg, nil
}

// Find searches for meow.yaml starting at dir and walking up to parent
// directories, stopping at the filesystem root. Returns an empty path and a
// nil error when no manifest is found — a missing meow.yaml is not an
// error, it just means no configured library root.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "meow.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
