package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLibraryRootResolvedAgainstManifestDir(t *testing.T) {
	cfg, err := Parse([]byte("library_root: ./lib\n"), "/project/meow.yaml")
	require.NoError(t, err)
	require.Equal(t, "/project/lib", cfg.LibraryRoot)
}

func TestParseAbsoluteLibraryRootUnchanged(t *testing.T) {
	cfg, err := Parse([]byte("library_root: /opt/meowlib\n"), "/project/meow.yaml")
	require.NoError(t, err)
	require.Equal(t, "/opt/meowlib", cfg.LibraryRoot)
}

func TestParseEntryArgs(t *testing.T) {
	cfg, err := Parse([]byte("entry_args: [\"--verbose\", \"in.meow\"]\n"), "/project/meow.yaml")
	require.NoError(t, err)
	require.Equal(t, []string{"--verbose", "in.meow"}, cfg.EntryArgs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "meow.yaml"))
	require.Error(t, err)
}

func TestFindWalksUpToParent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "meow.yaml"), []byte("library_root: ./lib\n"), 0o644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := Find(nested)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "meow.yaml"), found)
}

func TestFindReturnsEmptyWhenNotFound(t *testing.T) {
	found, err := Find(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, found)
}
