package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPath(t *testing.T) {
	t.Setenv(PathEnv, "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".chatsweep", "config.json"), p)

	t.Setenv(PathEnv, "/tmp/elsewhere.json")
	p, err = DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.json", p)
}

func TestFileStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	assert.Equal(t, path, s.Path())
	assert.False(t, s.IsModified())
	all, err := s.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)

	sec, err := s.GetSection("runner")
	require.NoError(t, err)
	assert.NotNil(t, sec)
	assert.Empty(t, sec)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.SetSection("runner", map[string]any{"delay": "2s"}))
	assert.True(t, s.IsModified())
	require.NoError(t, s.Save())
	assert.False(t, s.IsModified())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "1.0", doc["version"])

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	sec, err := reopened.GetSection("runner")
	require.NoError(t, err)
	assert.Equal(t, "2s", sec["delay"])
}

func TestFileStoreInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStoreReturnsCopies(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	in := map[string]any{"k": "v"}
	require.NoError(t, s.SetSection("a", in))
	in["k"] = "changed"

	out, _ := s.GetSection("a")
	assert.Equal(t, "v", out["k"])
	out["k"] = "mutated"

	again, _ := s.GetSection("a")
	assert.Equal(t, "v", again["k"])

	require.NoError(t, s.SetAll(map[string]map[string]any{"b": {"x": true}}))
	all, _ := s.GetAll()
	assert.Equal(t, map[string]map[string]any{"b": {"x": true}}, all)
}
