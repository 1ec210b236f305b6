package headless

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/chatsweep/pkg/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.DryRun, "default job must not mutate")
	assert.Equal(t, types.ActionArchive, cfg.Action)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unarchive is not a bulk action", func(c *Config) { c.Action = types.ActionUnarchive }, "invalid action"},
		{"nothing enabled", func(c *Config) { c.Chats.Enabled = false }, "nothing to do"},
		{"projects without names", func(c *Config) { c.Projects.Enabled = true }, "projects.names"},
		{"negative delay", func(c *Config) { c.Delay = -time.Second }, "negative"},
		{"delay below floor", func(c *Config) { c.Delay = 10 * time.Millisecond }, "at least"},
		{"negative timeout", func(c *Config) { c.Timeout = -1 }, "timeout"},
		{"negative max items", func(c *Config) { c.MaxItems = -1 }, "max_items"},
		{"artifacts without dir", func(c *Config) { c.Artifacts.OutputDir = "" }, "output_dir"},
		{"bad verbosity", func(c *Config) { c.Logging.Verbosity = "shouty" }, "verbosity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDefaultsVerbosity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Verbosity = ""
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	yaml := `action: delete
delay: 1500ms
load_all: true
chats:
  enabled: true
  match: ["*standup*"]
  exclude: ["*keep*"]
projects:
  enabled: true
  names: ["Scratch*"]
max_items: 25
dry_run: false
logging:
  verbosity: verbose
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, types.ActionDelete, cfg.Action)
	assert.Equal(t, 1500*time.Millisecond, cfg.Delay)
	assert.True(t, cfg.LoadAll)
	assert.Equal(t, []string{"*standup*"}, cfg.Chats.Match)
	assert.Equal(t, []string{"*keep*"}, cfg.Chats.Exclude)
	assert.Equal(t, []string{"Scratch*"}, cfg.Projects.Names)
	assert.Equal(t, 25, cfg.MaxItems)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, "verbose", cfg.Logging.Verbosity)

	// untouched keys keep their defaults
	assert.True(t, cfg.Artifacts.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Timeout)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("action: [oops"), 0600))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse")

	path = filepath.Join(t.TempDir(), "action.yaml")
	require.NoError(t, os.WriteFile(path, []byte("action: shred\n"), 0600))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "unknown action")
}
