package headless

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/chatsweep/pkg/runner"
	"github.com/entrhq/chatsweep/pkg/types"
)

// Config represents a headless job.
type Config struct {
	// Action applied to every planned conversation: archive or delete.
	Action types.Action `yaml:"action" json:"action"`

	// Delay between items. Zero keeps the controller's delay.
	Delay time.Duration `yaml:"delay" json:"delay"`

	// LoadAll scrolls the sidebar until stable before planning.
	LoadAll bool `yaml:"load_all" json:"load_all"`

	// Selection
	Chats    ChatSelector    `yaml:"chats" json:"chats"`
	Projects ProjectSelector `yaml:"projects" json:"projects"`

	// MaxItems refuses plans larger than this. Zero means no limit.
	MaxItems int `yaml:"max_items" json:"max_items"`

	// DryRun plans and reports without mutating anything.
	DryRun bool `yaml:"dry_run" json:"dry_run"`

	// Timeout bounds the whole job. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ChatSelector picks flat sidebar chats by title.
type ChatSelector struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Match   []string `yaml:"match" json:"match"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// ProjectSelector picks projects by name, then their conversations by title.
type ProjectSelector struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Names   []string `yaml:"names" json:"names"`
	Match   []string `yaml:"match" json:"match"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`

	// Color enables ANSI colors and JSON highlighting.
	Color bool `yaml:"color" json:"color"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Individual format flags
	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Action.Bulk() {
		return fmt.Errorf("invalid action: %s (must be 'archive' or 'delete')", c.Action)
	}

	if !c.Chats.Enabled && !c.Projects.Enabled {
		return fmt.Errorf("nothing to do: enable chats and/or projects")
	}

	if c.Projects.Enabled && len(c.Projects.Names) == 0 {
		return fmt.Errorf("projects.names is required when projects are enabled")
	}

	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}

	if c.Delay > 0 && c.Delay < runner.MinDelay {
		return fmt.Errorf("delay must be at least %s", runner.MinDelay)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if c.MaxItems < 0 {
		return fmt.Errorf("max_items cannot be negative")
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts.output_dir is required when artifacts are enabled")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// DefaultConfig returns a conservative job: archive, flat chats only, dry run.
func DefaultConfig() *Config {
	return &Config{
		Action: types.ActionArchive,
		Chats: ChatSelector{
			Enabled: true,
		},
		MaxItems: 500,
		DryRun:   true,
		Timeout:  30 * time.Minute,
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: ".chatsweep/artifacts",
			JSON:      true,
			Markdown:  true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
			Color:     true,
		},
	}
}

// LoadConfig reads a YAML job over DefaultConfig. It does not validate.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}
