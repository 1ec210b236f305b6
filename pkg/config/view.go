package config

import (
	"strings"
	"sync"

	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/view"
)

// SectionIDView identifies the display section.
const SectionIDView = "view"

// ViewSection holds the initial ordering and the log level.
type ViewSection struct {
	mu       sync.RWMutex
	sortMode view.SortMode
	sortDir  view.SortDir
	logLevel logging.Level
}

// NewViewSection returns the display defaults.
func NewViewSection() *ViewSection {
	s := &ViewSection{}
	s.Reset()
	return s
}

func (s *ViewSection) ID() string          { return SectionIDView }
func (s *ViewSection) Title() string       { return "Display" }
func (s *ViewSection) Description() string { return "Initial sort order and log verbosity." }

func (s *ViewSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"sort_mode": string(s.sortMode),
		"sort_dir":  string(s.sortDir),
		"log_level": strings.ToLower(s.logLevel.String()),
	}
}

func (s *ViewSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		str, err := stringValue(key, value)
		if err != nil {
			if key == "sort_mode" || key == "sort_dir" || key == "log_level" {
				return err
			}
			continue
		}
		switch key {
		case "sort_mode":
			s.sortMode, err = view.ParseSortMode(str)
		case "sort_dir":
			s.sortDir, err = view.ParseSortDir(str)
		case "log_level":
			s.logLevel, err = logging.ParseLevel(str)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate always succeeds; SetData rejects bad values.
func (s *ViewSection) Validate() error { return nil }

func (s *ViewSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortMode = view.SortNatural
	s.sortDir = view.Asc
	s.logLevel = logging.LevelInfo
}

// Sort returns the initial sort mode and direction.
func (s *ViewSection) Sort() (view.SortMode, view.SortDir) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortMode, s.sortDir
}

// LogLevel returns the configured level.
func (s *ViewSection) LogLevel() logging.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logLevel
}

// SetLogLevel overrides the level.
func (s *ViewSection) SetLogLevel(l logging.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLevel = l
}
