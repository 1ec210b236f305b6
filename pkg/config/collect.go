package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/chatsweep/pkg/collect"
)

// SectionIDCollect identifies the load-all section.
const SectionIDCollect = "collect"

// CollectSection configures the load-all scroll loop.
type CollectSection struct {
	mu           sync.RWMutex
	pause        time.Duration
	maxRounds    int
	stableRounds int
}

// NewCollectSection returns the loop defaults.
func NewCollectSection() *CollectSection {
	s := &CollectSection{}
	s.Reset()
	return s
}

func (s *CollectSection) ID() string    { return SectionIDCollect }
func (s *CollectSection) Title() string { return "Load All" }
func (s *CollectSection) Description() string {
	return "Pause between scroll rounds, round budget and how many unchanged rounds end the loop."
}

func (s *CollectSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"pause":         s.pause.String(),
		"max_rounds":    s.maxRounds,
		"stable_rounds": s.stableRounds,
	}
}

func (s *CollectSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "pause":
			s.pause, err = durationValue(key, value)
		case "max_rounds":
			s.maxRounds, err = intValue(key, value)
		case "stable_rounds":
			s.stableRounds, err = intValue(key, value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *CollectSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pause < collect.MinPause {
		return fmt.Errorf("pause must be at least %v, got %v", collect.MinPause, s.pause)
	}
	if s.maxRounds < 1 {
		return fmt.Errorf("max_rounds must be positive, got %d", s.maxRounds)
	}
	if s.stableRounds < 1 || s.stableRounds > s.maxRounds {
		return fmt.Errorf("stable_rounds must be between 1 and max_rounds, got %d", s.stableRounds)
	}
	return nil
}

func (s *CollectSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pause = collect.DefaultPause
	s.maxRounds = collect.DefaultMaxRounds
	s.stableRounds = collect.DefaultStableRounds
}

// Options converts the section into loop options.
func (s *CollectSection) Options() collect.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect.Options{
		Pause:        s.pause,
		MaxRounds:    s.maxRounds,
		StableRounds: s.stableRounds,
	}.WithDefaults()
}
