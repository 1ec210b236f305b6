package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/chatsweep/pkg/runner"
	"github.com/entrhq/chatsweep/pkg/types"
)

// SectionIDRunner identifies the bulk runner section.
const SectionIDRunner = "runner"

// RunnerSection configures bulk runs.
type RunnerSection struct {
	mu            sync.RWMutex
	delay         time.Duration
	defaultAction types.Action
}

// NewRunnerSection returns the runner defaults.
func NewRunnerSection() *RunnerSection {
	s := &RunnerSection{}
	s.Reset()
	return s
}

func (s *RunnerSection) ID() string    { return SectionIDRunner }
func (s *RunnerSection) Title() string { return "Bulk Runs" }
func (s *RunnerSection) Description() string {
	return "Delay between remote calls and the action used when none is given."
}

func (s *RunnerSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"delay":          s.delay.String(),
		"default_action": s.defaultAction.String(),
	}
}

func (s *RunnerSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "delay":
			d, err := durationValue(key, value)
			if err != nil {
				return err
			}
			s.delay = d
		case "default_action":
			str, err := stringValue(key, value)
			if err != nil {
				return err
			}
			a, err := types.ParseAction(str)
			if err != nil {
				return err
			}
			s.defaultAction = a
		}
	}
	return nil
}

func (s *RunnerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.delay < runner.MinDelay {
		return fmt.Errorf("delay must be at least %v, got %v", runner.MinDelay, s.delay)
	}
	if !s.defaultAction.Bulk() {
		return fmt.Errorf("default_action must be archive or delete, got %s", s.defaultAction)
	}
	return nil
}

func (s *RunnerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = runner.DefaultDelay
	s.defaultAction = types.ActionArchive
}

// Delay returns the configured delay with the floor applied.
func (s *RunnerSection) Delay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return runner.ClampDelay(s.delay)
}

// SetDelay stores d as given; Validate rejects values below the floor.
func (s *RunnerSection) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// DefaultAction returns the configured bulk action.
func (s *RunnerSection) DefaultAction() types.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultAction
}
