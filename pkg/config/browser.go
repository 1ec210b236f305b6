package config

import (
	"fmt"
	"sync"
	"time"
)

// SectionIDBrowser identifies the browser section.
const SectionIDBrowser = "browser"

const defaultBrowserTimeout = 30 * time.Second

// BrowserSection configures the controlled browser tab.
// Empty StartURL and UserDataDir mean the browser package defaults.
type BrowserSection struct {
	mu          sync.RWMutex
	startURL    string
	userDataDir string
	headless    bool
	timeout     time.Duration
}

// NewBrowserSection returns the browser defaults.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

func (s *BrowserSection) ID() string    { return SectionIDBrowser }
func (s *BrowserSection) Title() string { return "Browser" }
func (s *BrowserSection) Description() string {
	return "Start page, persistent profile directory, headless mode and page timeout."
}

func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"start_url":     s.startURL,
		"user_data_dir": s.userDataDir,
		"headless":      s.headless,
		"timeout_ms":    s.timeout.Milliseconds(),
	}
}

func (s *BrowserSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "start_url":
			s.startURL, err = stringValue(key, value)
		case "user_data_dir":
			s.userDataDir, err = stringValue(key, value)
		case "headless":
			s.headless, err = boolValue(key, value)
		case "timeout_ms":
			var ms int
			ms, err = intValue(key, value)
			s.timeout = time.Duration(ms) * time.Millisecond
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.timeout < time.Second {
		return fmt.Errorf("timeout_ms must be at least 1000, got %d", s.timeout.Milliseconds())
	}
	return nil
}

func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startURL = ""
	s.userDataDir = ""
	s.headless = false
	s.timeout = defaultBrowserTimeout
}

// Settings returns start URL, profile directory, headless flag and timeout.
func (s *BrowserSection) Settings() (startURL, userDataDir string, headless bool, timeout time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startURL, s.userDataDir, s.headless, s.timeout
}

// SetUserDataDir overrides the profile directory.
func (s *BrowserSection) SetUserDataDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userDataDir = dir
}

// SetHeadless overrides headless mode.
func (s *BrowserSection) SetHeadless(headless bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headless = headless
}
