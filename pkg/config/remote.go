package config

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/chatsweep/pkg/remote"
)

// SectionIDRemote identifies the backend API section.
const SectionIDRemote = "remote"

// RemoteSection configures the backend API client.
type RemoteSection struct {
	mu      sync.RWMutex
	baseURL string
	timeout time.Duration
}

// NewRemoteSection returns the API defaults.
func NewRemoteSection() *RemoteSection {
	s := &RemoteSection{}
	s.Reset()
	return s
}

func (s *RemoteSection) ID() string          { return SectionIDRemote }
func (s *RemoteSection) Title() string       { return "Backend API" }
func (s *RemoteSection) Description() string { return "Base URL and per-request timeout." }

func (s *RemoteSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"base_url": s.baseURL,
		"timeout":  s.timeout.String(),
	}
}

func (s *RemoteSection) SetData(data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "base_url":
			str, err := stringValue(key, value)
			if err != nil {
				return err
			}
			s.baseURL = strings.TrimRight(strings.TrimSpace(str), "/")
		case "timeout":
			d, err := durationValue(key, value)
			if err != nil {
				return err
			}
			s.timeout = d
		}
	}
	return nil
}

func (s *RemoteSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := url.Parse(s.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", s.baseURL)
	}
	if s.timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", s.timeout)
	}
	return nil
}

func (s *RemoteSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = remote.DefaultBaseURL
	s.timeout = remote.DefaultTimeout
}

// BaseURL returns the API origin.
func (s *RemoteSection) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// SetBaseURL overrides the API origin.
func (s *RemoteSection) SetBaseURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = strings.TrimRight(u, "/")
}

// Timeout returns the per-request timeout.
func (s *RemoteSection) Timeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeout
}
