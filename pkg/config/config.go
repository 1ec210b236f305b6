// Package config loads and saves chatsweep settings as named sections of one
// JSON document.
package config

import "fmt"

// Config is the loaded set of sections with typed access.
type Config struct {
	*Manager

	Runner  *RunnerSection
	Collect *CollectSection
	Remote  *RemoteSection
	Browser *BrowserSection
	View    *ViewSection
}

// New registers every section on store with default values.
func New(store Store) (*Config, error) {
	c := &Config{
		Manager: NewManager(store),
		Runner:  NewRunnerSection(),
		Collect: NewCollectSection(),
		Remote:  NewRemoteSection(),
		Browser: NewBrowserSection(),
		View:    NewViewSection(),
	}
	for _, s := range []Section{c.Runner, c.Collect, c.Remote, c.Browser, c.View} {
		if err := c.RegisterSection(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Load opens the file at path (DefaultPath when empty) and applies it.
// A missing file yields defaults.
func Load(path string) (*Config, error) {
	store, err := NewFileStore(path)
	if err != nil {
		return nil, err
	}
	c, err := New(store)
	if err != nil {
		return nil, err
	}
	if err := c.LoadAll(); err != nil {
		return nil, err
	}
	for _, s := range c.GetSections() {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("config %s: %w", s.ID(), err)
		}
	}
	return c, nil
}
