package config

import (
	"fmt"
	"sync"
)

// Section is one named block of settings in the config file.
type Section interface {
	ID() string
	Title() string
	Description() string
	Data() map[string]any
	SetData(data map[string]any) error
	Validate() error
	Reset()
}

// Manager binds registered sections to a Store.
type Manager struct {
	mu       sync.RWMutex
	store    Store
	sections map[string]Section
	order    []string
}

// NewManager creates a manager with no sections.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// RegisterSection adds a section. IDs must be unique.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section %q already registered", id)
	}
	m.sections[id] = section
	m.order = append(m.order, id)
	return nil
}

// GetSection looks up a section by ID.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sections[id]
	return s, ok
}

// GetSections returns sections in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Section, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sections[id])
	}
	return out
}

// LoadAll reloads the store and pushes its data into every section.
func (m *Manager) LoadAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.store.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	for _, id := range m.order {
		data, err := m.store.GetSection(id)
		if err != nil {
			return fmt.Errorf("failed to read section %s: %w", id, err)
		}
		if err := m.sections[id].SetData(data); err != nil {
			return fmt.Errorf("failed to apply section %s: %w", id, err)
		}
	}
	return nil
}

// SaveAll validates every section and writes them to the store.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		s := m.sections[id]
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid section %s: %w", id, err)
		}
		if err := m.store.SetSection(id, s.Data()); err != nil {
			return fmt.Errorf("failed to store section %s: %w", id, err)
		}
	}
	if err := m.store.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ResetAll restores every section to its defaults.
func (m *Manager) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		m.sections[id].Reset()
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}
