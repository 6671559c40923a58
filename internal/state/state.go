// Package state persists the pieces of UI state that survive restarts:
// per-source visibility, assigned colors, and the viewer timezone.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FilterState is the persisted filter document. Visible maps source name
// to whether its entries are shown; Colors pins each source to its
// assigned palette color so assignments stay stable across sessions.
type FilterState struct {
	Visible map[string]bool   `json:"visible"`
	Colors  map[string]string `json:"colors"`
}

// NewFilterState returns an empty state with both maps allocated.
func NewFilterState() *FilterState {
	return &FilterState{
		Visible: make(map[string]bool),
		Colors:  make(map[string]string),
	}
}

// Merge folds newly discovered sources into the state. Unknown sources
// become visible; sources already present keep whatever the user set,
// and sources absent from the feed are never removed. Reports whether
// anything changed.
func (s *FilterState) Merge(sources []string) bool {
	changed := false
	for _, name := range sources {
		if name == "" {
			continue
		}
		if _, ok := s.Visible[name]; !ok {
			s.Visible[name] = true
			changed = true
		}
	}
	return changed
}

// IsVisible reports whether a source's entries should render. Sources
// the state has never seen default to visible.
func (s *FilterState) IsVisible(source string) bool {
	v, ok := s.Visible[source]
	if !ok {
		return true
	}
	return v
}

// Toggle flips one source's visibility.
func (s *FilterState) Toggle(source string) {
	s.Visible[source] = !s.IsVisible(source)
}

// Store reads and writes the persisted files. Saves are synchronous so a
// render pass never runs ahead of the durable state.
type Store struct {
	path   string
	tzPath string
	mu     sync.Mutex
}

func NewStore(path, tzPath string) *Store {
	return &Store{path: path, tzPath: tzPath}
}

// Path is the filter-state file location, for watching.
func (st *Store) Path() string { return st.path }

// Load reads the filter state. A missing or unreadable file and invalid
// JSON all yield an empty state; corrupt persisted state must never keep
// the calendar from rendering.
func (st *Store) Load() *FilterState {
	st.mu.Lock()
	defer st.mu.Unlock()

	state := NewFilterState()
	data, err := os.ReadFile(st.path)
	if err != nil {
		return state
	}
	var loaded FilterState
	if err := json.Unmarshal(data, &loaded); err != nil {
		return state
	}
	if loaded.Visible != nil {
		state.Visible = loaded.Visible
	}
	if loaded.Colors != nil {
		state.Colors = loaded.Colors
	}
	return state
}

// Save writes the filter state, creating parent directories on first
// use.
func (st *Store) Save(state *FilterState) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(st.path, append(data, '\n'), 0o644)
}

// LoadTimezone returns the persisted viewer timezone, or "" when none
// was ever chosen.
func (st *Store) LoadTimezone() string {
	data, err := os.ReadFile(st.tzPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SaveTimezone persists the viewer timezone choice.
func (st *Store) SaveTimezone(zone string) error {
	if err := os.MkdirAll(filepath.Dir(st.tzPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(st.tzPath, []byte(zone+"\n"), 0o644)
}
