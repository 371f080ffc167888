package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	ErrArenaNotFound = errors.New("arena not found")
	ErrInvalidArena  = errors.New("invalid arena")
)

// ArenaInfo summarises an arena definition for listings
type ArenaInfo struct {
	Filename    string `json:"filename"`
	ArenaID     string `json:"arena_id"` // identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	HasLayout   bool   `json:"has_layout"`
}

// Manager loads and caches arena definitions from a directory of YAML files
type Manager struct {
	arenaDir     string
	defaultArena *Arena
	arenas       map[string]*Arena
	mu           sync.RWMutex
}

// NewManager creates a manager reading from arenaDir
func NewManager(arenaDir string) (*Manager, error) {
	if _, err := os.Stat(arenaDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("arena directory does not exist: %s", arenaDir)
	}

	m := &Manager{
		arenaDir: arenaDir,
		arenas:   make(map[string]*Arena),
	}
	m.loadDefaultArena()
	return m, nil
}

// LoadArena loads an arena by identifier (file name with or without extension)
func (m *Manager) LoadArena(name string) (*Arena, error) {
	id := arenaID(name)

	m.mu.RLock()
	if arena, exists := m.arenas[id]; exists {
		m.mu.RUnlock()
		return arena, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if arena, exists := m.arenas[id]; exists {
		return arena, nil
	}

	path, err := m.findFile(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read arena file: %w", err)
	}

	arena := DefaultArena()
	arena.Name = id
	arena.Description = ""
	if err := yaml.Unmarshal(data, arena); err != nil {
		return nil, fmt.Errorf("failed to parse arena: %w", err)
	}
	arena.dir = m.arenaDir

	if err := arena.Validate(); err != nil {
		return nil, err
	}

	m.arenas[id] = arena
	return arena, nil
}

// ListArenas describes every loadable arena in the directory
func (m *Manager) ListArenas() ([]*ArenaInfo, error) {
	entries, err := os.ReadDir(m.arenaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read arena directory: %w", err)
	}

	var arenas []*ArenaInfo
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		id := arenaID(entry.Name())
		arena, err := m.LoadArena(id)
		if err != nil {
			continue
		}

		arenas = append(arenas, &ArenaInfo{
			Filename:    entry.Name(),
			ArenaID:     id,
			Name:        arena.Name,
			Description: arena.Description,
			Rows:        arena.Rows,
			Cols:        arena.Cols,
			HasLayout:   arena.MapFile != "" || len(arena.Layout) > 0,
		})
	}

	sort.Slice(arenas, func(i, j int) bool { return arenas[i].ArenaID < arenas[j].ArenaID })
	return arenas, nil
}

// GetDefault returns the default arena
func (m *Manager) GetDefault() *Arena {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultArena
}

// SetDefault makes the named arena the default
func (m *Manager) SetDefault(name string) error {
	arena, err := m.LoadArena(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultArena = arena
	return nil
}

// RefreshCache drops cached arenas and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.arenas = make(map[string]*Arena)
	m.mu.Unlock()

	m.loadDefaultArena()
}

// SaveArena validates an arena and writes it as <name>.yaml
func (m *Manager) SaveArena(name string, arena *Arena) error {
	if arena.dir == "" {
		arena.dir = m.arenaDir
	}
	if err := arena.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(arena)
	if err != nil {
		return fmt.Errorf("failed to marshal arena: %w", err)
	}

	id := arenaID(name)
	path := filepath.Join(m.arenaDir, id+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write arena file: %w", err)
	}

	m.mu.Lock()
	m.arenas[id] = arena
	m.mu.Unlock()
	return nil
}

// loadDefaultArena prefers default.yaml, then the first valid arena, then
// the built-in empty arena
func (m *Manager) loadDefaultArena() {
	arena, err := m.LoadArena("default")
	if err != nil {
		arenas, listErr := m.ListArenas()
		if listErr == nil && len(arenas) > 0 {
			arena, err = m.LoadArena(arenas[0].ArenaID)
		}
	}
	if err != nil || arena == nil {
		arena = DefaultArena()
	}

	m.mu.Lock()
	m.defaultArena = arena
	m.mu.Unlock()
}

func (m *Manager) findFile(id string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(m.arenaDir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrArenaNotFound, id)
}

func arenaID(name string) string {
	return strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
