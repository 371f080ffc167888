package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/arenanav/nav/descriptor"
	"github.com/wricardo/mcp-training/arenanav/nav/service"
)

// FilePersistence implements SessionPersistence with one JSON file per session
type FilePersistence struct {
	sessionsDir string
	arenas      service.ArenaManager
}

// NewFilePersistence creates a new file-based session persistence layer
func NewFilePersistence(sessionsDir string, arenas service.ArenaManager) (*FilePersistence, error) {
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{
		sessionsDir: sessionsDir,
		arenas:      arenas,
	}, nil
}

// Save persists a session to a JSON file
func (fp *FilePersistence) Save(sess *service.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}

	cp := sess.Checkpoint()
	data := PersistedSessionData{
		ID:             sess.ID,
		ArenaID:        sess.ArenaID,
		CreatedAt:      cp.CreatedAt,
		LastAccessedAt: cp.LastAccessedAt,
		Explored:       cp.Explored.String(),
		Reference:      cp.Reference.String(),
		Pose:           cp.Pose,
		LastResult:     cp.Result,
		LastRoute:      cp.Route,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	if err := os.WriteFile(fp.getFilePath(sess.ID), jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load rebuilds a session from its JSON file and arena
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	jsonData, err := os.ReadFile(fp.getFilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	arena := fp.arenas.GetDefault()
	if data.ArenaID != "" && data.ArenaID != "default" {
		arena, err = fp.arenas.LoadArena(data.ArenaID)
		if err != nil {
			return nil, fmt.Errorf("failed to load arena '%s': %w", data.ArenaID, err)
		}
	}

	sess, err := service.NewSession(data.ID, data.ArenaID, arena)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	explored, err := descriptor.Parse(data.Explored)
	if err != nil {
		return nil, fmt.Errorf("failed to parse explored map: %w", err)
	}
	cp := service.Checkpoint{
		Explored:       explored,
		Pose:           data.Pose,
		Result:         data.LastResult,
		Route:          data.LastRoute,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}
	if data.Reference != "" {
		cp.Reference, err = descriptor.Parse(data.Reference)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reference map: %w", err)
		}
	}

	if err := sess.Restore(cp); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return sess, nil
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}
	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns all persisted session IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}
	return ids, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", strings.ToLower(id)))
}
