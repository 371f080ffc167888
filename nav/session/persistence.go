package session

import (
	"time"

	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/nav/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted
// sessions. Both maps are stored as map descriptors.
type PersistedSessionData struct {
	ID             string             `json:"id"`
	ArenaID        string             `json:"arena_id"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Explored       string             `json:"explored"`
	Reference      string             `json:"reference"`
	Pose           robot.Pose         `json:"pose"`
	LastResult     *explore.Result    `json:"last_result,omitempty"`
	LastRoute      *fastestpath.Route `json:"last_route,omitempty"`
}
