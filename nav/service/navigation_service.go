package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/arenanav/nav/config"
	"github.com/wricardo/mcp-training/arenanav/nav/descriptor"
	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
)

var (
	ErrExplorationRunning = errors.New("exploration already running")
	ErrNotExploring       = errors.New("no exploration running")
)

// NavigationService defines all simulator operations
type NavigationService interface {
	// Session Management
	CreateSession(ctx context.Context, arenaID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ResetSession(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Exploration
	Explore(ctx context.Context, sessionID string, req ExploreRequest) (*explore.Result, error)
	StartExploration(ctx context.Context, sessionID string, req ExploreRequest) (*SessionInfo, error)
	StopExploration(ctx context.Context, sessionID string) (*SessionInfo, error)
	GetState(ctx context.Context, sessionID string) (*NavigationState, error)

	// Fastest path
	FastestPath(ctx context.Context, sessionID string, req PathRequest) (*fastestpath.Route, error)

	// Maps
	ExportDescriptor(ctx context.Context, sessionID string) (*DescriptorInfo, error)
	ImportDescriptor(ctx context.Context, sessionID, text string) (*SessionInfo, error)
	SetObstacle(ctx context.Context, sessionID string, pos grid.Position, obstacle bool) (*SessionInfo, error)

	// Arenas
	ListArenas(ctx context.Context) ([]*config.ArenaInfo, error)

	// Close stops every running exploration and waits for the workers
	Close() error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, arenaID string, arena *config.Arena) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ArenaManager handles arena definition loading
type ArenaManager interface {
	LoadArena(name string) (*config.Arena, error)
	ListArenas() ([]*config.ArenaInfo, error)
	GetDefault() *config.Arena
}

// Notifier receives session events for push delivery
type Notifier interface {
	BroadcastEvent(sessionID, event string, data any)
}

// Session is one simulated robot in one arena. Map holds what the robot
// has explored; Reference is the ground truth its sensors read from.
type Session struct {
	ID        string
	ArenaID   string
	Arena     *config.Arena
	Map       *grid.Map
	Reference *grid.Map
	Robot     *robot.Robot
	CreatedAt time.Time

	mu         sync.Mutex
	accessedAt time.Time
	lastResult *explore.Result
	lastRoute  *fastestpath.Route
	progress   *explore.Progress
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSession builds the maps and robot for an arena
func NewSession(id, arenaID string, arena *config.Arena) (*Session, error) {
	m, err := arena.NewMap()
	if err != nil {
		return nil, err
	}
	ref, err := arena.Reference()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		ID:         id,
		ArenaID:    arenaID,
		Arena:      arena,
		Map:        m,
		Reference:  ref,
		CreatedAt:  now,
		accessedAt: now,
	}
	s.Robot = robot.New(s.Home(), nil, false)
	return s, nil
}

// Home is the pose every exploration starts from
func (s *Session) Home() robot.Pose {
	start := s.Map.Start()
	return robot.Pose{Row: start.Row, Col: start.Col, Direction: robot.North}
}

// Reset forgets everything explored and returns the robot home
func (s *Session) Reset() {
	s.Map.ClearObstacles()
	s.Map.ResetExploration()
	s.Robot.SetPose(s.Home())

	s.mu.Lock()
	s.lastResult = nil
	s.lastRoute = nil
	s.progress = nil
	s.mu.Unlock()
}

// Checkpoint is the persistable state of a session
type Checkpoint struct {
	Explored       descriptor.Descriptor
	Reference      descriptor.Descriptor
	Pose           robot.Pose
	Result         *explore.Result
	Route          *fastestpath.Route
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Checkpoint captures the session state for persistence
func (s *Session) Checkpoint() Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Checkpoint{
		Explored:       descriptor.Encode(s.Map),
		Reference:      descriptor.Encode(s.Reference),
		Pose:           s.Robot.Pose(),
		Result:         s.lastResult,
		Route:          s.lastRoute,
		CreatedAt:      s.CreatedAt,
		LastAccessedAt: s.accessedAt,
	}
}

// Restore loads a checkpoint into a session that is not exploring
func (s *Session) Restore(cp Checkpoint) error {
	if cp.Reference.Part1 != "" {
		if err := descriptor.Decode(cp.Reference, s.Reference); err != nil {
			return fmt.Errorf("reference map: %w", err)
		}
		s.Reference.MarkAllExplored()
	}
	if err := descriptor.Decode(cp.Explored, s.Map); err != nil {
		return fmt.Errorf("explored map: %w", err)
	}
	if s.Map.InBounds(cp.Pose.Row, cp.Pose.Col) && cp.Pose.Direction.Valid() {
		s.Robot.SetPose(cp.Pose)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = cp.Result
	s.lastRoute = cp.Route
	if !cp.CreatedAt.IsZero() {
		s.CreatedAt = cp.CreatedAt
	}
	if !cp.LastAccessedAt.IsZero() {
		s.accessedAt = cp.LastAccessedAt
	}
	return nil
}

// Touch records an access
func (s *Session) Touch() {
	s.mu.Lock()
	s.accessedAt = time.Now()
	s.mu.Unlock()
}

// LastAccessedAt returns the time of the latest access
func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessedAt
}

// LastResult returns the outcome of the latest finished exploration
func (s *Session) LastResult() *explore.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// LastRoute returns the latest planned fastest path
func (s *Session) LastRoute() *fastestpath.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRoute
}

// Progress returns the latest exploration progress
func (s *Session) Progress() *explore.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Exploring reports whether an exploration is running
func (s *Session) Exploring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// begin claims the session for an exploration
func (s *Session) begin(cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrExplorationRunning
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	return nil
}

func (s *Session) end(result *explore.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result != nil {
		s.lastResult = result
	}
	if s.cancel != nil {
		s.cancel()
	}
	close(s.done)
	s.cancel = nil
	s.done = nil
}

// stop cancels a running exploration and returns a channel closed when it ends
func (s *Session) stop() (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return nil, ErrNotExploring
	}
	s.cancel()
	return s.done, nil
}

func (s *Session) setProgress(p explore.Progress) {
	s.mu.Lock()
	s.progress = &p
	s.mu.Unlock()
}

func (s *Session) setRoute(r *fastestpath.Route) {
	s.mu.Lock()
	s.lastRoute = r
	s.mu.Unlock()
}
