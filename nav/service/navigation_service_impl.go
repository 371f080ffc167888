package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wricardo/mcp-training/arenanav/nav/config"
	"github.com/wricardo/mcp-training/arenanav/nav/descriptor"
	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/sensor"
	"go.uber.org/zap"
)

// Option configures the navigation service
type Option func(*navigationServiceImpl)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *navigationServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier pushes progress, route and map events to n
func WithNotifier(n Notifier) Option {
	return func(s *navigationServiceImpl) {
		s.notifier = n
	}
}

// navigationServiceImpl implements the NavigationService interface
type navigationServiceImpl struct {
	sessions SessionManager
	arenas   ArenaManager
	notifier Notifier
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNavigationService creates a new navigation service instance
func NewNavigationService(sessions SessionManager, arenas ArenaManager, opts ...Option) NavigationService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &navigationServiceImpl{
		sessions: sessions,
		arenas:   arenas,
		logger:   zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a session on the named arena, or the default arena
func (s *navigationServiceImpl) CreateSession(ctx context.Context, arenaID string) (*SessionInfo, error) {
	var arena *config.Arena
	var err error
	if arenaID != "" {
		arena, err = s.arenas.LoadArena(arenaID)
		if err != nil {
			if errors.Is(err, config.ErrArenaNotFound) {
				available, listErr := s.arenas.ListArenas()
				if listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, a := range available {
						ids = append(ids, a.ArenaID)
					}
					return nil, fmt.Errorf("arena '%s' not found. Available arenas: %v: %w", arenaID, ids, err)
				}
			}
			return nil, fmt.Errorf("failed to load arena %s: %w", arenaID, err)
		}
	} else {
		arena = s.arenas.GetDefault()
		arenaID = "default"
	}

	sess, err := s.sessions.Create("", arenaID, arena)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", zap.String("session", sess.ID), zap.String("arena", arenaID))
	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *navigationServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *navigationServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession stops any exploration and removes the session
func (s *navigationServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if sess, err := s.sessions.Get(sessionID); err == nil {
		if done, err := sess.stop(); err == nil {
			<-done
		}
	}
	return s.sessions.Delete(sessionID)
}

// ResetSession clears the explored map and returns the robot home
func (s *navigationServiceImpl) ResetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, release, err := s.claimSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess.Reset()
	s.save(sess)
	s.notify(sess.ID, EventMap, sess.Map.Snapshot())
	return sessionInfo(sess), nil
}

// Explore runs an exploration to completion on the caller's goroutine
func (s *navigationServiceImpl) Explore(ctx context.Context, sessionID string, req ExploreRequest) (*explore.Result, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	cfg := req.Config(sess.Arena.Exploration)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := sess.begin(cancel); err != nil {
		cancel()
		return nil, err
	}

	result, err := s.explore(runCtx, sess, cfg)
	sess.end(result)
	s.finish(sess, result, err)
	return result, err
}

// StartExploration runs an exploration on a worker goroutine. The run
// outlives the request and ends at a stop condition, StopExploration or Close.
func (s *navigationServiceImpl) StartExploration(ctx context.Context, sessionID string, req ExploreRequest) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	cfg := req.Config(sess.Arena.Exploration)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	if err := sess.begin(cancel); err != nil {
		cancel()
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, err := s.explore(runCtx, sess, cfg)
		sess.end(result)
		s.finish(sess, result, err)
	}()

	return sessionInfo(sess), nil
}

// StopExploration cancels a running exploration and waits for it to end
func (s *navigationServiceImpl) StopExploration(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	done, err := sess.stop()
	if err != nil {
		return nil, err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return sessionInfo(sess), nil
}

// GetState returns both maps, the pose and the latest progress
func (s *navigationServiceImpl) GetState(ctx context.Context, sessionID string) (*NavigationState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	return &NavigationState{
		SessionID: sess.ID,
		Map:       sess.Map.Snapshot(),
		Reference: sess.Reference.Snapshot(),
		Pose:      sess.Robot.Pose(),
		Exploring: sess.Exploring(),
		Progress:  sess.Progress(),
		Result:    sess.LastResult(),
		Route:     sess.LastRoute(),
	}, nil
}

// FastestPath plans from the robot's pose to the goal through the waypoint
func (s *navigationServiceImpl) FastestPath(ctx context.Context, sessionID string, req PathRequest) (*fastestpath.Route, error) {
	sess, release, err := s.claimSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	opts := sess.Arena.PlannerOptions()
	opts.AllowUnexplored = req.AllowUnexplored
	opts.Logger = s.logger
	planner, err := fastestpath.New(sess.Map, opts)
	if err != nil {
		return nil, err
	}

	waypoint := req.Waypoint
	if waypoint == nil {
		waypoint = sess.Arena.Waypoint
	}

	start := sess.Robot.Pose()
	var route fastestpath.Route
	if waypoint != nil {
		route, err = planner.PlanVia(start, *waypoint, sess.Map.Goal())
	} else {
		route, err = planner.Plan(start, sess.Map.Goal())
	}
	if err != nil {
		return nil, err
	}

	if req.Execute {
		sess.Robot.SetPose(route.End)
	}
	sess.setRoute(&route)
	s.save(sess)
	s.notify(sess.ID, EventRoute, route)

	s.logger.Info("fastest path planned",
		zap.String("session", sess.ID),
		zap.Stringer("start", start),
		zap.Int("cost", route.Cost),
		zap.String("instructions", route.Instructions))
	return &route, nil
}

// ExportDescriptor encodes the explored map
func (s *navigationServiceImpl) ExportDescriptor(ctx context.Context, sessionID string) (*DescriptorInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	d := descriptor.Encode(sess.Map)
	return &DescriptorInfo{
		Part1:      d.Part1,
		Part2:      d.Part2,
		Descriptor: d.String(),
		Legacy:     descriptor.EncodeLegacy(sess.Map),
		Coverage:   sess.Map.Coverage(),
	}, nil
}

// ImportDescriptor replaces the explored map with a descriptor
func (s *navigationServiceImpl) ImportDescriptor(ctx context.Context, sessionID, text string) (*SessionInfo, error) {
	sess, release, err := s.claimSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	d, err := descriptor.Parse(text)
	if err != nil {
		return nil, err
	}
	if err := descriptor.Decode(d, sess.Map); err != nil {
		return nil, err
	}

	s.save(sess)
	s.notify(sess.ID, EventMap, sess.Map.Snapshot())
	return sessionInfo(sess), nil
}

// SetObstacle edits the reference map the simulated sensors read from
func (s *navigationServiceImpl) SetObstacle(ctx context.Context, sessionID string, pos grid.Position, obstacle bool) (*SessionInfo, error) {
	sess, release, err := s.claimSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := sess.Reference.SetObstacle(pos.Row, pos.Col, obstacle); err != nil {
		return nil, err
	}

	s.save(sess)
	return sessionInfo(sess), nil
}

// ListArenas returns the available arena definitions
func (s *navigationServiceImpl) ListArenas(ctx context.Context) ([]*config.ArenaInfo, error) {
	return s.arenas.ListArenas()
}

// Close cancels every worker and waits for them to finish
func (s *navigationServiceImpl) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

// explore starts a fresh exploration from home against the reference map
func (s *navigationServiceImpl) explore(ctx context.Context, sess *Session, cfg explore.Config) (*explore.Result, error) {
	sess.Reset()

	logger := s.logger.With(zap.String("session", sess.ID))
	model := sensor.NewSimulated(sess.Reference, sess.Robot.Sensors())
	eng, err := explore.New(sess.Map, sess.Robot, model, cfg,
		explore.WithLogger(logger),
		explore.WithTurnPenalty(sess.Arena.PlannerOptions().TurnPenalty),
		explore.WithObserver(func(p explore.Progress) {
			sess.setProgress(p)
			s.notify(sess.ID, EventProgress, p)
		}),
	)
	if err != nil {
		return nil, err
	}

	result, err := eng.Run(ctx)
	return &result, err
}

func (s *navigationServiceImpl) finish(sess *Session, result *explore.Result, err error) {
	if err != nil {
		s.logger.Warn("exploration ended with error", zap.String("session", sess.ID), zap.Error(err))
	}
	if result != nil {
		s.logger.Info("exploration finished",
			zap.String("session", sess.ID),
			zap.String("reason", string(result.Reason)),
			zap.Int("steps", result.Steps),
			zap.Float64("coverage", result.Coverage),
			zap.Duration("elapsed", result.Elapsed))
		s.notify(sess.ID, EventFinished, result)
	}
	s.save(sess)
}

// session fetches a session and touches its access time
func (s *navigationServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	sess.Touch()
	return sess, nil
}

// claimSession holds an idle session for the length of an edit so that no
// exploration can start until release is called
func (s *navigationServiceImpl) claimSession(sessionID string) (*Session, func(), error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if err := sess.begin(func() {}); err != nil {
		return nil, nil, err
	}
	return sess, func() { sess.end(nil) }, nil
}

func (s *navigationServiceImpl) save(sess *Session) {
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to persist session", zap.String("session", sess.ID), zap.Error(err))
	}
}

func (s *navigationServiceImpl) notify(sessionID, event string, data any) {
	if s.notifier != nil {
		s.notifier.BroadcastEvent(sessionID, event, data)
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ArenaID:        sess.ArenaID,
		ArenaName:      sess.Arena.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		Rows:           sess.Map.Rows(),
		Cols:           sess.Map.Cols(),
		Pose:           sess.Robot.Pose(),
		Exploring:      sess.Exploring(),
		Explored:       sess.Map.ExploredCount(),
		Coverage:       sess.Map.Coverage(),
		Obstacles:      sess.Map.ObstacleCount(),
		Waypoint:       sess.Arena.Waypoint,
		LastResult:     sess.LastResult(),
	}
}
