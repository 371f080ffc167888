package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/arenanav/nav/config"
	"github.com/wricardo/mcp-training/arenanav/nav/descriptor"
	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/service"
	"github.com/wricardo/mcp-training/arenanav/nav/session"
	"github.com/wricardo/mcp-training/arenanav/transport/websocket"
	"go.uber.org/zap"
)

// Server represents the REST API server
type Server struct {
	service service.NavigationService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new API server. hub may be nil when no WebSocket
// clients are served.
func NewServer(navService service.NavigationService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: navService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")

	// Navigation
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/explore", s.handleExplore).Methods("POST")
	api.HandleFunc("/sessions/{id}/explore/stop", s.handleStopExploration).Methods("POST")
	api.HandleFunc("/sessions/{id}/fastest-path", s.handleFastestPath).Methods("POST")

	// Maps
	api.HandleFunc("/sessions/{id}/descriptor", s.handleExportDescriptor).Methods("GET")
	api.HandleFunc("/sessions/{id}/descriptor", s.handleImportDescriptor).Methods("POST")
	api.HandleFunc("/sessions/{id}/obstacles", s.handleSetObstacle).Methods("PUT")

	// Arenas
	api.HandleFunc("/arenas", s.handleListArenas).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrArenaNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionAlreadyExists),
		errors.Is(err, service.ErrExplorationRunning),
		errors.Is(err, service.ErrNotExploring):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, config.ErrInvalidArena),
		errors.Is(err, explore.ErrInvalidConfig),
		errors.Is(err, descriptor.ErrMalformedDescriptor),
		errors.Is(err, grid.ErrOutOfBounds),
		errors.Is(err, grid.ErrInvalidPlacement):
		return http.StatusBadRequest
	case errors.Is(err, fastestpath.ErrUnreachable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ArenaID string `json:"arena_id,omitempty"`
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	info, err := s.service.CreateSession(r.Context(), req.ArenaID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.logger.Info("session created", zap.String("session", info.ID), zap.String("arena", info.ArenaID))
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.ResetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Session reset successfully",
		"session": info,
	})
}

// Navigation Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// exploreRequest adds the async switch to the service request
type exploreRequest struct {
	service.ExploreRequest
	// Async starts a background run and returns immediately
	Async bool `json:"async,omitempty"`
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req exploreRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if req.Async {
		info, err := s.service.StartExploration(r.Context(), sessionID, req.ExploreRequest)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusAccepted, info)
		return
	}

	result, err := s.service.Explore(r.Context(), sessionID, req.ExploreRequest)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.logger.Info("exploration finished",
		zap.String("session", sessionID),
		zap.String("reason", string(result.Reason)),
		zap.Int("steps", result.Steps),
		zap.Float64("coverage", result.Coverage))
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleStopExploration(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.StopExploration(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleFastestPath(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.PathRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	route, err := s.service.FastestPath(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.logger.Info("fastest path",
		zap.String("session", sessionID),
		zap.Int("moves", route.Moves()),
		zap.Int("turns", route.Turns),
		zap.String("instructions", route.Instructions))
	respondJSON(w, http.StatusOK, route)
}

// Map Handlers

func (s *Server) handleExportDescriptor(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.ExportDescriptor(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleImportDescriptor(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Descriptor string `json:"descriptor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Descriptor) == "" {
		respondError(w, http.StatusBadRequest, "Descriptor is required")
		return
	}

	info, err := s.service.ImportDescriptor(r.Context(), sessionID, req.Descriptor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleSetObstacle(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Row      *int `json:"row"`
		Col      *int `json:"col"`
		Obstacle bool `json:"obstacle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Row == nil || req.Col == nil {
		respondError(w, http.StatusBadRequest, "row and col are required")
		return
	}

	pos := grid.Position{Row: *req.Row, Col: *req.Col}
	info, err := s.service.SetObstacle(r.Context(), sessionID, pos, req.Obstacle)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcastState(r, sessionID)
	respondJSON(w, http.StatusOK, info)
}

// Arena Handlers

func (s *Server) handleListArenas(w http.ResponseWriter, r *http.Request) {
	arenas, err := s.service.ListArenas(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, arenas)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	sessionID := query.Get("sessionId")
	if sessionID == "" {
		sessionID = query.Get("session")
	}
	if sessionID == "" {
		http.Error(w, "sessionId parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)

	// Registration is processed before any later broadcast
	s.broadcastState(r, sessionID)
}

// broadcastState pushes the full session state to WebSocket clients
func (s *Server) broadcastState(r *http.Request, sessionID string) {
	if s.hub == nil {
		return
	}
	state, err := s.service.GetState(r.Context(), sessionID)
	if err != nil {
		s.logger.Debug("state broadcast skipped", zap.String("session", sessionID), zap.Error(err))
		return
	}
	s.hub.BroadcastToSession(sessionID, state)
}
