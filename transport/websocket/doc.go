// Package websocket pushes navigation events to browser clients.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - Non-blocking event publishing for exploration workers
//   - Connection lifecycle management tied to a context
//
// Architecture:
//
// A central Hub owns every connection. Each client has a read pump that
// drains pongs and close frames and a write pump that forwards queued
// messages and sends pings. Hub satisfies service.Notifier, so the
// navigation service publishes progress, route and map events through it.
//
// Message Protocol:
//
// Outgoing messages are JSON objects:
//
//	{"session_id": "ab12cd34", "event": "exploration_progress", "data": {...}, "timestamp": "..."}
//
// State updates use the "state_update" event and carry a full
// NavigationState in the "state" field. Incoming messages are ignored.
//
// Session Integration:
//
// Clients choose a session with a query parameter (?sessionId=ab12cd34).
// Events are delivered only to clients of the same session.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(logger))
//	go hub.Run(ctx)
//
//	svc := service.NewNavigationService(sessions, arenas, service.WithNotifier(hub))
//
// Backpressure:
//
// Publishing never blocks. When the hub queue is full the message is
// dropped and logged; a client whose send buffer is full is disconnected.
package websocket
