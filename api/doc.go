// Package api provides HTTP REST handlers for the arena navigator.
//
// The api package implements:
//   - Session management endpoints
//   - Synchronous and background exploration
//   - Fastest path planning
//   - Map descriptor import and export
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"arena_id": "sample"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session summary
//   - DELETE /api/sessions/{id} - Delete a session
//   - POST /api/sessions/{id}/reset - Forget the explored map and return home
//
// Navigation:
//   - GET /api/sessions/{id}/state - Full state with both maps
//   - POST /api/sessions/{id}/explore - Explore; "async": true returns 202
//   - POST /api/sessions/{id}/explore/stop - Stop a background run
//   - POST /api/sessions/{id}/fastest-path - Plan (and optionally execute) a route
//
// Maps:
//   - GET /api/sessions/{id}/descriptor - Export "part1,part2"
//   - POST /api/sessions/{id}/descriptor - Import {"descriptor": "..."}
//   - PUT /api/sessions/{id}/obstacles - Edit the reference map {"row", "col", "obstacle"}
//
// Arenas:
//   - GET /api/arenas - List arena definitions
//
// WebSocket:
//   - GET /ws?sessionId={id} - Stream session events
//
// Explore requests accept optional overrides of the arena defaults:
//
//	{
//	  "coverage_limit": 0.8,
//	  "time_limit_seconds": 120,
//	  "max_steps": 500,
//	  "step_delay_ms": 50,
//	  "return_home": true,
//	  "async": false
//	}
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown sessions and arenas
// map to 404, conflicting exploration state to 409, invalid input to 400
// and unreachable destinations to 422.
package api
