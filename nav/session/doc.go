// Package session provides session storage for the navigator service.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Session ID generation
//   - Optional JSON file persistence
//   - Cleanup of idle sessions
//
// Core Types:
//
// Manager keeps sessions in memory keyed by lower-cased ID and falls back
// to its SessionPersistence when a session is not loaded. FilePersistence
// writes one JSON document per session under a directory.
//
// Session Identifiers:
//
// Generated IDs are the first eight hex characters of a random UUID.
// Lookups are case-insensitive.
//
// Persisted Form:
//
// A persisted session stores its arena ID, the robot pose, the last
// exploration result and route, and both the explored and reference maps
// as map descriptors ("part1,part2"). Loading rebuilds the session from its
// arena and decodes both descriptors into fresh maps.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", arenas)
//	manager := session.NewManager(session.WithPersistence(persistence))
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", "sample", arena)
package session
