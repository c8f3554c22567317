// Package session provides in-memory session management for blockfall.
//
// Manager stores one service.Session per game, each with its own engine,
// keyed by a short case-insensitive ID derived from a random UUID. All
// methods are safe for concurrent use; the engine inside a session is not,
// and callers serialize access to it (the game service does so with its own
// mutex).
//
// Timestamps come from an injectable clock so expiry can be tested without
// sleeping:
//
//	mock := clock.NewMock()
//	manager := session.NewManagerWithClock(mock)
//	sess, _ := manager.Create("", "classic", &cfg, 42)
//	mock.Add(time.Hour)
//	manager.CleanupExpiredSessions(30 * time.Minute) // removes sess
//
// Sessions are never written to disk.
package session
