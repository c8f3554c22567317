package session

import (
	"context"
	"time"
)

// StartCleanup removes sessions idle for longer than maxAge every interval
// until ctx is done. It blocks; run it in its own goroutine.
func (m *Manager) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpiredSessions(maxAge)
		}
	}
}
