package service

import (
	"context"
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string, seed uint64) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Command(ctx context.Context, sessionID, command string) (*CommandResult, error)
	BulkCommand(ctx context.Context, sessionID string, commands []string) (*BulkCommandResult, error)
	Advance(ctx context.Context, sessionID string, d time.Duration) (*AdvanceResult, error)
	Reset(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Game State
	GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.Config, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.Config, seed uint64) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles preset loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.Config, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.Config
}

// Session represents an active game session
type Session struct {
	ID       string
	ConfigID string
	Seed     uint64
	Engine   *engine.GameEngine
	Config   *engine.Config

	// GameTime is the session's virtual clock. Gravity only advances when
	// the service moves it forward.
	GameTime time.Time
	History  []HistoryEntry

	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Elapsed returns the virtual time since the session started.
func (s *Session) Elapsed() time.Duration {
	return s.GameTime.Sub(s.CreatedAt)
}
