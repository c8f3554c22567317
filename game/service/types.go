package service

import (
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

// Event types reported in command, advance and reset results.
const (
	EventSpawn     = "spawn"
	EventLock      = "lock"
	EventLineClear = "line_clear"
	EventGameOver  = "game_over"
	EventReset     = "reset"
)

// History actions.
const (
	ActionCommand = "command"
	ActionAdvance = "advance"
	ActionReset   = "reset"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string           `json:"id"`
	ConfigName     string           `json:"config_name"`
	Seed           uint64           `json:"seed"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
	GameTimeMs     int64            `json:"game_time_ms"`
	Snapshot       *engine.Snapshot `json:"snapshot"`
	Config         *engine.Config   `json:"config"`
	Events         []GameEvent      `json:"events,omitempty"`
}

// CommandResult contains the result of a single command
type CommandResult struct {
	Success  bool             `json:"success"`
	Command  string           `json:"command"`
	Snapshot *engine.Snapshot `json:"snapshot"`
	Message  string           `json:"message"`
	Events   []GameEvent      `json:"events,omitempty"`
}

// BulkCommandResult contains the result of a command batch
type BulkCommandResult struct {
	Executed         int              `json:"executed"`
	Requested        int              `json:"requested"`
	Accepted         int              `json:"accepted"`
	Rejected         int              `json:"rejected"`
	Snapshot         *engine.Snapshot `json:"snapshot"`
	Events           []GameEvent      `json:"events"`
	StoppedReason    string           `json:"stopped_reason,omitempty"`
	StoppedOnCommand int              `json:"stopped_on_command,omitempty"` // 1-based
	ScoreDelta       int              `json:"score_delta"`
	LinesDelta       int              `json:"lines_delta"`
	GameOver         bool             `json:"game_over"`
	Steps            []StepInfo       `json:"steps,omitempty"`
}

// StepInfo is a compact record for each command in a batch
type StepInfo struct {
	Idx      int    `json:"idx"`
	Command  string `json:"command"`
	Accepted bool   `json:"accepted"`
	Score    int    `json:"score"`
	Lines    int    `json:"lines"`
}

// AdvanceResult reports a run of gravity ticks on the session clock
type AdvanceResult struct {
	RequestedMs int64            `json:"requested_ms"`
	ElapsedMs   int64            `json:"elapsed_ms"`
	Ticks       int              `json:"ticks"`
	Falls       int              `json:"falls"`
	Snapshot    *engine.Snapshot `json:"snapshot"`
	Events      []GameEvent      `json:"events,omitempty"`
}

// GameEvent represents something that happened to the field or the score
type GameEvent struct {
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	GameTimeMs int64     `json:"game_time_ms"`
	Kind       string    `json:"kind,omitempty"`
	Lines      int       `json:"lines,omitempty"`
	Score      int       `json:"score"`
}

// HistoryEntry records one command, advance or reset
type HistoryEntry struct {
	Seq        int       `json:"seq"`
	Action     string    `json:"action"`
	Command    string    `json:"command,omitempty"`
	AdvanceMs  int64     `json:"advance_ms,omitempty"`
	Accepted   bool      `json:"accepted"`
	Score      int       `json:"score"`
	Lines      int       `json:"lines"`
	Pieces     int       `json:"pieces"`
	GameTimeMs int64     `json:"game_time_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// HistoryOptions configures history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated history
type HistoryResponse struct {
	Entries      []HistoryEntry `json:"entries"`
	TotalEntries int            `json:"total_entries"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	TotalPages   int            `json:"total_pages"`
	HasNext      bool           `json:"has_next"`
	HasPrevious  bool           `json:"has_previous"`
}

// ConfigInfo provides information about a game preset
type ConfigInfo struct {
	Filename       string `json:"filename,omitempty"`
	ConfigID       string `json:"config_id"` // The identifier to use for session creation
	Name           string `json:"name"`
	Description    string `json:"description"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	BaseIntervalMs int    `json:"base_interval_ms"`
	Randomizer     string `json:"randomizer"`
	DeferSpawn     bool   `json:"defer_spawn,omitempty"`
}
