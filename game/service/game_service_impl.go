package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/log"
)

const (
	// DefaultTickStep is the granularity Advance ticks the engine at.
	DefaultTickStep = 10 * time.Millisecond
	// MaxAdvance bounds a single Advance call.
	MaxAdvance = 10 * time.Minute
	// MaxBulkCommands bounds a single BulkCommand call.
	MaxBulkCommands = 500
)

var (
	// ErrConfigNotFound is returned by ConfigManager.LoadConfig for unknown presets.
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrTooManyCommands = errors.New("too many commands")
)

// Option configures a game service.
type Option func(*gameServiceImpl)

// WithClock sets the wall clock used for event and history timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *gameServiceImpl) { s.clock = c }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = l }
}

// WithTickStep sets the Advance granularity.
func WithTickStep(d time.Duration) Option {
	return func(s *gameServiceImpl) {
		if d > 0 {
			s.tickStep = d
		}
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	clock    clock.Clock
	logger   *log.Logger
	tickStep time.Duration
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		clock:    clock.New(),
		logger:   log.Default(),
		tickStep: DefaultTickStep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given display name
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session and spawns its first piece.
// A zero seed picks a random one.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, seed uint64) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.Config
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s': %w. Available configs: %v", configName, err, configIDs)
				}
				return nil, fmt.Errorf("config '%s': %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}
	for seed == 0 {
		seed = rand.Uint64()
	}

	sess, err := s.sessions.Create("", configID, config, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.GameTime = sess.CreatedAt

	events := s.tick(sess)
	s.logger.Info("session %s created with config %s seed %d", sess.ID, configID, seed)

	info := s.sessionInfo(sess)
	info.Events = events
	return info, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Info("session %s deleted", sessionID)
	return nil
}

// Command applies a single player command
func (s *gameServiceImpl) Command(ctx context.Context, sessionID, command string) (*CommandResult, error) {
	cmd, err := engine.ParseCommand(command)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	ok, events := s.apply(sess, cmd)
	snap := sess.Engine.Snapshot()
	s.logger.Debug("session %s: %s accepted=%v score=%d", sess.ID, cmd, ok, snap.Score)

	return &CommandResult{
		Success:  ok,
		Command:  cmd.String(),
		Snapshot: &snap,
		Message:  commandMessage(cmd, ok, &snap),
		Events:   events,
	}, nil
}

// BulkCommand applies commands in order and stops early when the game ends.
// Rejected moves do not stop the batch.
func (s *gameServiceImpl) BulkCommand(ctx context.Context, sessionID string, commands []string) (*BulkCommandResult, error) {
	if len(commands) > MaxBulkCommands {
		return nil, fmt.Errorf("%w: %d exceeds limit %d", ErrTooManyCommands, len(commands), MaxBulkCommands)
	}
	cmds := make([]engine.Command, 0, len(commands))
	for i, name := range commands {
		cmd, err := engine.ParseCommand(name)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i+1, err)
		}
		cmds = append(cmds, cmd)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	start := sess.Engine.Snapshot()
	result := &BulkCommandResult{
		Requested: len(cmds),
		Events:    []GameEvent{},
		Steps:     make([]StepInfo, 0, len(cmds)),
	}

	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			result.StoppedReason = "cancelled"
			result.StoppedOnCommand = i + 1
			break
		}
		if sess.Engine.IsTerminal() {
			result.StoppedReason = "game_over"
			result.StoppedOnCommand = i + 1
			break
		}
		if cmd == engine.Quit {
			result.StoppedReason = "quit"
			result.StoppedOnCommand = i + 1
			break
		}

		ok, events := s.apply(sess, cmd)
		result.Executed++
		if ok {
			result.Accepted++
		} else {
			result.Rejected++
		}
		result.Events = append(result.Events, events...)
		result.Steps = append(result.Steps, StepInfo{
			Idx:      i,
			Command:  cmd.String(),
			Accepted: ok,
			Score:    sess.Engine.Score(),
			Lines:    sess.Engine.Lines(),
		})
	}

	end := sess.Engine.Snapshot()
	result.Snapshot = &end
	result.ScoreDelta = end.Score - start.Score
	result.LinesDelta = end.Lines - start.Lines
	result.GameOver = end.Terminal
	if result.GameOver && result.StoppedReason == "" && result.Executed == len(cmds) && len(cmds) > 0 {
		result.StoppedReason = "game_over"
		result.StoppedOnCommand = len(cmds)
	}

	s.logger.Debug("session %s: bulk %d/%d accepted=%d score=%d", sess.ID, result.Executed, result.Requested, result.Accepted, end.Score)
	return result, nil
}

// Advance moves the session clock forward by d, ticking the engine every
// tick step so gravity, spawns and locks happen as they would in real time.
func (s *gameServiceImpl) Advance(ctx context.Context, sessionID string, d time.Duration) (*AdvanceResult, error) {
	if d <= 0 || d > MaxAdvance {
		return nil, fmt.Errorf("%w: %s must be in (0, %s]", ErrInvalidDuration, d, MaxAdvance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	result := &AdvanceResult{RequestedMs: d.Milliseconds()}
	var elapsed time.Duration
	for elapsed < d && !sess.Engine.IsTerminal() {
		if result.Ticks%1000 == 0 {
			if err := ctx.Err(); err != nil {
				break
			}
		}
		step := s.tickStep
		if remaining := d - elapsed; remaining < step {
			step = remaining
		}
		sess.GameTime = sess.GameTime.Add(step)
		elapsed += step

		before := sess.Engine.Snapshot()
		sess.Engine.Tick(sess.GameTime)
		after := sess.Engine.Snapshot()
		if before.Active != nil && after.Active != nil && after.Pieces == before.Pieces && after.Active.Cells != before.Active.Cells {
			result.Falls++
		}
		result.Events = append(result.Events, s.diffEvents(sess, before, after)...)
		result.Ticks++
	}

	snap := sess.Engine.Snapshot()
	result.ElapsedMs = elapsed.Milliseconds()
	result.Snapshot = &snap
	s.record(sess, HistoryEntry{Action: ActionAdvance, AdvanceMs: elapsed.Milliseconds(), Accepted: elapsed > 0})

	s.logger.Debug("session %s: advanced %s in %d ticks", sess.ID, elapsed, result.Ticks)
	return result, nil
}

// Reset clears the field and score and deals again from the session seed
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.Reset()
	events := []GameEvent{{
		Type:       EventReset,
		Message:    "Field cleared and score reset",
		Timestamp:  s.clock.Now(),
		GameTimeMs: sess.Elapsed().Milliseconds(),
	}}
	events = append(events, s.tick(sess)...)
	s.record(sess, HistoryEntry{Action: ActionReset, Accepted: true})
	s.logger.Info("session %s reset", sess.ID)

	info := s.sessionInfo(sess)
	info.Events = events
	return info, nil
}

// GetSnapshot returns the current game snapshot
func (s *gameServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	snap := sess.Engine.Snapshot()
	return &snap, nil
}

// GetHistory returns paginated session history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.History
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	entries := []HistoryEntry{}
	if opts.Order == "desc" {
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			entries = append(entries, history[i])
		}
	} else if start < total {
		entries = append(entries, history[start:end]...)
	}

	return &HistoryResponse{
		Entries:      entries,
		TotalEntries: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// ListConfigs returns all available presets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific preset
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.Config, error) {
	return s.configs.LoadConfig(configName)
}

func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	return sess, nil
}

// tick runs one engine tick at the current session time.
func (s *gameServiceImpl) tick(sess *Session) []GameEvent {
	before := sess.Engine.Snapshot()
	sess.Engine.Tick(sess.GameTime)
	return s.diffEvents(sess, before, sess.Engine.Snapshot())
}

// apply runs one command. When no piece is active, the pending spawn is
// taken first at the current session time.
func (s *gameServiceImpl) apply(sess *Session, cmd engine.Command) (bool, []GameEvent) {
	var events []GameEvent
	if sess.Engine.State() == engine.StateNoActivePiece {
		events = s.tick(sess)
	}

	before := sess.Engine.Snapshot()
	ok := sess.Engine.Apply(cmd)
	events = append(events, s.diffEvents(sess, before, sess.Engine.Snapshot())...)

	s.record(sess, HistoryEntry{Action: ActionCommand, Command: cmd.String(), Accepted: ok})
	return ok, events
}

func (s *gameServiceImpl) record(sess *Session, entry HistoryEntry) {
	entry.Seq = len(sess.History) + 1
	entry.Score = sess.Engine.Score()
	entry.Lines = sess.Engine.Lines()
	entry.Pieces = sess.Engine.Snapshot().Pieces
	entry.GameTimeMs = sess.Elapsed().Milliseconds()
	entry.Timestamp = s.clock.Now()
	sess.History = append(sess.History, entry)
}

// diffEvents derives events by comparing snapshots taken around one engine
// call. A single call locks at most one piece.
func (s *gameServiceImpl) diffEvents(sess *Session, before, after engine.Snapshot) []GameEvent {
	now := s.clock.Now()
	gameMs := sess.Elapsed().Milliseconds()
	var events []GameEvent

	locked := after.Pieces > before.Pieces
	if locked {
		k := ""
		if before.Active != nil {
			k = before.Active.Kind.String()
		}
		events = append(events, GameEvent{
			Type:       EventLock,
			Message:    fmt.Sprintf("Piece %d locked", after.Pieces),
			Timestamp:  now,
			GameTimeMs: gameMs,
			Kind:       k,
			Score:      after.Score,
		})
	}

	if n := after.Lines - before.Lines; n > 0 {
		events = append(events, GameEvent{
			Type:       EventLineClear,
			Message:    fmt.Sprintf("Cleared %d line(s) for %d points", n, after.Score-before.Score),
			Timestamp:  now,
			GameTimeMs: gameMs,
			Lines:      n,
			Score:      after.Score,
		})
	}

	if after.Active != nil && (before.Active == nil || locked) {
		events = append(events, GameEvent{
			Type:       EventSpawn,
			Message:    fmt.Sprintf("%s piece spawned", after.Active.Kind),
			Timestamp:  now,
			GameTimeMs: gameMs,
			Kind:       after.Active.Kind.String(),
			Score:      after.Score,
		})
	}

	if after.Terminal && !before.Terminal {
		events = append(events, GameEvent{
			Type:       EventGameOver,
			Message:    fmt.Sprintf("Game over with %d points after %d pieces", after.Score, after.Pieces),
			Timestamp:  now,
			GameTimeMs: gameMs,
			Score:      after.Score,
		})
		s.logger.Info("session %s: game over score=%d lines=%d", sess.ID, after.Score, after.Lines)
	}

	return events
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	snap := sess.Engine.Snapshot()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		Seed:           sess.Seed,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameTimeMs:     sess.Elapsed().Milliseconds(),
		Snapshot:       &snap,
		Config:         sess.Config,
	}
}

func commandMessage(cmd engine.Command, ok bool, snap *engine.Snapshot) string {
	switch {
	case snap.Terminal:
		return fmt.Sprintf("Game over. Final score %d", snap.Score)
	case cmd == engine.Quit:
		return "quit is handled by the client; the session stays open"
	case !ok:
		return fmt.Sprintf("%s blocked", cmd)
	default:
		return fmt.Sprintf("%s ok", cmd)
	}
}
