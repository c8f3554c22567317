package engine

import (
	"errors"
	"fmt"
	"time"
)

// Engine is the contract drivers and adapters use to run one game.
type Engine interface {
	// Clock and input
	Tick(now time.Time)
	Apply(cmd Command) bool

	// Read-only views
	Snapshot() Snapshot
	State() State
	Score() int
	IsTerminal() bool
	ActivePiece() Piece
	Field() *Field
	Config() Config

	// Lifecycle
	Reset()
}

// GameEngine implements Engine. It is not safe for concurrent use: a single
// driver calls Tick and Apply in arrival order.
type GameEngine struct {
	cfg    Config
	source KindSource

	field    *Field
	active   Piece
	state    State
	score    int
	lines    int
	pieces   int
	lastFall time.Time
	now      time.Time
}

// NewEngine creates an engine for the given rules. Pieces are drawn from
// src, which must be non-nil so runs stay reproducible.
func NewEngine(cfg Config, src KindSource) (*GameEngine, error) {
	if err := ValidateGameConfig(cfg); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.New("engine: kind source is required")
	}

	e := &GameEngine{cfg: cfg, source: src}
	e.clear()
	return e, nil
}

// NewEngineWithDefaults creates an engine with DefaultConfig and a source
// seeded with seed.
func NewEngineWithDefaults(seed uint64) *GameEngine {
	cfg := DefaultConfig()
	e := &GameEngine{cfg: cfg, source: cfg.NewSource(seed)}
	e.clear()
	return e
}

// ValidateGameConfig wraps ValidateConfig with the engine prefix.
func ValidateGameConfig(cfg Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("engine: invalid config: %w", err)
	}
	return nil
}

// Reset empties the field and clears score, keeping the rules. A source
// implementing Rewinder starts its sequence over.
func (e *GameEngine) Reset() {
	if r, ok := e.source.(Rewinder); ok {
		r.Rewind()
	}
	e.clear()
}

func (e *GameEngine) clear() {
	e.field = NewField(e.cfg.Width, e.cfg.Height)
	e.active = NoPiece()
	e.state = StateNoActivePiece
	e.score = 0
	e.lines = 0
	e.pieces = 0
	e.lastFall = time.Time{}
	e.now = time.Time{}
}

// Tick advances the gravity clock to now. With no active piece it spawns
// one; while falling it moves the piece down once the interval since the
// last fall has elapsed, locking it when it cannot move.
func (e *GameEngine) Tick(now time.Time) {
	if e.state == StateTerminal {
		return
	}
	e.now = now

	if e.state == StateNoActivePiece {
		e.spawnNext()
		return
	}

	if e.lastFall.IsZero() {
		e.lastFall = now
		return
	}
	if now.Sub(e.lastFall) > e.cfg.Interval(e.score) {
		e.stepDown()
	}
}

// Apply executes a player command against the active piece. It reports
// whether the engine state changed; rejected moves and rotations are
// dropped and report false. Commands are ignored once the game is over or
// while no piece is active.
func (e *GameEngine) Apply(cmd Command) bool {
	if e.state != StateFalling {
		return false
	}

	switch cmd {
	case MoveLeft:
		return e.try(e.active.Left())
	case MoveRight:
		return e.try(e.active.Right())
	case RotateCW:
		return e.try(e.active.RotateCW())
	case RotateCCW:
		return e.try(e.active.RotateCCW())
	case SoftDrop:
		e.stepDown()
		return true
	case HardDrop:
		for e.try(e.active.Down()) {
		}
		e.lockAndSettle()
		return true
	default:
		// Quit belongs to the driver.
		return false
	}
}

// ForceSpawn installs a piece of kind k at the spawn point, replacing the
// source's choice. It follows the same legality rules as a regular spawn
// and does nothing while a piece is already falling.
func (e *GameEngine) ForceSpawn(k Kind) bool {
	if e.state != StateNoActivePiece || k == KindEmpty {
		return false
	}
	return e.install(k)
}

// try installs p as the active piece if it fits.
func (e *GameEngine) try(p Piece) bool {
	if !e.field.Fits(p) {
		return false
	}
	e.active = p
	return true
}

// stepDown is one gravity step: move down a row or lock in place.
func (e *GameEngine) stepDown() {
	if e.try(e.active.Down()) {
		e.lastFall = e.now
		return
	}
	e.lockAndSettle()
}

func (e *GameEngine) lockAndSettle() {
	e.field.Lock(e.active)
	e.pieces++

	cleared := e.field.ClearCompletedLines()
	e.lines += cleared
	e.score += cleared * cleared

	e.active = NoPiece()
	e.state = StateNoActivePiece
	if !e.cfg.DeferSpawn {
		e.spawnNext()
	}
}

func (e *GameEngine) spawnNext() bool {
	return e.install(e.source.Next())
}

func (e *GameEngine) install(k Kind) bool {
	x, y := e.cfg.SpawnPoint()
	p := Spawn(k, x, y)
	if !e.field.Fits(p) {
		e.active = NoPiece()
		e.state = StateTerminal
		return false
	}
	e.active = p
	e.state = StateFalling
	e.lastFall = e.now
	return true
}

// Snapshot returns a copy of everything a renderer needs.
func (e *GameEngine) Snapshot() Snapshot {
	s := Snapshot{
		Width:    e.field.Width(),
		Height:   e.field.Height(),
		Grid:     e.field.Cells(),
		Score:    e.score,
		Lines:    e.lines,
		Pieces:   e.pieces,
		Terminal: e.state == StateTerminal,
		State:    e.state,
		Interval: e.cfg.Interval(e.score),
	}
	if !e.active.IsEmpty() {
		s.Active = &ActivePiece{Kind: e.active.Kind, Cells: e.active.Cells()}
	}
	return s
}

// State returns the current phase.
func (e *GameEngine) State() State {
	return e.state
}

// Score returns the current score.
func (e *GameEngine) Score() int {
	return e.score
}

// Lines returns the total rows cleared this game.
func (e *GameEngine) Lines() int {
	return e.lines
}

// Pieces returns the number of pieces locked this game.
func (e *GameEngine) Pieces() int {
	return e.pieces
}

// IsTerminal reports whether the game is over.
func (e *GameEngine) IsTerminal() bool {
	return e.state == StateTerminal
}

// ActivePiece returns the falling piece, or the sentinel.
func (e *GameEngine) ActivePiece() Piece {
	return e.active
}

// Field returns a copy of the settled cells.
func (e *GameEngine) Field() *Field {
	return e.field.Clone()
}

// Config returns the rules this engine runs with.
func (e *GameEngine) Config() Config {
	return e.cfg
}
