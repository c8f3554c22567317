package driver

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

const (
	DefaultMaxCommands  = 10000
	DefaultCommandDelay = 50 * time.Millisecond
)

// SimOptions configures a headless game.
type SimOptions struct {
	Config engine.Config
	Seed   uint64
	Player Player
	// MaxCommands caps the number of commands sent.
	MaxCommands int
	// CommandDelay is the virtual time between two commands. The clock
	// ticks after every command, so gravity keeps running.
	CommandDelay time.Duration
	// Source overrides the configured randomizer.
	Source engine.KindSource
}

// Result summarizes a simulated game.
type Result struct {
	Seed       uint64          `json:"seed"`
	Preset     string          `json:"preset"`
	Player     string          `json:"player"`
	Score      int             `json:"score"`
	Lines      int             `json:"lines"`
	Pieces     int             `json:"pieces"`
	Commands   int             `json:"commands"`
	Ticks      int             `json:"ticks"`
	Terminal   bool            `json:"terminal"`
	GameTimeMs int64           `json:"game_time_ms"`
	Verified   *bool           `json:"verified,omitempty"`
	Final      engine.Snapshot `json:"-"`
}

// Simulate plays one game on virtual time until it ends or the command
// budget runs out. The returned script replays to the same final state.
func Simulate(ctx context.Context, opts SimOptions) (*Result, *Script, error) {
	if opts.Player == nil {
		return nil, nil, errors.New("driver: player is required")
	}
	if opts.MaxCommands <= 0 {
		opts.MaxCommands = DefaultMaxCommands
	}
	if opts.CommandDelay <= 0 {
		opts.CommandDelay = DefaultCommandDelay
	}
	src := opts.Source
	if src == nil {
		src = opts.Config.NewSource(opts.Seed)
	}

	eng, err := engine.NewEngine(opts.Config, src)
	if err != nil {
		return nil, nil, err
	}

	script := &Script{Seed: opts.Seed, Config: opts.Config}
	res := &Result{Seed: opts.Seed, Preset: opts.Config.Name, Player: opts.Player.Name()}

	now := Epoch
	tick := func() {
		eng.Tick(now)
		script.addTick(now.Sub(Epoch))
		res.Ticks++
	}
	tick()

	for res.Commands < opts.MaxCommands && !eng.IsTerminal() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		plan := opts.Player.Plan(eng)
		if len(plan) == 0 {
			now = now.Add(opts.CommandDelay)
			tick()
			continue
		}

		pieces := eng.Pieces()
		for _, cmd := range plan {
			// Gravity may lock the piece before the plan finishes.
			if eng.State() != engine.StateFalling || eng.Pieces() != pieces {
				break
			}
			eng.Apply(cmd)
			script.addCommand(now.Sub(Epoch), cmd)
			res.Commands++

			now = now.Add(opts.CommandDelay)
			tick()
			if res.Commands >= opts.MaxCommands {
				break
			}
		}
	}

	res.Final = eng.Snapshot()
	res.Score = res.Final.Score
	res.Lines = res.Final.Lines
	res.Pieces = res.Final.Pieces
	res.Terminal = res.Final.Terminal
	res.GameTimeMs = now.Sub(Epoch).Milliseconds()
	return res, script, nil
}

// Verify replays script and reports whether it reaches the same final
// snapshot as res.
func Verify(res *Result, script *Script, src engine.KindSource) (bool, error) {
	snap, err := Replay(script, src)
	if err != nil {
		return false, err
	}
	ok := snapshotsEqual(snap, res.Final)
	res.Verified = &ok
	return ok, nil
}

func snapshotsEqual(a, b engine.Snapshot) bool {
	if a.Width != b.Width || a.Height != b.Height || a.Score != b.Score ||
		a.Lines != b.Lines || a.Pieces != b.Pieces || a.State != b.State {
		return false
	}
	if (a.Active == nil) != (b.Active == nil) {
		return false
	}
	if a.Active != nil && *a.Active != *b.Active {
		return false
	}
	for i := range a.Grid {
		if a.Grid[i] != b.Grid[i] {
			return false
		}
	}
	return true
}
