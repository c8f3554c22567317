package driver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/log"
)

// DefaultTickInterval is roughly one frame at 60Hz.
const DefaultTickInterval = 16 * time.Millisecond

var (
	ErrLoopStopped = errors.New("loop stopped")
	ErrLoopStarted = errors.New("loop already started")
)

// Frame receives a snapshot after every tick and command.
type Frame func(engine.Snapshot)

// LoopOptions contains options for creating a new Loop.
type LoopOptions struct {
	Engine         engine.Engine
	Clock          clock.Clock
	TickInterval   time.Duration
	OnFrame        Frame
	StopOnTerminal bool
	// Seed is stored in the recorded script; it does not affect the engine.
	Seed   uint64
	Logger *log.Logger
}

// Loop is a real-time driver for one engine. Ticks from the clock and
// commands from Send are handled one at a time, in the order they arrive,
// on the goroutine running Start.
type Loop struct {
	eng            engine.Engine
	clock          clock.Clock
	interval       time.Duration
	onFrame        Frame
	stopOnTerminal bool
	logger         *log.Logger

	commands chan engine.Command
	started  atomic.Bool
	done     chan struct{}
	start    time.Time

	mu     sync.Mutex
	script Script
}

func NewLoop(opts LoopOptions) (*Loop, error) {
	if opts.Engine == nil {
		return nil, errors.New("driver: engine is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Loop{
		eng:            opts.Engine,
		clock:          opts.Clock,
		interval:       opts.TickInterval,
		onFrame:        opts.OnFrame,
		stopOnTerminal: opts.StopOnTerminal,
		logger:         opts.Logger,
		commands:       make(chan engine.Command, 64),
		done:           make(chan struct{}),
		script:         Script{Seed: opts.Seed, Config: opts.Engine.Config()},
	}, nil
}

// Start runs the loop until ctx is done, a Quit command arrives, or, with
// StopOnTerminal, the game ends. Later calls return ErrLoopStarted.
func (l *Loop) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrLoopStarted
	}
	defer close(l.done)

	ticker := l.clock.Ticker(l.interval)
	defer ticker.Stop()

	l.start = l.clock.Now()
	l.tick(l.start)
	l.logger.Debug("loop started, tick every %s", l.interval)

	for {
		if l.stopOnTerminal && l.eng.IsTerminal() {
			l.logger.Info("game over: score=%d", l.eng.Score())
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			l.tick(t)
		case cmd := <-l.commands:
			if cmd == engine.Quit {
				l.record(func(s *Script) { s.addCommand(l.clock.Now().Sub(l.start), cmd) })
				l.logger.Debug("quit received")
				return nil
			}
			l.apply(cmd)
		}
	}
}

// Send queues a command for the loop.
func (l *Loop) Send(ctx context.Context, cmd engine.Command) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.commands <- cmd:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Start returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Script returns a copy of the inputs recorded so far.
func (l *Loop) Script() *Script {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.script
	out.Steps = append([]Step(nil), l.script.Steps...)
	return &out
}

func (l *Loop) tick(t time.Time) {
	l.eng.Tick(t)
	l.record(func(s *Script) { s.addTick(t.Sub(l.start)) })
	l.frame()
}

func (l *Loop) apply(cmd engine.Command) {
	ok := l.eng.Apply(cmd)
	l.record(func(s *Script) { s.addCommand(l.clock.Now().Sub(l.start), cmd) })
	if !ok {
		l.logger.Trace("command %s rejected", cmd)
	}
	l.frame()
}

func (l *Loop) record(fn func(*Script)) {
	l.mu.Lock()
	fn(&l.script)
	l.mu.Unlock()
}

func (l *Loop) frame() {
	if l.onFrame != nil {
		l.onFrame(l.eng.Snapshot())
	}
}
