package driver

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/wricardo/blockfall/game/engine"
)

// Player decides what to do with the active piece.
type Player interface {
	Name() string
	// Plan returns the next commands for the active piece. An empty plan
	// means wait for the clock.
	Plan(eng engine.Engine) []engine.Command
}

// NewPlayer builds a player by name: "random" or "greedy".
func NewPlayer(name string, seed uint64) (Player, error) {
	switch name {
	case "random":
		return NewRandomPlayer(seed), nil
	case "greedy", "":
		return NewGreedyPlayer(), nil
	default:
		return nil, fmt.Errorf("unknown player %q", name)
	}
}

// RandomPlayer presses one random key per plan. Hard drops are rare so
// pieces get moved around before they land.
type RandomPlayer struct {
	rng *rand.Rand
}

var randomMoves = []engine.Command{
	engine.MoveLeft, engine.MoveLeft,
	engine.MoveRight, engine.MoveRight,
	engine.RotateCW, engine.RotateCCW,
	engine.SoftDrop, engine.SoftDrop,
	engine.HardDrop,
}

func NewRandomPlayer(seed uint64) *RandomPlayer {
	return &RandomPlayer{rng: rand.New(rand.NewPCG(seed, ^seed))}
}

func (p *RandomPlayer) Name() string { return "random" }

func (p *RandomPlayer) Plan(eng engine.Engine) []engine.Command {
	if eng.State() != engine.StateFalling {
		return nil
	}
	return []engine.Command{randomMoves[p.rng.IntN(len(randomMoves))]}
}

// Weights scores a settled field after a placement. Higher is better.
type Weights struct {
	Height    float64
	Lines     float64
	Holes     float64
	Bumpiness float64
}

// DefaultWeights favour flat, hole-free stacks.
var DefaultWeights = Weights{
	Height:    -0.510066,
	Lines:     0.760666,
	Holes:     -0.35663,
	Bumpiness: -0.184483,
}

// GreedyPlayer tries every reachable rotation and column for the active
// piece, drops it, and keeps the placement whose resulting field scores
// best. Only placements reachable by plain rotations followed by plain
// sideways moves are considered.
type GreedyPlayer struct {
	Weights Weights
}

func NewGreedyPlayer() *GreedyPlayer {
	return &GreedyPlayer{Weights: DefaultWeights}
}

func (p *GreedyPlayer) Name() string { return "greedy" }

// Placement is one candidate landing spot.
type Placement struct {
	Rotations int
	Shift     int
	Score     float64
	Lines     int
}

// Commands returns the inputs that reach the placement and drop it.
func (pl Placement) Commands() []engine.Command {
	cmds := make([]engine.Command, 0, pl.Rotations+abs(pl.Shift)+1)
	for i := 0; i < pl.Rotations; i++ {
		cmds = append(cmds, engine.RotateCW)
	}
	move := engine.MoveRight
	if pl.Shift < 0 {
		move = engine.MoveLeft
	}
	for i := 0; i < abs(pl.Shift); i++ {
		cmds = append(cmds, move)
	}
	return append(cmds, engine.HardDrop)
}

func (p *GreedyPlayer) Plan(eng engine.Engine) []engine.Command {
	if eng.State() != engine.StateFalling {
		return nil
	}
	best, ok := p.Best(eng.Field(), eng.ActivePiece())
	if !ok {
		return []engine.Command{engine.HardDrop}
	}
	return best.Commands()
}

// Best searches placements for piece on field.
func (p *GreedyPlayer) Best(field *engine.Field, piece engine.Piece) (Placement, bool) {
	best := Placement{Score: math.Inf(-1)}
	found := false

	rotated := piece
	for r := 0; r < 4; r++ {
		if r > 0 {
			rotated = rotated.RotateCW()
			if !field.Fits(rotated) {
				break
			}
		}

		consider := func(q engine.Piece, shift int) {
			score, lines := p.evaluate(field, q)
			if !found || score > best.Score {
				best = Placement{Rotations: r, Shift: shift, Score: score, Lines: lines}
				found = true
			}
		}

		consider(rotated, 0)
		for _, dir := range []int{-1, 1} {
			q := rotated
			for shift := dir; ; shift += dir {
				q = q.Translate(dir, 0)
				if !field.Fits(q) {
					break
				}
				consider(q, shift)
			}
		}
	}
	return best, found
}

func (p *GreedyPlayer) evaluate(field *engine.Field, q engine.Piece) (float64, int) {
	landed := q.Translate(0, -engine.DropDistance(field, q))
	f := field.Clone()
	f.Lock(landed)
	lines := f.ClearCompletedLines()

	heights := engine.ColumnHeights(f)
	total := 0
	for _, h := range heights {
		total += h
	}

	w := p.Weights
	score := w.Height*float64(total) +
		w.Lines*float64(lines) +
		w.Holes*float64(engine.CountHoles(f)) +
		w.Bumpiness*float64(engine.Bumpiness(heights))
	return score, lines
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
