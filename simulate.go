package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/blockfall/game/config"
	"github.com/wricardo/blockfall/game/driver"
	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/log"
	"github.com/wricardo/blockfall/transport/mcp"
)

// gameFlags returns fresh flags for the commands that play games.
func gameFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "preset", Value: config.DefaultConfigID, Usage: "preset to play"},
		&cli.Uint64Flag{Name: "seed", Usage: "seed of the first game (0 picks one)"},
		&cli.StringFlag{Name: "player", Value: "greedy", Usage: "random or greedy"},
	}
}

// simulateSummary is the JSON report of a simulate run.
type simulateSummary struct {
	Preset    string           `json:"preset"`
	Player    string           `json:"player"`
	Games     int              `json:"games"`
	BestScore int              `json:"best_score"`
	MeanScore float64          `json:"mean_score"`
	MeanLines float64          `json:"mean_lines"`
	Results   []*driver.Result `json:"results"`
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "play headless games on virtual time and report the scores",
		Flags: append(gameFlags(),
			&cli.IntFlag{Name: "games", Value: 1, Usage: "number of games; game i uses seed+i"},
			&cli.IntFlag{Name: "max-steps", Value: driver.DefaultMaxCommands, Usage: "command budget per game"},
			&cli.IntFlag{Name: "parallel", Value: 4, Usage: "games run at the same time"},
			&cli.BoolFlag{Name: "verify", Usage: "replay every game and check it reaches the same state"},
			&cli.StringFlag{Name: "record", Usage: "directory to write one replay script per game"},
		),
		Action: runSimulate,
	}
}

func loadPreset(cmd *cli.Command) (*engine.Config, error) {
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, err
	}
	return manager.LoadConfig(cmd.String("preset"))
}

func pickSeed(cmd *cli.Command) uint64 {
	seed := cmd.Uint64("seed")
	for seed == 0 {
		seed = rand.Uint64()
	}
	return seed
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadPreset(cmd)
	if err != nil {
		return err
	}
	games := cmd.Int("games")
	if games < 1 {
		return fmt.Errorf("--games must be at least 1, got %d", games)
	}
	parallel := cmd.Int("parallel")
	if parallel < 1 {
		parallel = 1
	}
	record := cmd.String("record")
	if record != "" {
		if err := os.MkdirAll(record, 0755); err != nil {
			return fmt.Errorf("failed to create record directory: %w", err)
		}
	}
	seed := pickSeed(cmd)
	playerName := cmd.String("player")

	results := make([]*driver.Result, games)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := 0; i < games; i++ {
		gameSeed := seed + uint64(i)
		g.Go(func() error {
			player, err := driver.NewPlayer(playerName, gameSeed)
			if err != nil {
				return err
			}
			res, script, err := driver.Simulate(gctx, driver.SimOptions{
				Config:      *cfg,
				Seed:        gameSeed,
				Player:      player,
				MaxCommands: cmd.Int("max-steps"),
			})
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			if cmd.Bool("verify") {
				ok, err := driver.Verify(res, script, nil)
				if err != nil {
					return fmt.Errorf("game %d: %w", i, err)
				}
				if !ok {
					return fmt.Errorf("game %d (seed %d): replay diverged", i, gameSeed)
				}
			}
			if record != "" {
				if err := writeScript(filepath.Join(record, fmt.Sprintf("game-%d.json", gameSeed)), script); err != nil {
					return err
				}
			}
			log.Debug("game %d seed=%d score=%d lines=%d", i, gameSeed, res.Score, res.Lines)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	summary := simulateSummary{Preset: cfg.Name, Player: playerName, Games: games, Results: results}
	for _, r := range results {
		if r.Score > summary.BestScore {
			summary.BestScore = r.Score
		}
		summary.MeanScore += float64(r.Score)
		summary.MeanLines += float64(r.Lines)
	}
	summary.MeanScore /= float64(games)
	summary.MeanLines /= float64(games)

	log.Info("simulated %d games: best=%d mean=%.2f", games, summary.BestScore, summary.MeanScore)
	return writeJSON(stdout(cmd), summary)
}

func writeScript(path string, script *driver.Script) error {
	data, err := json.Marshal(script)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "re-run a recorded script and print the final state",
		ArgsUsage: "SCRIPT",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("replay needs a script file")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var script driver.Script
			if err := json.Unmarshal(data, &script); err != nil {
				return fmt.Errorf("invalid script %s: %w", path, err)
			}
			if err := engine.ValidateConfig(script.Config); err != nil {
				return fmt.Errorf("invalid script %s: %w", path, err)
			}

			snap, err := driver.Replay(&script, nil)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout(cmd), mcp.FormatSnapshot(&snap))
			return err
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "let a player run one game in real time and draw it",
		Flags: append(gameFlags(),
			&cli.DurationFlag{Name: "tick", Value: driver.DefaultTickInterval, Usage: "clock tick interval"},
			&cli.DurationFlag{Name: "move-delay", Value: 120 * time.Millisecond, Usage: "pause between the player's commands"},
			&cli.DurationFlag{Name: "duration", Usage: "stop after this long (0 runs until game over)"},
		),
		Action: runWatch,
	}
}

// plan is a list of commands meant for the piece with the given index.
type plan struct {
	piece int
	cmds  []engine.Command
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadPreset(cmd)
	if err != nil {
		return err
	}
	seed := pickSeed(cmd)
	eng, err := engine.NewEngine(*cfg, cfg.NewSource(seed))
	if err != nil {
		return err
	}
	player, err := driver.NewPlayer(cmd.String("player"), seed)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := cmd.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	out := stdout(cmd)
	clearScreen := isTerminal(out)
	plans := make(chan plan, 1)
	var current atomic.Int64
	lastPlanned := -1
	lastFrame := ""

	// OnFrame runs on the loop goroutine, so it may read the engine.
	onFrame := func(snap engine.Snapshot) {
		current.Store(int64(snap.Pieces))
		if text := mcp.FormatSnapshot(&snap); text != lastFrame {
			lastFrame = text
			if clearScreen {
				fmt.Fprint(out, "\033[H\033[2J")
			}
			fmt.Fprintln(out, text)
		}
		if snap.State == engine.StateFalling && snap.Pieces != lastPlanned {
			lastPlanned = snap.Pieces
			select {
			case <-plans:
			default:
			}
			plans <- plan{piece: snap.Pieces, cmds: player.Plan(eng)}
		}
	}

	loop, err := driver.NewLoop(driver.LoopOptions{
		Engine:         eng,
		TickInterval:   cmd.Duration("tick"),
		OnFrame:        onFrame,
		StopOnTerminal: true,
		Seed:           seed,
		Logger:         log.Default(),
	})
	if err != nil {
		return err
	}

	delay := cmd.Duration("move-delay")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Start(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-loop.Done():
				return nil
			case p := <-plans:
				for _, c := range p.cmds {
					select {
					case <-time.After(delay):
					case <-loop.Done():
						return nil
					}
					// Gravity locked the piece first.
					if current.Load() != int64(p.piece) {
						break
					}
					if err := loop.Send(gctx, c); err != nil {
						if errors.Is(err, driver.ErrLoopStopped) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
							return nil
						}
						return err
					}
				}
			}
		}
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(out, "seed %d: score %d, lines %d, pieces %d\n", seed, eng.Score(), eng.Lines(), eng.Pieces())
	return nil
}
