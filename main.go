// Command blockfall runs the falling block engine.
//
// Subcommands:
//  1. "mcp" serves the game as MCP tools on stdio for AI agents
//  2. "simulate" plays headless seeded games and reports their scores
//  3. "watch" runs one game on the wall clock and draws it in the terminal
//  4. "replay" re-runs a recorded game script
//  5. "presets" lists, validates and describes preset files
//
// Global flags set the log level and the preset directory. A .env file in
// the working directory is loaded first.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/wricardo/blockfall/game/config"
	"github.com/wricardo/blockfall/game/service"
	"github.com/wricardo/blockfall/game/session"
	"github.com/wricardo/blockfall/log"
	"github.com/wricardo/blockfall/transport/mcp"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "blockfall"
)

// Idle sessions are swept every hour and removed after a day.
const (
	sessionSweepInterval = time.Hour
	sessionMaxAge        = 24 * time.Hour
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Error("%v", err)
		_ = log.Default().Sync()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "falling block puzzle engine",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "error, warn, info, debug or trace",
				Sources: cli.EnvVars("BLOCKFALL_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing preset files (empty for the built-in classic preset only)",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			mcpCommand(),
			simulateCommand(),
			watchCommand(),
			replayCommand(),
			presetsCommand(),
		},
	}
}

// setupLogging installs the process logger. Logs always go to the error
// writer because stdout may carry MCP traffic.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level, err := log.ParseLogLevel(cmd.String("log-level"))
	if err != nil {
		return ctx, err
	}
	errOut := cmd.Root().ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	log.SetDefault(log.New(errOut, level))
	return ctx, nil
}

// initializeServices wires the session and config managers into the game
// service.
func initializeServices(configDir string) (service.GameService, *session.Manager, error) {
	configManager, err := config.NewManager(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	sessionManager := session.NewManager()
	return service.NewGameService(sessionManager, configManager), sessionManager, nil
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "serve the game as MCP tools on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			gameService, sessions, err := initializeServices(cmd.String("config-dir"))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			go sessions.StartCleanup(ctx, sessionSweepInterval, sessionMaxAge)

			log.Info("Starting %s v%s (mode: mcp)", AppName, Version)
			return mcp.NewServer(gameService, log.Default()).ServeStdio()
		},
	}
}

func presetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "presets",
		Usage: "inspect preset files",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list available presets",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					manager, err := config.NewManager(cmd.String("config-dir"))
					if err != nil {
						return err
					}
					configs, err := manager.ListConfigs()
					if err != nil {
						return err
					}
					return writeJSON(stdout(cmd), configs)
				},
			},
			{
				Name:  "validate",
				Usage: "check every preset file in the config directory",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					dir := cmd.String("config-dir")
					if dir == "" {
						return errors.New("--config-dir is required")
					}
					reports, err := config.ValidateDir(dir)
					if reports != nil {
						if werr := writeJSON(stdout(cmd), reports); werr != nil {
							return werr
						}
					}
					return err
				},
			},
			{
				Name:  "schema",
				Usage: "print the JSON schema of a preset file",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					data, err := config.Schema()
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(stdout(cmd), string(data))
					return err
				},
			},
		},
	}
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// writeJSON encodes v, indented when w is a terminal.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	if isTerminal(w) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
