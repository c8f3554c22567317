package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
	"github.com/wricardo/blockfall/log"
)

const (
	Name    = "blockfall"
	Version = "1.0.0"
)

var errMissingArgument = errors.New("missing argument")

// Server exposes a GameService as MCP tools.
type Server struct {
	service   service.GameService
	mcpServer *server.MCPServer
	logger    *log.Logger
}

// NewServer creates an MCP server backed by gameService. A nil logger
// uses the package default.
func NewServer(gameService service.GameService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{service: gameService, logger: logger}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest) {
		s.logger.Debug("tool call %s", message.Params.Name)
	})

	s.mcpServer = server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
		server.WithInstructions(`blockfall - falling block puzzle over MCP

Pieces fall on a virtual clock that only moves when you call advance, so take
your time. Start with new_game, read the field with game_state, then send
command or bulk_command. Full rows are cleared; clearing n rows with one piece
scores n*n. The game ends when a new piece cannot spawn.

AVAILABLE TOOLS:
- new_game: Start a session (optional preset and seed)
- list_games: List active sessions
- game_state: Render the field of a session
- command: Send one command
- bulk_command: Send several commands in order
- advance: Let gravity run for some milliseconds
- reset_game: Start the session over with the same seed
- history: Paginated log of commands and advances
- delete_game: End a session
- list_configs: List presets
- game_instructions: Rules, commands and coordinates`),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the tools on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("MCP stdio server ready")
	return server.ServeStdio(s.mcpServer)
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func (s *Server) registerTools() {
	// Session management
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Create a new game session. The first piece is already falling when this returns.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_name": map[string]interface{}{
					"type":        "string",
					"description": "Preset to use (optional, see list_configs)",
				},
				"seed": map[string]interface{}{
					"type":        "integer",
					"description": "Seed for the piece sequence (optional, random when 0 or absent)",
				},
			},
		},
	}, s.handleNewGame)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListGames)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_game",
		Description: "Delete a game session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, s.handleDeleteGame)

	// Game operations
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current field, active piece, score and state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, s.handleGameState)

	commandNames := make([]string, 0, len(engine.Commands()))
	for _, c := range engine.Commands() {
		commandNames = append(commandNames, c.String())
	}

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "command",
		Description: "Send one command to the active piece. Illegal moves are rejected without changing anything.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"command": map[string]interface{}{
					"type":        "string",
					"enum":        commandNames,
					"description": "Command to send",
				},
			},
			Required: []string{"session_id", "command"},
		},
	}, s.handleCommand)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_command",
		Description: "Send several commands in order. Stops early when the game ends.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"commands": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": commandNames,
					},
					"description": "Commands to send, in order",
				},
			},
			Required: []string{"session_id", "commands"},
		},
	}, s.handleBulkCommand)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "advance",
		Description: "Advance the session clock so gravity can act",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"ms": map[string]interface{}{
					"type":        "integer",
					"description": "Milliseconds to advance",
				},
			},
			Required: []string{"session_id", "ms"},
		},
	}, s.handleAdvance)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to its initial state, keeping preset and seed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, s.handleReset)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "history",
		Description: "Get the command history of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleHistory)

	// Configuration
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListConfigs)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the game rules, commands and coordinate system",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleGameInstructions)
}

func requireString(args map[string]any, key string) (string, error) {
	v := strings.TrimSpace(cast.ToString(args[key]))
	if v == "" {
		return "", fmt.Errorf("%w: %s", errMissingArgument, key)
	}
	return v, nil
}

// Tool handlers

func (s *Server) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	configName := cast.ToString(args["config_name"])
	seed, err := cast.ToUint64E(args["seed"])
	if err != nil && args["seed"] != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid seed: %v", err)), nil
	}

	info, err := s.service.CreateSession(ctx, configName, seed)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\nSeed: %d\n\n%s",
		info.ID, info.ConfigName, info.Seed, FormatSnapshot(info.Snapshot))
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.service.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", len(sessions))
	for _, info := range sessions {
		state := "-"
		score := 0
		if info.Snapshot != nil {
			state = info.Snapshot.State.String()
			score = info.Snapshot.Score
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, State: %s, Created: %s)\n",
			info.ID, info.ConfigName, score, state, info.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleDeleteGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireString(request.GetArguments(), "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.service.DeleteSession(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted session %s", sessionID)), nil
}

func (s *Server) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireString(request.GetArguments(), "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.service.GetSession(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(info)), nil
}

func (s *Server) handleCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	command, err := requireString(args, "command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.service.Command(ctx, sessionID, command)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCommandResult(result)), nil
}

func (s *Server) handleBulkCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	commands, err := cast.ToStringSliceE(args["commands"])
	if err != nil || len(commands) == 0 {
		return mcp.NewToolResultError("commands must be a non-empty array of strings"), nil
	}

	result, err := s.service.BulkCommand(ctx, sessionID, commands)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkResult(sessionID, result)), nil
}

func (s *Server) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ms, err := cast.ToInt64E(args["ms"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid ms: %v", err)), nil
	}

	result, err := s.service.Advance(ctx, sessionID, time.Duration(ms)*time.Millisecond)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatAdvanceResult(result)), nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := requireString(request.GetArguments(), "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.service.Reset(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Game reset\n\n" + formatSessionInfo(info)), nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := service.HistoryOptions{
		Page:  cast.ToInt(args["page"]),
		Limit: cast.ToInt(args["limit"]),
		Order: cast.ToString(args["order"]),
	}
	history, err := s.service.GetHistory(ctx, sessionID, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(history)), nil
}

func (s *Server) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configs, err := s.service.ListConfigs(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, c := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Field: %dx%d, Gravity: %dms, Randomizer: %s",
			c.ConfigID, c.Name, c.Description, c.Width, c.Height, c.BaseIntervalMs, c.Randomizer)
		if c.DeferSpawn {
			b.WriteString(", deferred spawn")
		}
		b.WriteString("\n\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `blockfall - Complete Instructions

OBJECTIVE:
Place falling pieces so they complete full rows. Complete rows disappear and
everything above them moves down. Survive as long as possible.

FIELD:
• Columns are x = 0 (left) to width-1 (right)
• Rows are y = 0 (bottom) to height-1 (top); y grows upward
• game_state prints the top row first, with the row number on the left
• Settled cells show their piece letter (I O T J L S Z), empty cells show '.'
• Cells of the falling piece show '@'

PIECES:
Seven kinds made of four cells each: I, O, T, J, L, S, Z. A new piece
appears centred at the top of the field with its highest cell on the top row.

COMMANDS:
• left, right       - shift one column
• rotate_cw, rotate_ccw - rotate a quarter turn around the piece's pivot
• soft_drop         - move down one row; locks the piece if it cannot move
• hard_drop         - drop straight down and lock immediately
• quit              - accepted by interactive drivers, ignored here
A command that would push the piece out of the field or into a settled
cell is rejected and nothing changes. There are no wall kicks.

GRAVITY AND TIME:
The clock only moves when you call advance. When the time since the last
fall exceeds the gravity interval, the piece drops one row; when it cannot
drop, it locks. The interval shrinks as the score grows (see list_configs).

SCORING:
Clearing n rows with a single lock scores n*n points: 1, 4, 9, 16.

GAME OVER:
The game ends when a new piece cannot be placed at the spawn point. After
that every command is rejected; use reset_game or new_game.

TIPS:
• Use bulk_command for a whole placement, e.g. ["rotate_cw","left","left","hard_drop"]
• Keep the stack flat and avoid covering empty cells
• history shows every command you sent and whether it was accepted`
