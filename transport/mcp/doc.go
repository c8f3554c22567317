// Package mcp exposes blockfall to AI agents over the Model Context Protocol.
//
// The mcp package implements:
//   - An MCP server that calls the game service in process
//   - Tool definitions for every game operation
//   - Plain text rendering of the field for agents
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - new_game: Create a session with an optional preset and seed
//   - list_games: List all active sessions
//   - delete_game: Remove a session
//   - game_state: Render the field, active piece and score
//   - command: Send one command
//   - bulk_command: Send several commands in order
//   - advance: Move the session clock forward so gravity can act
//   - reset_game: Restart a session with the same preset and seed
//   - history: Paginated command history
//   - list_configs: List available presets
//   - game_instructions: Rules and coordinate system
//
// Transport:
//
// Tools are served on stdin/stdout. Logs go to stderr so they never mix
// with protocol messages.
//
// Usage:
//
//	srv := mcp.NewServer(gameService, logger)
//	if err := srv.ServeStdio(); err != nil {
//		log.Fatal(err)
//	}
//
// Rendering:
//
// The field is printed top row first with y coordinates on the left and
// the last digit of each x coordinate underneath. Settled cells show their
// kind letter and cells of the falling piece show '@'.
package mcp
