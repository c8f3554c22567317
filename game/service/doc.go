// Package service provides the business logic layer for blockfall.
//
// The service package implements:
//   - Multi-session game management
//   - Command processing, singly and in batches
//   - A per-session virtual clock that drives gravity
//   - Event reporting (spawn, lock, line_clear, game_over, reset)
//   - Session history with pagination
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager loads presets.
//
// Architecture:
//
// The service layer sits between drivers (the MCP tools, the CLI) and the
// engine. Each session owns its own engine; a service-wide mutex serializes
// every call that touches an engine, so the engine itself stays lock-free.
//
// Time:
//
// Sessions do not follow the wall clock. Advance moves a session's clock
// forward in fixed steps and ticks the engine at each one, so an agent that
// thinks for a minute between calls does not lose its piece to gravity.
// When a command arrives while no piece is active, the pending spawn is
// taken first at the current session time.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic", 42)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := gameService.Command(ctx, info.ID, "rotate_cw")
//	adv, err := gameService.Advance(ctx, info.ID, 2*time.Second)
package service
