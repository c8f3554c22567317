// Package engine provides the core game logic for blockfall, a falling-block
// puzzle.
//
// The engine package implements:
//   - Tetromino geometry: the shape table, rotations and spawn alignment
//   - The field: bounds and occupancy checks, locking, row compaction
//   - The fall/lock/clear/spawn state machine driven by a gravity clock
//   - Scoring (n*n points for n rows cleared by one lock)
//   - Rule configuration and validation
//
// Core Types:
//
// Piece is an immutable value: Translate, RotateCW and RotateCCW return new
// pieces. Field stores settled cells in a flat row-major slice and is the
// single legality gate through Field.Fits. GameEngine owns one Field, the
// active Piece and the score, and implements the Engine interface.
//
// Coordinates:
//
// x grows to the right and y grows upward; row 0 is the bottom of the field.
// New pieces are anchored at (width/2, height-1) with their highest cell on
// the top row.
//
// Usage:
//
//	cfg := engine.DefaultConfig()
//	eng, err := engine.NewEngine(cfg, cfg.NewSource(42))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng.Tick(time.Now())        // spawns the first piece
//	eng.Apply(engine.MoveLeft)  // false when blocked
//	eng.Apply(engine.HardDrop)  // drops, locks, clears, spawns
//	snap := eng.Snapshot()
//
// Concurrency:
//
// GameEngine has no internal locking and never blocks. One driver calls Tick
// and Apply sequentially; time is only read from the values passed to Tick.
//
// Game Over:
//
// When a new piece does not fit at the spawn point the engine enters
// StateTerminal. From then on Tick and Apply change nothing; start a new
// game with Reset or a fresh engine.
package engine
