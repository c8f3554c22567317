// Package driver runs blockfall engines from the outside.
//
// The engine never reads a clock or blocks; something has to call Tick and
// Apply. This package provides the callers:
//
//   - Loop drives one engine in real time from a ticker and a command
//     channel and hands each new snapshot to a frame callback.
//   - Simulate plays a whole game on virtual time with a Player, which is
//     how presets and strategies are exercised headlessly.
//   - Replay re-runs a recorded Script and must land on the same snapshot.
//
// Both Loop and Simulate record a Script: the seed, the rules and every
// tick and command in order.
package driver
