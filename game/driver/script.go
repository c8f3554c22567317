package driver

import (
	"fmt"
	"time"

	"github.com/wricardo/blockfall/game/engine"
)

// Epoch is the virtual start time used by Simulate and Replay.
var Epoch = time.Unix(0, 0).UTC()

// Step is one recorded input: a clock tick or a command.
type Step struct {
	At      time.Duration `json:"at"` // offset from the start of the game
	Tick    bool          `json:"tick,omitempty"`
	Command string        `json:"command,omitempty"`
}

// Script is everything needed to reproduce a game exactly.
type Script struct {
	Seed   uint64        `json:"seed"`
	Config engine.Config `json:"config"`
	Steps  []Step        `json:"steps"`
}

// Commands returns the number of command steps.
func (s *Script) Commands() int {
	n := 0
	for _, st := range s.Steps {
		if !st.Tick {
			n++
		}
	}
	return n
}

func (s *Script) addTick(at time.Duration) {
	s.Steps = append(s.Steps, Step{At: at, Tick: true})
}

func (s *Script) addCommand(at time.Duration, cmd engine.Command) {
	s.Steps = append(s.Steps, Step{At: at, Command: cmd.String()})
}

// Replay runs script against a fresh engine and returns the final
// snapshot. With a nil src pieces come from the script's config and seed.
func Replay(script *Script, src engine.KindSource) (engine.Snapshot, error) {
	if src == nil {
		src = script.Config.NewSource(script.Seed)
	}
	eng, err := engine.NewEngine(script.Config, src)
	if err != nil {
		return engine.Snapshot{}, err
	}

	for i, st := range script.Steps {
		if st.Tick {
			eng.Tick(Epoch.Add(st.At))
			continue
		}
		cmd, err := engine.ParseCommand(st.Command)
		if err != nil {
			return engine.Snapshot{}, fmt.Errorf("step %d: %w", i, err)
		}
		if cmd == engine.Quit {
			break
		}
		eng.Apply(cmd)
	}
	return eng.Snapshot(), nil
}
