package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies a tetromino shape. The zero value is the empty sentinel,
// used both for unoccupied cells and for "no active piece".
type Kind uint8

const (
	KindEmpty Kind = iota
	KindI
	KindO
	KindT
	KindJ
	KindL
	KindS
	KindZ
)

// Field dimensions and timing used when no preset overrides them.
const (
	DefaultWidth          = 10
	DefaultHeight         = 22
	DefaultBaseIntervalMs = 1000
	DefaultMinIntervalMs  = 100
	DefaultSpeedupMs      = 1

	MinFieldWidth  = 4
	MinFieldHeight = 4
	MaxFieldWidth  = 64
	MaxFieldHeight = 128
)

var kindLetters = [...]string{".", "I", "O", "T", "J", "L", "S", "Z"}

// Render-only colors, passed through to whoever draws the field.
var kindColors = [...]string{"#000000", "#00f0f0", "#f0f000", "#a000f0", "#0000f0", "#f0a000", "#00f000", "#f00000"}

// String returns the kind letter, or "." for the sentinel.
func (k Kind) String() string {
	if int(k) < len(kindLetters) {
		return kindLetters[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Color returns the display color of the kind as a hex string.
func (k Kind) Color() string {
	if int(k) < len(kindColors) {
		return kindColors[k]
	}
	return kindColors[KindEmpty]
}

// IsEmpty reports whether k is the sentinel.
func (k Kind) IsEmpty() bool {
	return k == KindEmpty
}

// MarshalText encodes the kind as its letter.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindLetters) {
		return nil, fmt.Errorf("invalid kind %d", uint8(k))
	}
	return []byte(kindLetters[k]), nil
}

// UnmarshalText decodes a kind letter. Both "." and "" decode to the sentinel.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind letter, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return KindEmpty, nil
	}
	for i, letter := range kindLetters {
		if letter == s {
			return Kind(i), nil
		}
	}
	return KindEmpty, fmt.Errorf("unknown kind %q", s)
}

// Offset is a cell position relative to a piece anchor.
type Offset struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Shape holds the four relative cells of a piece in its current rotation.
type Shape [4]Offset

// Position represents absolute x,y field coordinates. x grows to the right
// and y grows upward, row 0 being the bottom of the field.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// State is the externally visible phase of the fall/lock/clear cycle.
type State int

const (
	StateNoActivePiece State = iota
	StateFalling
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateNoActivePiece:
		return "no_active_piece"
	case StateFalling:
		return "falling"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Command is a discrete player input pushed into the engine.
type Command int

const (
	MoveLeft Command = iota
	MoveRight
	RotateCW
	RotateCCW
	SoftDrop
	HardDrop
	Quit
)

var commandNames = map[Command]string{
	MoveLeft:  "left",
	MoveRight: "right",
	RotateCW:  "rotate_cw",
	RotateCCW: "rotate_ccw",
	SoftDrop:  "soft_drop",
	HardDrop:  "hard_drop",
	Quit:      "quit",
}

var commandAliases = map[string]Command{
	"left":       MoveLeft,
	"move_left":  MoveLeft,
	"right":      MoveRight,
	"move_right": MoveRight,
	"rotate_cw":  RotateCW,
	"cw":         RotateCW,
	"rotate":     RotateCW,
	"rotate_ccw": RotateCCW,
	"ccw":        RotateCCW,
	"soft_drop":  SoftDrop,
	"down":       SoftDrop,
	"hard_drop":  HardDrop,
	"drop":       HardDrop,
	"quit":       Quit,
}

// ErrUnknownCommand is returned by ParseCommand for unrecognized names.
var ErrUnknownCommand = errors.New("unknown command")

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// MarshalText encodes the command name.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes any accepted command name or alias.
func (c *Command) UnmarshalText(text []byte) error {
	parsed, err := ParseCommand(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCommand maps a command name such as "left", "rotate_cw" or
// "hard-drop" to a Command. Matching ignores case, and dashes or spaces
// are treated as underscores.
func ParseCommand(name string) (Command, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if cmd, ok := commandAliases[key]; ok {
		return cmd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// Commands returns every command in declaration order.
func Commands() []Command {
	return []Command{MoveLeft, MoveRight, RotateCW, RotateCCW, SoftDrop, HardDrop, Quit}
}

// ActivePiece is the renderer's view of the falling piece.
type ActivePiece struct {
	Kind  Kind        `json:"kind"`
	Cells [4]Position `json:"cells"`
}

// Snapshot is a read-only copy of the engine state for renderers.
type Snapshot struct {
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Grid     []Kind        `json:"grid"` // row-major, index x + y*width
	Active   *ActivePiece  `json:"active,omitempty"`
	Score    int           `json:"score"`
	Lines    int           `json:"lines"`
	Pieces   int           `json:"pieces"`
	Terminal bool          `json:"terminal"`
	State    State         `json:"state"`
	Interval time.Duration `json:"interval"`
}

// At returns the settled kind at (x, y), or the sentinel when out of range.
func (s Snapshot) At(x, y int) Kind {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		return KindEmpty
	}
	return s.Grid[x+y*s.Width]
}
