package engine

// Piece is a live instance of a kind at an anchor with a rotation state.
// Every transform returns a new value; legality is checked by the Field.
type Piece struct {
	Kind  Kind  `json:"kind"`
	Shape Shape `json:"shape"`
	X     int   `json:"x"`
	Y     int   `json:"y"`
}

// Spawn creates a piece whose highest cell lands exactly on row y.
func Spawn(k Kind, x, y int) Piece {
	shape := Offsets(k)
	top := shape[0].DY
	for _, o := range shape[1:] {
		if o.DY > top {
			top = o.DY
		}
	}
	return Piece{Kind: k, Shape: shape, X: x, Y: y - top}
}

// NoPiece returns the "no active piece" sentinel.
func NoPiece() Piece {
	return Piece{Kind: KindEmpty, Shape: Offsets(KindEmpty)}
}

// IsEmpty reports whether p is the sentinel.
func (p Piece) IsEmpty() bool {
	return p.Kind == KindEmpty
}

// Translate shifts the anchor.
func (p Piece) Translate(dx, dy int) Piece {
	p.X += dx
	p.Y += dy
	return p
}

func (p Piece) Left() Piece  { return p.Translate(-1, 0) }
func (p Piece) Right() Piece { return p.Translate(1, 0) }
func (p Piece) Down() Piece  { return p.Translate(0, -1) }

// RotateCW turns the piece a quarter clockwise: (dx,dy) -> (dy,-dx).
func (p Piece) RotateCW() Piece {
	return p.rotate(true)
}

// RotateCCW turns the piece a quarter counterclockwise: (dx,dy) -> (-dy,dx).
func (p Piece) RotateCCW() Piece {
	return p.rotate(false)
}

func (p Piece) rotate(clockwise bool) Piece {
	for i, o := range p.Shape {
		if clockwise {
			p.Shape[i] = Offset{DX: o.DY, DY: -o.DX}
		} else {
			p.Shape[i] = Offset{DX: -o.DY, DY: o.DX}
		}
	}
	return p
}

// Cell returns the absolute coordinate of offset i.
func (p Piece) Cell(i int) Position {
	return Position{X: p.X + p.Shape[i].DX, Y: p.Y + p.Shape[i].DY}
}

// Cells returns all four absolute coordinates.
func (p Piece) Cells() [4]Position {
	var cells [4]Position
	for i := range p.Shape {
		cells[i] = p.Cell(i)
	}
	return cells
}

// Top returns the highest row the piece occupies.
func (p Piece) Top() int {
	top := p.Cell(0).Y
	for i := 1; i < len(p.Shape); i++ {
		if y := p.Cell(i).Y; y > top {
			top = y
		}
	}
	return top
}
