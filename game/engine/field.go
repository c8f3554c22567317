package engine

// Field is a fixed-size grid of settled cells stored row-major with index
// x + y*width. Row 0 is the bottom.
type Field struct {
	width  int
	height int
	cells  []Kind
}

// NewField creates an empty width x height field.
func NewField(width, height int) *Field {
	return &Field{
		width:  width,
		height: height,
		cells:  make([]Kind, width*height),
	}
}

// Width returns the number of columns.
func (f *Field) Width() int { return f.width }

// Height returns the number of rows.
func (f *Field) Height() int { return f.height }

// InBounds reports whether (x, y) lies inside the field.
func (f *Field) InBounds(x, y int) bool {
	return x >= 0 && x < f.width && y >= 0 && y < f.height
}

// IsOccupied reports whether (x, y) holds a settled cell. Out-of-bounds
// coordinates report false; callers check InBounds first.
func (f *Field) IsOccupied(x, y int) bool {
	return f.At(x, y) != KindEmpty
}

// At returns the kind stored at (x, y), or the sentinel when out of bounds.
func (f *Field) At(x, y int) Kind {
	if !f.InBounds(x, y) {
		return KindEmpty
	}
	return f.cells[x+y*f.width]
}

// Set stores k at (x, y). Out-of-bounds writes are ignored.
func (f *Field) Set(x, y int, k Kind) {
	if f.InBounds(x, y) {
		f.cells[x+y*f.width] = k
	}
}

// Fits reports whether every cell of p is inside the field and unoccupied.
// It is the single legality gate for spawns, moves and rotations and never
// mutates the field.
func (f *Field) Fits(p Piece) bool {
	for _, c := range p.Cells() {
		if !f.InBounds(c.X, c.Y) || f.IsOccupied(c.X, c.Y) {
			return false
		}
	}
	return true
}

// Lock writes the piece kind into its four cells. The caller has already
// established that the piece fits.
func (f *Field) Lock(p Piece) {
	for _, c := range p.Cells() {
		f.Set(c.X, c.Y, p.Kind)
	}
}

// ClearCompletedLines removes every full row in one pass, shifting the rows
// above each one down and emptying the top row. It returns the number of
// rows removed.
func (f *Field) ClearCompletedLines() int {
	cleared := 0
	for y := 0; y < f.height; {
		if !f.rowComplete(y) {
			y++
			continue
		}
		f.collapseRow(y)
		cleared++
	}
	return cleared
}

func (f *Field) rowComplete(y int) bool {
	row := f.cells[y*f.width : (y+1)*f.width]
	for _, k := range row {
		if k == KindEmpty {
			return false
		}
	}
	return true
}

func (f *Field) collapseRow(y int) {
	copy(f.cells[y*f.width:], f.cells[(y+1)*f.width:])
	top := f.cells[(f.height-1)*f.width:]
	for i := range top {
		top[i] = KindEmpty
	}
}

// Cells returns a copy of the grid in row-major order.
func (f *Field) Cells() []Kind {
	out := make([]Kind, len(f.cells))
	copy(out, f.cells)
	return out
}

// Clone returns an independent copy of the field.
func (f *Field) Clone() *Field {
	return &Field{width: f.width, height: f.height, cells: f.Cells()}
}
