package engine

// ColumnHeights returns, for every column, one plus the row of its highest
// settled cell, or 0 for an empty column.
func ColumnHeights(f *Field) []int {
	heights := make([]int, f.Width())
	for x := 0; x < f.Width(); x++ {
		for y := f.Height() - 1; y >= 0; y-- {
			if f.IsOccupied(x, y) {
				heights[x] = y + 1
				break
			}
		}
	}
	return heights
}

// CountHoles counts empty cells that have a settled cell somewhere above
// them in the same column.
func CountHoles(f *Field) int {
	holes := 0
	for x := 0; x < f.Width(); x++ {
		covered := false
		for y := f.Height() - 1; y >= 0; y-- {
			if f.IsOccupied(x, y) {
				covered = true
			} else if covered {
				holes++
			}
		}
	}
	return holes
}

// Bumpiness sums the absolute height difference of adjacent columns.
func Bumpiness(heights []int) int {
	total := 0
	for i := 1; i < len(heights); i++ {
		total += abs(heights[i] - heights[i-1])
	}
	return total
}

// CountOccupied counts settled cells in the field.
func CountOccupied(f *Field) int {
	count := 0
	for _, k := range f.cells {
		if k != KindEmpty {
			count++
		}
	}
	return count
}

// DropDistance returns how many rows p can fall before it is blocked.
// A piece that does not fit reports 0.
func DropDistance(f *Field, p Piece) int {
	if !f.Fits(p) {
		return 0
	}
	n := 0
	for f.Fits(p.Down()) {
		p = p.Down()
		n++
	}
	return n
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
