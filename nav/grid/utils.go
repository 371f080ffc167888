package grid

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.Row-to.Row) + abs(from.Col-to.Col)
}

// Neighbours returns the in-bounds 8-neighbourhood of (row, col)
func (m *Map) Neighbours(row, col int) []Position {
	result := make([]Position, 0, len(neighbourOffsets))
	for _, off := range neighbourOffsets {
		r, c := row+off[0], col+off[1]
		if m.InBounds(r, c) {
			result = append(result, Position{Row: r, Col: c})
		}
	}
	return result
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
