package grid

import (
	"fmt"
	"sync"
)

// neighbourOffsets lists the 8-neighbourhood as {dRow, dCol}
var neighbourOffsets = [8][2]int{
	{1, -1}, {1, 0}, {1, 1},
	{0, -1}, {0, 1},
	{-1, -1}, {-1, 0}, {-1, 1},
}

// Map owns the cell state for a whole arena
type Map struct {
	rows  int
	cols  int
	start Position
	goal  Position
	cells [][]Cell
	mu    sync.RWMutex
}

// New creates a rows×cols map with the start and goal zones centred on the
// given cells. Both zones must lie fully inside the grid.
func New(rows, cols int, start, goal Position) (*Map, error) {
	if rows < 2*ZoneRadius+1 || cols < 2*ZoneRadius+1 {
		return nil, fmt.Errorf("grid must be at least %dx%d, got %dx%d",
			2*ZoneRadius+1, 2*ZoneRadius+1, rows, cols)
	}

	m := &Map{rows: rows, cols: cols, start: start, goal: goal}
	if !m.zoneFits(start) {
		return nil, fmt.Errorf("start zone: %w", outOfBounds(start.Row, start.Col))
	}
	if !m.zoneFits(goal) {
		return nil, fmt.Errorf("goal zone: %w", outOfBounds(goal.Row, goal.Col))
	}

	m.cells = make([][]Cell, rows)
	for r := 0; r < rows; r++ {
		m.cells[r] = make([]Cell, cols)
		for c := 0; c < cols; c++ {
			m.cells[r][c] = Cell{Row: r, Col: c, VirtualWall: m.isBorder(r, c)}
		}
	}

	return m, nil
}

// NewDefault creates the reference 20×15 arena with start at (1,1) and the
// goal zone in the opposite corner
func NewDefault() *Map {
	m, err := New(DefaultRows, DefaultCols,
		Position{Row: DefaultStartRow, Col: DefaultStartCol},
		Position{Row: DefaultGoalRow, Col: DefaultGoalCol})
	if err != nil {
		panic(err) // constants are valid
	}
	return m
}

// Rows returns the number of rows
func (m *Map) Rows() int { return m.rows }

// Cols returns the number of columns
func (m *Map) Cols() int { return m.cols }

// Size returns the total number of cells
func (m *Map) Size() int { return m.rows * m.cols }

// Start returns the centre of the start zone
func (m *Map) Start() Position { return m.start }

// Goal returns the centre of the goal zone
func (m *Map) Goal() Position { return m.goal }

// InBounds reports whether (row, col) lies inside the grid
func (m *Map) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < m.rows && col < m.cols
}

// InStartZone reports whether (row, col) is inside the 3×3 start zone
func (m *Map) InStartZone(row, col int) bool {
	return inZone(m.start, row, col)
}

// InGoalZone reports whether (row, col) is inside the 3×3 goal zone
func (m *Map) InGoalZone(row, col int) bool {
	return inZone(m.goal, row, col)
}

// Cell returns a copy of the cell at (row, col)
func (m *Map) Cell(row, col int) (Cell, error) {
	if !m.InBounds(row, col) {
		return Cell{}, outOfBounds(row, col)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cells[row][col], nil
}

// SetObstacle marks or clears an obstacle and recomputes the virtual walls
// of its 8 neighbours. Placing an obstacle in the start or goal zone is
// rejected with ErrInvalidPlacement and leaves the map unchanged.
func (m *Map) SetObstacle(row, col int, obstacle bool) error {
	if !m.InBounds(row, col) {
		return outOfBounds(row, col)
	}
	if obstacle && (m.InStartZone(row, col) || m.InGoalZone(row, col)) {
		return fmt.Errorf("%w: (%d,%d)", ErrInvalidPlacement, row, col)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cells[row][col].Obstacle = obstacle
	for _, n := range m.Neighbours(row, col) {
		m.cells[n.Row][n.Col].VirtualWall = m.computeVirtualWall(n.Row, n.Col)
	}
	return nil
}

// IsBlocked reports whether a cell cannot be entered: out of bounds or an obstacle
func (m *Map) IsBlocked(row, col int) bool {
	if !m.InBounds(row, col) {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cells[row][col].Obstacle
}

// IsObstacle reports whether an in-bounds cell is an obstacle
func (m *Map) IsObstacle(row, col int) bool {
	if !m.InBounds(row, col) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cells[row][col].Obstacle
}

// IsVirtualWall reports whether a cell is a virtual wall. Out-of-bounds
// cells count as walls.
func (m *Map) IsVirtualWall(row, col int) bool {
	if !m.InBounds(row, col) {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cells[row][col].VirtualWall
}

// IsExplored reports whether an in-bounds cell has been explored
func (m *Map) IsExplored(row, col int) bool {
	if !m.InBounds(row, col) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cells[row][col].Explored
}

// SetExplored sets the explored flag of a single cell
func (m *Map) SetExplored(row, col int, explored bool) error {
	if !m.InBounds(row, col) {
		return outOfBounds(row, col)
	}
	m.mu.Lock()
	m.cells[row][col].Explored = explored
	m.mu.Unlock()
	return nil
}

// IsSafeCentre reports whether the robot's 3×3 footprint can be centred on
// (row, col): the centre is in bounds and is neither an obstacle nor a
// virtual wall. With requireExplored every footprint cell must also be explored.
func (m *Map) IsSafeCentre(row, col int, requireExplored bool) bool {
	if !m.InBounds(row, col) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	centre := m.cells[row][col]
	if centre.Obstacle || centre.VirtualWall {
		return false
	}
	if !requireExplored {
		return true
	}
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if !m.cells[row+dr][col+dc].Explored {
				return false
			}
		}
	}
	return true
}

// MarkAllExplored sets every cell to explored
func (m *Map) MarkAllExplored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for r := range m.cells {
		for c := range m.cells[r] {
			m.cells[r][c].Explored = true
		}
	}
}

// ResetExploration sets every cell to unexplored except the start and goal zones
func (m *Map) ResetExploration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for r := range m.cells {
		for c := range m.cells[r] {
			m.cells[r][c].Explored = inZone(m.start, r, c) || inZone(m.goal, r, c)
		}
	}
}

// ClearObstacles removes every obstacle and restores border-only virtual walls
func (m *Map) ClearObstacles() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for r := range m.cells {
		for c := range m.cells[r] {
			m.cells[r][c].Obstacle = false
			m.cells[r][c].VirtualWall = m.isBorder(r, c)
		}
	}
}

// ExploredCount returns the number of explored cells
func (m *Map) ExploredCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exploredCount()
}

// ObstacleCount returns the number of obstacle cells
func (m *Map) ObstacleCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, row := range m.cells {
		for _, cell := range row {
			if cell.Obstacle {
				count++
			}
		}
	}
	return count
}

// Coverage returns the explored fraction of the grid in [0, 1]
func (m *Map) Coverage() float64 {
	return float64(m.ExploredCount()) / float64(m.Size())
}

// Snapshot returns a consistent copy of the current map state
func (m *Map) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cells := make([][]Cell, m.rows)
	for r := range m.cells {
		cells[r] = make([]Cell, m.cols)
		copy(cells[r], m.cells[r])
	}
	explored := m.exploredCount()

	return Snapshot{
		Rows:     m.rows,
		Cols:     m.cols,
		Start:    m.start,
		Goal:     m.goal,
		Cells:    cells,
		Explored: explored,
		Coverage: float64(explored) / float64(m.rows*m.cols),
	}
}

// Clone returns an independent deep copy of the map
func (m *Map) Clone() *Map {
	snap := m.Snapshot()
	return &Map{
		rows:  m.rows,
		cols:  m.cols,
		start: m.start,
		goal:  m.goal,
		cells: snap.Cells,
	}
}

func (m *Map) exploredCount() int {
	count := 0
	for _, row := range m.cells {
		for _, cell := range row {
			if cell.Explored {
				count++
			}
		}
	}
	return count
}

// computeVirtualWall derives a cell's virtual-wall flag from border
// membership and its current obstacle neighbours. Caller holds the lock.
func (m *Map) computeVirtualWall(row, col int) bool {
	if m.isBorder(row, col) {
		return true
	}
	for _, off := range neighbourOffsets {
		r, c := row+off[0], col+off[1]
		if m.InBounds(r, c) && m.cells[r][c].Obstacle {
			return true
		}
	}
	return false
}

func (m *Map) isBorder(row, col int) bool {
	return row == 0 || col == 0 || row == m.rows-1 || col == m.cols-1
}

func (m *Map) zoneFits(centre Position) bool {
	return m.InBounds(centre.Row-ZoneRadius, centre.Col-ZoneRadius) &&
		m.InBounds(centre.Row+ZoneRadius, centre.Col+ZoneRadius)
}

func inZone(centre Position, row, col int) bool {
	return row >= centre.Row-ZoneRadius && row <= centre.Row+ZoneRadius &&
		col >= centre.Col-ZoneRadius && col <= centre.Col+ZoneRadius
}
