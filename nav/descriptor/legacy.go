package descriptor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wricardo/mcp-training/arenanav/nav/grid"
)

// ReadLegacy parses a legacy map into an obstacle matrix indexed [row][col]
func ReadLegacy(r io.Reader, rows, cols int) ([][]bool, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		sb.WriteString(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read legacy map: %w", err)
	}

	bin := sb.String()
	if len(bin) != rows*cols {
		return nil, fmt.Errorf("%w: legacy map has %d cells, want %d", ErrMalformedDescriptor, len(bin), rows*cols)
	}

	obstacles := make([][]bool, rows)
	for row := range obstacles {
		obstacles[row] = make([]bool, cols)
	}

	i := 0
	for row := rows - 1; row >= 0; row-- {
		for col := 0; col < cols; col++ {
			switch bin[i] {
			case '1':
				obstacles[row][col] = true
			case '0':
			default:
				return nil, fmt.Errorf("%w: invalid legacy character %q at offset %d", ErrMalformedDescriptor, bin[i], i)
			}
			i++
		}
	}
	return obstacles, nil
}

// LoadLegacy sets obstacles on m from a legacy map and marks every cell
// explored. Obstacles that fall in a protected zone are skipped and
// returned.
func LoadLegacy(r io.Reader, m *grid.Map) ([]grid.Position, error) {
	obstacles, err := ReadLegacy(r, m.Rows(), m.Cols())
	if err != nil {
		return nil, err
	}

	var skipped []grid.Position
	m.ClearObstacles()
	for row := range obstacles {
		for col, obstacle := range obstacles[row] {
			if !obstacle {
				continue
			}
			err := m.SetObstacle(row, col, true)
			if errors.Is(err, grid.ErrInvalidPlacement) {
				skipped = append(skipped, grid.Position{Row: row, Col: col})
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}
	m.MarkAllExplored()
	return skipped, nil
}

// LoadLegacyFile loads a legacy map file into m
func LoadLegacyFile(path string, m *grid.Map) ([]grid.Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map %s: %w", path, err)
	}
	defer f.Close()
	return LoadLegacy(f, m)
}

// EncodeLegacy writes the obstacle state of m in legacy form, one line per
// row starting from the last row
func EncodeLegacy(m *grid.Map) string {
	snap := m.Snapshot()
	var sb strings.Builder
	sb.Grow(snap.Rows * (snap.Cols + 1))
	for row := snap.Rows - 1; row >= 0; row-- {
		for col := 0; col < snap.Cols; col++ {
			if snap.Cells[row][col].Obstacle {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
