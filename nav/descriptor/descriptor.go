package descriptor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/arenanav/nav/grid"
)

const hexDigits = "0123456789ABCDEF"

var ErrMalformedDescriptor = errors.New("malformed map descriptor")

// Descriptor is the two-part hex encoding of a map
type Descriptor struct {
	Part1 string `json:"part1"`
	Part2 string `json:"part2"`
}

func (d Descriptor) String() string {
	return d.Part1 + "," + d.Part2
}

// Parse splits the "part1,part2" form produced by String
func Parse(s string) (Descriptor, error) {
	part1, part2, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: missing part separator", ErrMalformedDescriptor)
	}
	return Descriptor{Part1: part1, Part2: part2}, nil
}

// Encode builds both descriptor parts from the current map state
func Encode(m *grid.Map) Descriptor {
	snap := m.Snapshot()

	part1 := make([]bool, 0, snap.Rows*snap.Cols+4)
	part1 = append(part1, true, true)
	var part2 []bool
	for r := 0; r < snap.Rows; r++ {
		for c := 0; c < snap.Cols; c++ {
			cell := snap.Cells[r][c]
			part1 = append(part1, cell.Explored)
			if cell.Explored {
				part2 = append(part2, cell.Obstacle)
			}
		}
	}
	part1 = append(part1, true, true)

	return Descriptor{Part1: packPadded(part1), Part2: packRightAligned(part2)}
}

// Decode replaces the explored and obstacle state of m with the contents of
// d. The map is left unchanged when d is malformed.
func Decode(d Descriptor, m *grid.Map) error {
	rows, cols := m.Rows(), m.Cols()
	cells := rows * cols

	part1, err := unpack(d.Part1, cells+4, true)
	if err != nil {
		return fmt.Errorf("part 1: %w", err)
	}
	if !part1[0] || !part1[1] || !part1[cells+2] || !part1[cells+3] {
		return fmt.Errorf("part 1: %w: missing sentinel", ErrMalformedDescriptor)
	}
	explored := part1[2 : cells+2]

	count := 0
	for _, e := range explored {
		if e {
			count++
		}
	}

	part2, err := unpack(d.Part2, count, false)
	if err != nil {
		return fmt.Errorf("part 2: %w", err)
	}

	obstacles := make([]bool, cells)
	k := 0
	for i, e := range explored {
		if !e {
			continue
		}
		obstacles[i] = part2[k]
		k++
		if obstacles[i] && (m.InStartZone(i/cols, i%cols) || m.InGoalZone(i/cols, i%cols)) {
			return fmt.Errorf("%w: obstacle in protected zone at (%d,%d)", ErrMalformedDescriptor, i/cols, i%cols)
		}
	}

	m.ClearObstacles()
	for i := range explored {
		r, c := i/cols, i%cols
		if err := m.SetExplored(r, c, explored[i]); err != nil {
			return err
		}
		if obstacles[i] {
			if err := m.SetObstacle(r, c, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// packPadded packs bits into hex digits, zero-padding the last group on
// its right
func packPadded(bits []bool) string {
	var sb strings.Builder
	for i := 0; i < len(bits); i += 4 {
		nibble := 0
		for j := 0; j < 4; j++ {
			nibble <<= 1
			if i+j < len(bits) && bits[i+j] {
				nibble |= 1
			}
		}
		sb.WriteByte(hexDigits[nibble])
	}
	return sb.String()
}

// packRightAligned packs bits into hex digits; a short last group is
// written as the numeric value of its bits
func packRightAligned(bits []bool) string {
	var sb strings.Builder
	for i := 0; i < len(bits); i += 4 {
		nibble := 0
		for j := i; j < i+4 && j < len(bits); j++ {
			nibble <<= 1
			if bits[j] {
				nibble |= 1
			}
		}
		sb.WriteByte(hexDigits[nibble])
	}
	return sb.String()
}

// unpack expands hex digits into exactly n bits. padded selects where a
// short final group sits: on the left of the last digit (padded) or on
// its right (right-aligned). Unused bits must be zero.
func unpack(s string, n int, padded bool) ([]bool, error) {
	want := (n + 3) / 4
	if len(s) != want {
		return nil, fmt.Errorf("%w: %d hex digits, want %d", ErrMalformedDescriptor, len(s), want)
	}

	bits := make([]bool, 0, n)
	for i := 0; i < len(s); i++ {
		nibble := strings.IndexByte(hexDigits, upper(s[i]))
		if nibble < 0 {
			return nil, fmt.Errorf("%w: invalid hex digit %q", ErrMalformedDescriptor, s[i])
		}

		width := 4
		if remaining := n - len(bits); remaining < 4 {
			width = remaining
		}

		if width < 4 {
			if padded {
				if nibble&(1<<(4-width)-1) != 0 {
					return nil, fmt.Errorf("%w: non-zero padding", ErrMalformedDescriptor)
				}
				nibble >>= 4 - width
			} else if nibble >= 1<<width {
				return nil, fmt.Errorf("%w: final digit %q exceeds %d bits", ErrMalformedDescriptor, s[i], width)
			}
		}

		for j := width - 1; j >= 0; j-- {
			bits = append(bits, nibble&(1<<j) != 0)
		}
	}
	return bits, nil
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'f' {
		return b - 'a' + 'A'
	}
	return b
}
