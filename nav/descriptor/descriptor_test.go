package descriptor

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
)

func TestEncode_StartAndGoalZonesOnly(t *testing.T) {
	m := grid.NewDefault()
	m.ResetExploration()

	d := Encode(m)

	assert.Equal(t, "F8007000E00000000000000000000000000000000000000000000000000000000007000E001F", d.Part1)
	assert.Len(t, d.Part1, 76)
	assert.Equal(t, "00000", d.Part2)
}

func TestEncode_ObstacleBit(t *testing.T) {
	m := grid.NewDefault()
	m.MarkAllExplored()
	require.NoError(t, m.SetObstacle(5, 5, true))

	d := Encode(m)
	assert.Equal(t, strings.Repeat("F", 76), d.Part1)
	assert.Equal(t, "000000000000000000008"+strings.Repeat("0", 54), d.Part2)
}

func TestEncode_PartialFinalGroupRightAligned(t *testing.T) {
	m, err := grid.New(20, 15, grid.Position{Row: 1, Col: 1}, grid.Position{Row: 10, Col: 7})
	require.NoError(t, err)
	m.ResetExploration()
	require.NoError(t, m.SetExplored(18, 13, true))
	require.NoError(t, m.SetObstacle(18, 13, true))

	// 19 explored cells: the last group holds 3 bits, 001
	d := Encode(m)
	assert.Equal(t, "00001", d.Part2)

	dst, err := grid.New(20, 15, grid.Position{Row: 1, Col: 1}, grid.Position{Row: 10, Col: 7})
	require.NoError(t, err)
	require.NoError(t, Decode(d, dst))
	assert.True(t, dst.IsObstacle(18, 13))
	assert.Equal(t, 19, dst.ExploredCount())
}

func TestDecode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 25; trial++ {
		src := grid.NewDefault()
		for r := 0; r < src.Rows(); r++ {
			for c := 0; c < src.Cols(); c++ {
				require.NoError(t, src.SetExplored(r, c, rng.Intn(3) > 0))
				if rng.Intn(6) == 0 {
					_ = src.SetObstacle(r, c, true)
				}
			}
		}

		d := Encode(src)
		dst := grid.NewDefault()
		require.NoError(t, Decode(d, dst))

		for r := 0; r < src.Rows(); r++ {
			for c := 0; c < src.Cols(); c++ {
				assert.Equal(t, src.IsExplored(r, c), dst.IsExplored(r, c), "explored (%d,%d)", r, c)
				if src.IsExplored(r, c) {
					assert.Equal(t, src.IsObstacle(r, c), dst.IsObstacle(r, c), "obstacle (%d,%d)", r, c)
				} else {
					assert.False(t, dst.IsObstacle(r, c))
				}
			}
		}
		assert.Equal(t, d, Encode(dst))
	}
}

func TestDecode_AcceptsLowercase(t *testing.T) {
	m := grid.NewDefault()
	m.ResetExploration()
	d := Encode(m)

	dst := grid.NewDefault()
	require.NoError(t, Decode(Descriptor{Part1: strings.ToLower(d.Part1), Part2: d.Part2}, dst))
	assert.Equal(t, 18, dst.ExploredCount())
}

func TestDecode_Malformed(t *testing.T) {
	m := grid.NewDefault()
	m.ResetExploration()
	valid := Encode(m)

	tests := []struct {
		name string
		d    Descriptor
	}{
		{"short part 1", Descriptor{Part1: valid.Part1[:75], Part2: valid.Part2}},
		{"long part 2", Descriptor{Part1: valid.Part1, Part2: valid.Part2 + "0"}},
		{"short part 2", Descriptor{Part1: valid.Part1, Part2: "0000"}},
		{"missing leading sentinel", Descriptor{Part1: "3" + valid.Part1[1:], Part2: valid.Part2}},
		{"missing trailing sentinel", Descriptor{Part1: valid.Part1[:75] + "E", Part2: valid.Part2}},
		{"final part 2 digit too wide", Descriptor{Part1: valid.Part1, Part2: "00004"}},
		{"bad hex", Descriptor{Part1: valid.Part1, Part2: "0000G"}},
		{"obstacle in start zone", Descriptor{Part1: valid.Part1, Part2: "80000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := grid.NewDefault()
			require.NoError(t, dst.SetObstacle(10, 10, true))

			err := Decode(tt.d, dst)
			assert.ErrorIs(t, err, ErrMalformedDescriptor)
			assert.True(t, dst.IsObstacle(10, 10), "map must be untouched")
			assert.Equal(t, 0, dst.ExploredCount())
		})
	}
}

func TestDecode_PaddedPart1(t *testing.T) {
	// 15 cells and 4 sentinel bits leave one padding bit
	m, err := grid.New(3, 5, grid.Position{Row: 1, Col: 1}, grid.Position{Row: 1, Col: 3})
	require.NoError(t, err)
	m.MarkAllExplored()

	d := Encode(m)
	assert.Equal(t, "FFFFE", d.Part1)

	dst, err := grid.New(3, 5, grid.Position{Row: 1, Col: 1}, grid.Position{Row: 1, Col: 3})
	require.NoError(t, err)
	require.NoError(t, Decode(d, dst))
	assert.Equal(t, 15, dst.ExploredCount())

	err = Decode(Descriptor{Part1: "FFFFF", Part2: d.Part2}, dst)
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
}

func TestParse(t *testing.T) {
	d, err := Parse("FF,00\n")
	require.NoError(t, err)
	assert.Equal(t, Descriptor{Part1: "FF", Part2: "00"}, d)
	assert.Equal(t, "FF,00", d.String())

	_, err = Parse("FF")
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
}

func legacyWithObstacle(rows, cols, row, col int) string {
	var sb strings.Builder
	for r := rows - 1; r >= 0; r-- {
		for c := 0; c < cols; c++ {
			if r == row && c == col {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestLoadLegacy(t *testing.T) {
	m := grid.NewDefault()
	skipped, err := LoadLegacy(strings.NewReader(legacyWithObstacle(20, 15, 5, 7)), m)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	assert.True(t, m.IsObstacle(5, 7))
	assert.Equal(t, 1, m.ObstacleCount())
	assert.Equal(t, m.Size(), m.ExploredCount())
}

func TestLoadLegacy_FirstCharacterIsTopLeft(t *testing.T) {
	content := "1" + strings.Repeat("0", 299)
	m := grid.NewDefault()
	_, err := LoadLegacy(strings.NewReader(content), m)
	require.NoError(t, err)
	assert.True(t, m.IsObstacle(19, 0))
}

func TestLoadLegacy_SkipsProtectedZones(t *testing.T) {
	m := grid.NewDefault()
	skipped, err := LoadLegacy(strings.NewReader(legacyWithObstacle(20, 15, 1, 1)), m)
	require.NoError(t, err)
	assert.Equal(t, []grid.Position{{Row: 1, Col: 1}}, skipped)
	assert.Equal(t, 0, m.ObstacleCount())
}

func TestLoadLegacy_Malformed(t *testing.T) {
	m := grid.NewDefault()

	_, err := LoadLegacy(strings.NewReader("0101"), m)
	assert.ErrorIs(t, err, ErrMalformedDescriptor)

	_, err = LoadLegacy(strings.NewReader(strings.Repeat("2", 300)), m)
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
}

func TestEncodeLegacy_RoundTrip(t *testing.T) {
	src := grid.NewDefault()
	require.NoError(t, src.SetObstacle(4, 9, true))
	require.NoError(t, src.SetObstacle(12, 3, true))

	path := filepath.Join(t.TempDir(), "arena.txt")
	require.NoError(t, os.WriteFile(path, []byte(EncodeLegacy(src)), 0o644))

	dst := grid.NewDefault()
	_, err := LoadLegacyFile(path, dst)
	require.NoError(t, err)
	assert.True(t, dst.IsObstacle(4, 9))
	assert.True(t, dst.IsObstacle(12, 3))
	assert.Equal(t, 2, dst.ObstacleCount())
}

func TestLoadLegacyFile_Missing(t *testing.T) {
	_, err := LoadLegacyFile(filepath.Join(t.TempDir(), "nope.txt"), grid.NewDefault())
	assert.Error(t, err)
}
