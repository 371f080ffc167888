package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
)

func blankLayout() []string {
	layout := make([]string, grid.DefaultRows)
	for i := range layout {
		layout[i] = strings.Repeat("0", grid.DefaultCols)
	}
	return layout
}

// setCell marks row,col in a layout whose first line is the last row
func setCell(layout []string, row, col int) {
	line := []byte(layout[len(layout)-1-row])
	line[col] = '1'
	layout[len(layout)-1-row] = string(line)
}

func writeArena(t *testing.T, dir, file string, layout []string, extra string) {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("name: Test\nrows: 20\ncols: 15\nstart: {row: 1, col: 1}\ngoal: {row: 18, col: 13}\n")
	sb.WriteString(extra)
	if len(layout) > 0 {
		sb.WriteString("layout:\n")
		for _, line := range layout {
			fmt.Fprintf(&sb, "  - %q\n", line)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(sb.String()), 0644); err != nil {
		t.Fatalf("Failed to write arena: %v", err)
	}
}

func hasMessage(result ValidationResult, substr string) bool {
	for _, msg := range result.Errors {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestValidateArena_ValidLayout(t *testing.T) {
	dir := t.TempDir()
	layout := blankLayout()
	setCell(layout, 8, 6)
	setCell(layout, 12, 10)
	writeArena(t, dir, "test.yaml", layout, "waypoint: {row: 10, col: 3}\n")

	result := validateArena(dir, "test.yaml")
	if !result.Valid {
		t.Fatalf("Expected valid arena, but got errors: %v", result.Errors)
	}
	if result.File != "test.yaml" {
		t.Errorf("Expected file name test.yaml, got %s", result.File)
	}
	if !hasMessage(result, "Obstacles: 2") {
		t.Errorf("Expected obstacle count in %v", result.Errors)
	}
	if !hasMessage(result, "Waypoint route") {
		t.Errorf("Expected waypoint route summary in %v", result.Errors)
	}
}

func TestValidateArena_OpenArena(t *testing.T) {
	dir := t.TempDir()
	writeArena(t, dir, "open.yaml", nil, "")

	result := validateArena(dir, "open.yaml")
	if !result.Valid {
		t.Fatalf("Expected valid arena, but got errors: %v", result.Errors)
	}
	if !hasMessage(result, "Obstacles: 0") {
		t.Errorf("Expected no obstacles in %v", result.Errors)
	}
}

func TestValidateArena_BundledArenas(t *testing.T) {
	for _, file := range []string{"default.yaml", "sample.yaml", "partial.yaml"} {
		t.Run(file, func(t *testing.T) {
			result := validateArena("../arenas", file)
			if !result.Valid {
				t.Errorf("Expected %s to be valid, got errors: %v", file, result.Errors)
			}
		})
	}
}

func TestValidateArena_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	result := validateArena(dir, "broken.yaml")
	if result.Valid {
		t.Error("Expected invalid arena due to bad YAML")
	}
	if !hasMessage(result, "Invalid arena") {
		t.Errorf("Expected 'Invalid arena' error, got %v", result.Errors)
	}
}

func TestValidateArena_MissingDirectory(t *testing.T) {
	result := validateArena("/non/existent/dir", "test.yaml")
	if result.Valid {
		t.Error("Expected invalid result for missing directory")
	}
	if !hasMessage(result, "Failed to open arena directory") {
		t.Errorf("Expected directory error, got %v", result.Errors)
	}
}

func TestValidateArena_WrongLayoutLength(t *testing.T) {
	dir := t.TempDir()
	writeArena(t, dir, "short.yaml", []string{"0000"}, "")

	result := validateArena(dir, "short.yaml")
	if result.Valid {
		t.Error("Expected invalid arena for a short layout")
	}
}

func TestValidateArena_ProtectedZoneObstacle(t *testing.T) {
	dir := t.TempDir()
	layout := blankLayout()
	setCell(layout, 0, 0)
	writeArena(t, dir, "zone.yaml", layout, "")

	result := validateArena(dir, "zone.yaml")
	if result.Valid {
		t.Error("Expected invalid arena for an obstacle in the start zone")
	}
	if !hasMessage(result, "protected zone at (0,0)") {
		t.Errorf("Expected protected zone error, got %v", result.Errors)
	}
}

func TestValidateArena_UnreachableGoal(t *testing.T) {
	dir := t.TempDir()
	layout := blankLayout()
	for col := 0; col < grid.DefaultCols; col++ {
		setCell(layout, 10, col)
	}
	writeArena(t, dir, "wall.yaml", layout, "")

	result := validateArena(dir, "wall.yaml")
	if result.Valid {
		t.Error("Expected invalid arena for a wall across the arena")
	}
	if !hasMessage(result, "Connectivity failure") {
		t.Errorf("Expected connectivity failure, got %v", result.Errors)
	}
}

func TestValidateMapFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "valid.txt")
		layout := blankLayout()
		setCell(layout, 5, 5)
		if err := os.WriteFile(path, []byte(strings.Join(layout, "\n")+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		result := validateMapFile(path)
		if !result.Valid {
			t.Errorf("Expected valid map, got %v", result.Errors)
		}
		if !hasMessage(result, "Obstacles: 1") {
			t.Errorf("Expected obstacle count, got %v", result.Errors)
		}
	})

	t.Run("bad alphabet", func(t *testing.T) {
		path := filepath.Join(dir, "alphabet.txt")
		layout := blankLayout()
		layout[3] = "00000x000000000"
		if err := os.WriteFile(path, []byte(strings.Join(layout, "\n")), 0644); err != nil {
			t.Fatal(err)
		}
		result := validateMapFile(path)
		if result.Valid || !hasMessage(result, "Malformed legacy map") {
			t.Errorf("Expected malformed map error, got %v", result.Errors)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		result := validateMapFile(filepath.Join(dir, "missing.txt"))
		if result.Valid || !hasMessage(result, "Failed to read file") {
			t.Errorf("Expected read error, got %v", result.Errors)
		}
	})
}

func TestValidateConnectivity_Waypoint(t *testing.T) {
	ref := grid.NewDefault()
	ref.MarkAllExplored()

	// Waypoint on the border cannot hold the 3×3 robot
	waypoint := grid.Position{Row: 0, Col: 7}
	result := validateConnectivity(ref, fastestpath.DefaultOptions(), &waypoint)
	if result.Valid {
		t.Error("Expected waypoint on the border to be unreachable")
	}

	reachable := grid.Position{Row: 10, Col: 7}
	result = validateConnectivity(ref, fastestpath.DefaultOptions(), &reachable)
	if !result.Valid {
		t.Errorf("Expected reachable waypoint, got %v", result.Errors)
	}
}

func TestReferencedMaps(t *testing.T) {
	refs := referencedMaps("../arenas")
	if !refs["sample.txt"] {
		t.Errorf("Expected sample.txt to be referenced, got %v", refs)
	}
	if len(referencedMaps("/non/existent/dir")) != 0 {
		t.Error("Expected no references for a missing directory")
	}
}
