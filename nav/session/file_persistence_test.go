package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wricardo/mcp-training/arenanav/nav/config"
	"github.com/wricardo/mcp-training/arenanav/nav/descriptor"
	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/nav/service"
)

func newTestPersistence(t *testing.T) (*FilePersistence, *config.Manager, string) {
	t.Helper()
	arenas, err := config.NewManager("../../arenas")
	if err != nil {
		t.Fatalf("Failed to create arena manager: %v", err)
	}
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir, arenas)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	return persistence, arenas, dir
}

func TestFilePersistence(t *testing.T) {
	persistence, arenas, dir := newTestPersistence(t)

	arena, err := arenas.LoadArena("sample")
	if err != nil {
		t.Fatalf("Failed to load sample arena: %v", err)
	}
	sess, err := service.NewSession("test1", "sample", arena)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	// Partially explore the bottom rows and record one sensed obstacle
	for r := 0; r < 4; r++ {
		for c := 0; c < sess.Map.Cols(); c++ {
			_ = sess.Map.SetExplored(r, c, true)
		}
	}
	if err := sess.Map.SetObstacle(2, 6, true); err != nil {
		t.Fatalf("Failed to set obstacle: %v", err)
	}
	if err := sess.Reference.SetObstacle(10, 10, true); err != nil {
		t.Fatalf("Failed to edit reference: %v", err)
	}
	sess.Robot.SetPose(robot.Pose{Row: 1, Col: 4, Direction: robot.East})

	t.Run("Save and Load Session", func(t *testing.T) {
		if err := persistence.Save(sess); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		if loaded.ID != sess.ID || loaded.ArenaID != "sample" {
			t.Errorf("Unexpected identity %s/%s", loaded.ID, loaded.ArenaID)
		}
		if got, want := descriptor.Encode(loaded.Map), descriptor.Encode(sess.Map); got != want {
			t.Errorf("Explored map mismatch:\n got %v\nwant %v", got, want)
		}
		if !loaded.Reference.IsObstacle(10, 10) {
			t.Error("Expected reference edit to survive")
		}
		if loaded.Reference.ObstacleCount() != sess.Reference.ObstacleCount() {
			t.Errorf("Expected %d reference obstacles, got %d",
				sess.Reference.ObstacleCount(), loaded.Reference.ObstacleCount())
		}
		if loaded.Robot.Pose() != sess.Robot.Pose() {
			t.Errorf("Expected pose %v, got %v", sess.Robot.Pose(), loaded.Robot.Pose())
		}
		if !loaded.CreatedAt.Equal(sess.CreatedAt) {
			t.Errorf("Expected created time %v, got %v", sess.CreatedAt, loaded.CreatedAt)
		}
	})

	t.Run("Result survives", func(t *testing.T) {
		cp := sess.Checkpoint()
		cp.Result = &explore.Result{Reason: explore.Complete, Steps: 42, Coverage: 1}
		if err := sess.Restore(cp); err != nil {
			t.Fatalf("Failed to restore checkpoint: %v", err)
		}
		if err := persistence.Save(sess); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		loaded, err := persistence.Load("TEST1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		res := loaded.LastResult()
		if res == nil || res.Reason != explore.Complete || res.Steps != 42 {
			t.Errorf("Unexpected result %+v", res)
		}
	})

	t.Run("List and Delete", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to write stray file: %v", err)
		}
		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != "test1" {
			t.Errorf("Expected [test1], got %v", ids)
		}

		if err := persistence.Delete("test1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if persistence.Exists("test1") {
			t.Error("Session file should be gone")
		}
		if err := persistence.Delete("test1"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if _, err := persistence.Load("test1"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Corrupt descriptor", func(t *testing.T) {
		content := `{"id":"bad","arena_id":"sample","explored":"ZZ,00"}`
		if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
		if _, err := persistence.Load("bad"); err == nil {
			t.Error("Expected error for corrupt descriptor")
		}
	})

	t.Run("Nil session", func(t *testing.T) {
		if err := persistence.Save(nil); err == nil {
			t.Error("Expected error saving nil session")
		}
	})
}

func TestManagerWithPersistence(t *testing.T) {
	persistence, arenas, _ := newTestPersistence(t)
	manager := NewManager(WithPersistence(persistence))

	arena := arenas.GetDefault()

	t.Run("Create Session Auto-Saves", func(t *testing.T) {
		sess, err := manager.Create("auto1", "default", arena)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if !persistence.Exists(sess.ID) {
			t.Error("Session should be auto-saved on creation")
		}
	})

	t.Run("Get Session Loads from Persistence", func(t *testing.T) {
		sess, _ := manager.Get("auto1")
		_ = sess.Map.SetExplored(5, 5, true)
		if err := manager.Save("auto1"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		manager2 := NewManager(WithPersistence(persistence))
		loaded, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to load session through second manager: %v", err)
		}
		if !loaded.Map.IsExplored(5, 5) {
			t.Error("Expected explored cell to be restored")
		}
		if manager2.Count() != 1 {
			t.Errorf("Expected loaded session to be cached, got %d", manager2.Count())
		}
	})

	t.Run("LoadPersistedSessions", func(t *testing.T) {
		if _, err := manager.Create("auto2", "sample", mustArena(t, arenas, "sample")); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		manager3 := NewManager(WithPersistence(persistence))
		if err := manager3.LoadPersistedSessions(); err != nil {
			t.Fatalf("LoadPersistedSessions failed: %v", err)
		}
		if manager3.Count() != 2 {
			t.Errorf("Expected 2 sessions, got %d", manager3.Count())
		}
		if err := manager3.SaveAllSessions(); err != nil {
			t.Errorf("SaveAllSessions failed: %v", err)
		}
	})

	t.Run("Delete removes file", func(t *testing.T) {
		if err := manager.Delete("auto1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if persistence.Exists("auto1") {
			t.Error("Expected persisted session to be removed")
		}
	})

	t.Run("DeleteFromMemory keeps file", func(t *testing.T) {
		if err := manager.DeleteFromMemory("auto2"); err != nil {
			t.Fatalf("DeleteFromMemory failed: %v", err)
		}
		if !persistence.Exists("auto2") {
			t.Error("Expected persisted session to remain")
		}
		if _, err := manager.Get("auto2"); err != nil {
			t.Errorf("Expected session to reload from disk: %v", err)
		}
	})
}

func mustArena(t *testing.T, arenas *config.Manager, name string) *config.Arena {
	t.Helper()
	arena, err := arenas.LoadArena(name)
	if err != nil {
		t.Fatalf("Failed to load arena %s: %v", name, err)
	}
	return arena
}
