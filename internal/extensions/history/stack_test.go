package history

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/loom/internal/pm"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func snap(anchor int) Snapshot {
	return Snapshot{Selection: pm.Cursor(anchor)}
}

func TestStackEmpty(t *testing.T) {
	s := NewStack(10, 0)
	if s.CanUndo() || s.CanRedo() {
		t.Error("new stack reports undo or redo available")
	}
	if _, err := s.Undo(snap(0)); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() error = %v, want ErrNothingToUndo", err)
	}
	if _, err := s.Redo(snap(0)); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo() error = %v, want ErrNothingToRedo", err)
	}
}

func TestStackGrouping(t *testing.T) {
	s := NewStack(10, 500*time.Millisecond)
	s.Record(snap(1), t0)
	s.Record(snap(2), t0.Add(300*time.Millisecond))
	s.Record(snap(3), t0.Add(700*time.Millisecond))
	s.Record(snap(4), t0.Add(1300*time.Millisecond))

	// The window extends with each change: 0, 300, 700 form one group.
	if got := s.UndoDepth(); got != 2 {
		t.Fatalf("UndoDepth() = %d, want 2", got)
	}
	got, _ := s.Undo(snap(5))
	if got.Selection.Head != 4 {
		t.Errorf("first Undo() = %d, want 4", got.Selection.Head)
	}
	got, _ = s.Undo(got)
	if got.Selection.Head != 1 {
		t.Errorf("second Undo() = %d, want the oldest snapshot of the group", got.Selection.Head)
	}
}

func TestStackRedoClearedByRecord(t *testing.T) {
	s := NewStack(10, 0)
	s.Record(snap(1), t0)
	before, _ := s.Undo(snap(2))
	if !s.CanRedo() {
		t.Fatal("CanRedo() = false after Undo")
	}
	redone, err := s.Redo(before)
	if err != nil || redone.Selection.Head != 2 {
		t.Fatalf("Redo() = %v, %v, want snapshot 2", redone, err)
	}
	s.Undo(redone)
	s.Record(snap(3), t0.Add(time.Second))
	if s.CanRedo() {
		t.Error("CanRedo() = true after a new change")
	}
}

func TestStackDepth(t *testing.T) {
	s := NewStack(2, 0)
	for i := range 5 {
		s.Record(snap(i), t0.Add(time.Duration(i)*time.Second))
	}
	if got := s.UndoDepth(); got != 2 {
		t.Errorf("UndoDepth() = %d, want 2", got)
	}
	got, _ := s.Undo(snap(9))
	if got.Selection.Head != 4 {
		t.Errorf("Undo() = %d, want newest entry 4", got.Selection.Head)
	}

	s.Configure(1, 0)
	if got := s.UndoDepth(); got != 1 {
		t.Errorf("UndoDepth() after Configure = %d, want 1", got)
	}
}
