package history

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/loom/internal/pm"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Snapshot is a document and selection to return to.
type Snapshot struct {
	Doc       *pm.Node
	Selection pm.Selection
}

// entry wraps a snapshot with the time it was last extended.
type entry struct {
	snapshot  Snapshot
	timestamp time.Time
}

// Stack holds undo and redo snapshots.
type Stack struct {
	mu sync.Mutex

	undoStack []*entry
	redoStack []*entry

	// Configuration
	depth         int
	newGroupDelay time.Duration
}

// NewStack creates a stack keeping at most depth undo entries. Changes
// closer together than newGroupDelay share one entry.
func NewStack(depth int, newGroupDelay time.Duration) *Stack {
	if depth <= 0 {
		depth = 100 // Default
	}
	return &Stack{depth: depth, newGroupDelay: newGroupDelay}
}

// Record stores the snapshot taken before a change made at the given time.
// Clears the redo stack.
func (s *Stack) Record(before Snapshot, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.redoStack = nil

	if n := len(s.undoStack); n > 0 {
		last := s.undoStack[n-1]
		if at.Sub(last.timestamp) < s.newGroupDelay {
			// Same group: keep the older snapshot.
			last.timestamp = at
			return
		}
	}

	s.undoStack = append(s.undoStack, &entry{snapshot: before, timestamp: at})

	// Enforce depth
	if len(s.undoStack) > s.depth {
		excess := len(s.undoStack) - s.depth
		s.undoStack = s.undoStack[excess:]
	}
}

// Undo pops the last undo entry and pushes current onto the redo stack.
func (s *Stack) Undo(current Snapshot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undoStack) == 0 {
		return Snapshot{}, ErrNothingToUndo
	}
	e := s.undoStack[len(s.undoStack)-1]
	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	s.redoStack = append(s.redoStack, &entry{snapshot: current})
	return e.snapshot, nil
}

// Redo pops the last redo entry and pushes current onto the undo stack.
func (s *Stack) Redo(current Snapshot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redoStack) == 0 {
		return Snapshot{}, ErrNothingToRedo
	}
	e := s.redoStack[len(s.redoStack)-1]
	s.redoStack = s.redoStack[:len(s.redoStack)-1]
	// A redone change never merges with the next edit.
	s.undoStack = append(s.undoStack, &entry{snapshot: current})
	return e.snapshot, nil
}

// CanUndo returns true if undo is available.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redoStack) > 0
}

// UndoDepth returns the number of undo entries.
func (s *Stack) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undoStack)
}

// RedoDepth returns the number of redo entries.
func (s *Stack) RedoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redoStack)
}

// Configure changes depth and grouping delay, trimming the oldest entries
// if the stack is now too deep.
func (s *Stack) Configure(depth int, newGroupDelay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if depth > 0 {
		s.depth = depth
	}
	s.newGroupDelay = newGroupDelay
	if len(s.undoStack) > s.depth {
		s.undoStack = s.undoStack[len(s.undoStack)-s.depth:]
	}
}

// Clear removes all entries.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undoStack = nil
	s.redoStack = nil
}
