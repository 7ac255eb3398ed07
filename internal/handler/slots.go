package handler

import (
	"fmt"
	"sort"
	"sync"
)

// slotEntry is the value currently held by a custom handler slot.
type slotEntry struct {
	seq     uint64
	value   any
	release func()
}

// Slots stores custom handler values, at most one per (key, slot).
//
// Setting a populated slot replaces the previous value: its release
// function runs and its Disposer becomes a no-op.
type Slots struct {
	mu sync.Mutex

	owner string
	keys  map[string]bool
	seq   uint64

	entries map[string]map[string]*slotEntry
}

// NewSlots creates a custom handler store accepting the declared keys.
func NewSlots(owner string, keys ...string) *Slots {
	s := &Slots{
		owner:   owner,
		keys:    make(map[string]bool, len(keys)),
		entries: make(map[string]map[string]*slotEntry),
	}
	for _, k := range keys {
		s.keys[k] = true
	}
	return s
}

// Declared reports whether key is a custom handler key.
func (s *Slots) Declared(key string) bool {
	return s.keys[key]
}

// Set installs value in the given slot of key. release, if non-nil, runs
// when the value is disposed or replaced.
func (s *Slots) Set(key, slot string, value any, release func()) (*Disposer, error) {
	if !s.keys[key] {
		return nil, fmt.Errorf("%w: %q is not a custom handler key of %s", ErrInvalidExtensionHandler, key, s.owner)
	}

	s.mu.Lock()
	s.seq++
	entry := &slotEntry{seq: s.seq, value: value, release: release}
	if s.entries[key] == nil {
		s.entries[key] = make(map[string]*slotEntry)
	}
	previous := s.entries[key][slot]
	s.entries[key][slot] = entry
	s.mu.Unlock()

	if previous != nil && previous.release != nil {
		previous.release()
	}

	return NewDisposer(func() {
		s.mu.Lock()
		current := s.entries[key][slot]
		if current != entry {
			// Already replaced; the replacement released this entry.
			s.mu.Unlock()
			return
		}
		delete(s.entries[key], slot)
		s.mu.Unlock()

		if entry.release != nil {
			entry.release()
		}
	}), nil
}

// Get returns the value in a slot.
func (s *Slots) Get(key, slot string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key][slot]
	if !ok {
		return nil, false
	}
	return entry.value, true
}

// Values returns every value registered under key, oldest first.
func (s *Slots) Values(key string) []any {
	s.mu.Lock()
	entries := make([]*slotEntry, 0, len(s.entries[key]))
	for _, e := range s.entries[key] {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e.value
	}
	return out
}

// Len returns the number of populated slots for key.
func (s *Slots) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[key])
}

// Clear releases every stored value.
func (s *Slots) Clear() {
	s.mu.Lock()
	var releases []func()
	for key, slots := range s.entries {
		for _, e := range slots {
			if e.release != nil {
				releases = append(releases, e.release)
			}
		}
		delete(s.entries, key)
	}
	s.mu.Unlock()

	for _, r := range releases {
		r()
	}
}
