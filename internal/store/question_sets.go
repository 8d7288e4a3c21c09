// Package store holds the gateway's in-memory entity snapshots. All durable
// state lives in the remote service groups; these stores only reconcile what
// the server last reported, so every write path is serialized per entity and
// guarded by a generation counter that lets callers discard stale responses.
package store

import (
	"sync"

	"github.com/praxislab/praxis-api/internal/models"
)

// StatusOutcome describes what happened to an attempted status write.
type StatusOutcome int

const (
	// StatusApplied means the transition was written and the generation advanced.
	StatusApplied StatusOutcome = iota
	// StatusUnchanged means the reported status matched the stored one.
	StatusUnchanged
	// StatusStale means the entity changed since the caller captured its generation.
	StatusStale
	// StatusRegression means the write would have reverted a terminal status.
	StatusRegression
	// StatusMissing means no entity with that id is tracked.
	StatusMissing
)

type questionSetEntry struct {
	set        models.QuestionSet
	generation uint64
}

// QuestionSets tracks the latest known snapshot of each question set.
type QuestionSets struct {
	mu      sync.RWMutex
	entries map[string]*questionSetEntry
}

// NewQuestionSets constructs an empty question set store.
func NewQuestionSets() *QuestionSets {
	return &QuestionSets{entries: make(map[string]*questionSetEntry)}
}

// Put stores a fresh snapshot, replacing whatever was tracked before.
func (s *QuestionSets) Put(set models.QuestionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[set.ID]
	if !ok {
		s.entries[set.ID] = &questionSetEntry{set: set, generation: 1}
		return
	}

	entry.set = set
	entry.generation++
}

// Get returns the tracked snapshot for id.
func (s *QuestionSets) Get(id string) (models.QuestionSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return models.QuestionSet{}, false
	}
	return entry.set, true
}

// Generation returns the current write generation for id. Callers capture it
// before a remote round-trip and pass it back to ApplyStatus so responses
// that raced a newer write are discarded.
func (s *QuestionSets) Generation(id string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.entries[id]; ok {
		return entry.generation
	}
	return 0
}

// Update runs mutate against the tracked snapshot under the write lock.
func (s *QuestionSets) Update(id string, mutate func(*models.QuestionSet)) (models.QuestionSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return models.QuestionSet{}, false
	}

	mutate(&entry.set)
	entry.generation++
	return entry.set, true
}

// ApplyStatus writes a server-reported approval status. The write is dropped
// when the caller's captured generation is out of date or when it would
// revert a terminal status. Remarks are refreshed on unchanged status so
// late-arriving faculty notes still show up.
func (s *QuestionSets) ApplyStatus(id string, captured uint64, next models.ApprovalStatus, remarks string) (models.QuestionSet, StatusOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return models.QuestionSet{}, StatusMissing
	}
	if entry.generation != captured {
		return entry.set, StatusStale
	}

	current := entry.set.ApprovalStatus
	if next == current {
		if remarks != "" && remarks != entry.set.FacultyRemarks {
			entry.set.FacultyRemarks = remarks
			entry.generation++
		}
		return entry.set, StatusUnchanged
	}
	if !current.CanTransition(next) {
		return entry.set, StatusRegression
	}

	entry.set.ApprovalStatus = next
	if remarks != "" {
		entry.set.FacultyRemarks = remarks
	}
	entry.generation++
	return entry.set, StatusApplied
}
