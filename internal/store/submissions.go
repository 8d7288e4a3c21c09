package store

import (
	"sync"
	"time"

	"github.com/praxislab/praxis-api/internal/models"
)

// Submissions tracks submission snapshots by id plus the per-student history
// list. History is only ever replaced wholesale from a server fetch, never
// appended locally, so the list always mirrors what the server returned last.
type Submissions struct {
	mu      sync.RWMutex
	byID    map[string]*models.Submission
	history map[string][]models.Submission
}

// NewSubmissions constructs an empty submission store.
func NewSubmissions() *Submissions {
	return &Submissions{
		byID:    make(map[string]*models.Submission),
		history: make(map[string][]models.Submission),
	}
}

// Upsert stores a submission snapshot.
func (s *Submissions) Upsert(submission models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := submission
	s.byID[submission.ID] = &copied
}

// Get returns the tracked submission for id.
func (s *Submissions) Get(id string) (models.Submission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	submission, ok := s.byID[id]
	if !ok {
		return models.Submission{}, false
	}
	return *submission, true
}

// AppendAnalysis attaches a SWOT result to the tracked submission.
func (s *Submissions) AppendAnalysis(id string, analysis models.SWOTAnalysis) (models.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	submission, ok := s.byID[id]
	if !ok {
		return models.Submission{}, false
	}

	submission.SWOTAnalyses = append(submission.SWOTAnalyses, analysis)
	submission.UpdatedAt = analysis.AnalyzedAt
	return *submission, true
}

// MarkSubmitted flips the tracked submission into the submitted state.
func (s *Submissions) MarkSubmitted(id string, at time.Time) (models.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	submission, ok := s.byID[id]
	if !ok {
		return models.Submission{}, false
	}

	submission.Status = models.SubmissionStatusSubmittedToFaculty
	submission.SubmittedAt = &at
	submission.UpdatedAt = at
	return *submission, true
}

// ReplaceHistory swaps the student's history for the server-provided list and
// refreshes the by-id snapshots from it.
func (s *Submissions) ReplaceHistory(studentID string, submissions []models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]models.Submission, len(submissions))
	copy(copied, submissions)
	s.history[studentID] = copied

	for i := range copied {
		entry := copied[i]
		s.byID[entry.ID] = &entry
	}
}

// History returns a copy of the student's tracked submission list.
func (s *Submissions) History(studentID string) []models.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracked := s.history[studentID]
	out := make([]models.Submission, len(tracked))
	copy(out, tracked)
	return out
}
