package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxislab/praxis-api/internal/models"
)

func seedSet(id string, status models.ApprovalStatus) models.QuestionSet {
	return models.QuestionSet{
		ID:                 id,
		StudentID:          "student-1",
		Domain:             "healthcare",
		GeneratedQuestions: []string{"Q1", "Q2", "Q3"},
		ApprovalStatus:     status,
		CreatedAt:          time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestApplyStatusAdvancesGeneration(t *testing.T) {
	sets := NewQuestionSets()
	sets.Put(seedSet("qs-1", models.ApprovalPending))

	captured := sets.Generation("qs-1")
	updated, outcome := sets.ApplyStatus("qs-1", captured, models.ApprovalApproved, "solid work")

	require.Equal(t, StatusApplied, outcome)
	require.Equal(t, models.ApprovalApproved, updated.ApprovalStatus)
	require.Equal(t, "solid work", updated.FacultyRemarks)
	require.Greater(t, sets.Generation("qs-1"), captured)
}

func TestApplyStatusDiscardsStaleResponse(t *testing.T) {
	sets := NewQuestionSets()
	sets.Put(seedSet("qs-1", models.ApprovalNone))

	captured := sets.Generation("qs-1")

	// A select lands while the status fetch is in flight.
	_, ok := sets.Update("qs-1", func(set *models.QuestionSet) {
		set.SelectedQuestion = "Q2"
		set.ApprovalStatus = models.ApprovalPending
	})
	require.True(t, ok)

	current, outcome := sets.ApplyStatus("qs-1", captured, models.ApprovalNone, "")
	require.Equal(t, StatusStale, outcome)
	require.Equal(t, models.ApprovalPending, current.ApprovalStatus)
	require.Equal(t, "Q2", current.SelectedQuestion)
}

func TestApplyStatusNeverRevertsTerminalState(t *testing.T) {
	sets := NewQuestionSets()
	sets.Put(seedSet("qs-1", models.ApprovalPending))

	captured := sets.Generation("qs-1")
	_, outcome := sets.ApplyStatus("qs-1", captured, models.ApprovalApproved, "")
	require.Equal(t, StatusApplied, outcome)

	captured = sets.Generation("qs-1")
	current, outcome := sets.ApplyStatus("qs-1", captured, models.ApprovalPending, "")
	require.Equal(t, StatusRegression, outcome)
	require.Equal(t, models.ApprovalApproved, current.ApprovalStatus)
}

func TestApplyStatusUnchangedRefreshesRemarks(t *testing.T) {
	sets := NewQuestionSets()
	sets.Put(seedSet("qs-1", models.ApprovalPending))

	captured := sets.Generation("qs-1")
	current, outcome := sets.ApplyStatus("qs-1", captured, models.ApprovalPending, "reviewing this week")

	require.Equal(t, StatusUnchanged, outcome)
	require.Equal(t, "reviewing this week", current.FacultyRemarks)
}

func TestApplyStatusMissingEntity(t *testing.T) {
	sets := NewQuestionSets()

	_, outcome := sets.ApplyStatus("unknown", 0, models.ApprovalApproved, "")
	require.Equal(t, StatusMissing, outcome)
}
