package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/store"
	"github.com/praxislab/praxis-api/pkg/backend"
)

type rubricFixture struct {
	sets        *store.QuestionSets
	submissions *store.Submissions
	service     RubricService
	calls       *int32
}

func newRubricFixture(t *testing.T, mux *http.ServeMux) rubricFixture {
	t.Helper()

	var calls int32
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		mux.ServeHTTP(w, r)
	})

	sets := store.NewQuestionSets()
	submissions := store.NewSubmissions()
	service := NewRubricService(sets, submissions, newTestBackend(t, counted), testValidator(), testLogger())
	return rubricFixture{sets: sets, submissions: submissions, service: service, calls: &calls}
}

func sampleRubricRequest() dto.RubricRequest {
	return dto.RubricRequest{
		Name:        "Case Study Rubric",
		Description: "Grades written case analyses",
		Criteria: []dto.RubricCriterionRequest{{
			Description: "Argument quality",
			Weight:      0.6,
			Levels: []dto.RubricLevelRequest{
				{Score: 1, Description: "Weak"},
				{Score: 5, Description: "Convincing"},
			},
		}},
	}
}

func sampleRubricPayload(id string) backend.RubricPayload {
	return backend.RubricPayload{
		ID:          id,
		Name:        "Case Study Rubric",
		Description: "Grades written case analyses",
		Criteria: []backend.RubricCriterionInput{{
			Description: "Argument quality",
			Weight:      0.6,
			Levels: []backend.RubricLevelInput{
				{Score: 1, Description: "Weak"},
				{Score: 5, Description: "Convincing"},
			},
		}},
		CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestRubricServiceCreateSendsDefinition(t *testing.T) {
	var sent backend.RubricRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/rubrics", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		json.NewEncoder(w).Encode(sampleRubricPayload("r-1"))
	})

	fx := newRubricFixture(t, mux)
	created, err := fx.service.CreateRubric(context.Background(), sampleRubricRequest())
	require.NoError(t, err)
	require.Equal(t, "Case Study Rubric", sent.Name)
	require.Len(t, sent.Criteria, 1)
	require.Len(t, sent.Criteria[0].Levels, 2)
	require.Equal(t, "r-1", created.ID)
	require.Equal(t, 0.6, created.Criteria[0].Weight)
}

func TestRubricServiceCreateValidatesCriteria(t *testing.T) {
	fx := newRubricFixture(t, http.NewServeMux())

	_, err := fx.service.CreateRubric(context.Background(), dto.RubricRequest{Name: "Empty"})
	require.Error(t, err)
	require.Zero(t, atomic.LoadInt32(fx.calls))
}

func TestRubricServiceListMapsDefinitions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rubrics", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]backend.RubricPayload{
			sampleRubricPayload("r-1"),
			sampleRubricPayload("r-2"),
		})
	})

	fx := newRubricFixture(t, mux)
	rubrics, err := fx.service.ListRubrics(context.Background())
	require.NoError(t, err)
	require.Len(t, rubrics, 2)
	require.Equal(t, "r-1", rubrics[0].ID)
	require.Equal(t, "Argument quality", rubrics[0].Criteria[0].Description)
}

func TestRubricServiceUpdateAndDelete(t *testing.T) {
	var gotMethods []string
	mux := http.NewServeMux()
	mux.HandleFunc("/rubrics/r-1", func(w http.ResponseWriter, r *http.Request) {
		gotMethods = append(gotMethods, r.Method)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(sampleRubricPayload("r-1"))
	})

	fx := newRubricFixture(t, mux)
	updated, err := fx.service.UpdateRubric(context.Background(), "r-1", sampleRubricRequest())
	require.NoError(t, err)
	require.Equal(t, "r-1", updated.ID)

	require.NoError(t, fx.service.DeleteRubric(context.Background(), "r-1"))
	require.Equal(t, []string{http.MethodPut, http.MethodDelete}, gotMethods)

	var validationErr *ValidationError
	_, err = fx.service.UpdateRubric(context.Background(), "  ", sampleRubricRequest())
	require.ErrorAs(t, err, &validationErr)
	require.ErrorAs(t, fx.service.DeleteRubric(context.Background(), ""), &validationErr)
}

func TestRubricServicePendingSubmissionsPassthrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/pending", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]backend.SubmissionPayload{{
			ID:        "S1",
			StudentID: "student-1",
			Status:    models.SubmissionStatusSubmittedToFaculty,
		}})
	})

	fx := newRubricFixture(t, mux)
	pending, err := fx.service.PendingSubmissions(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "S1", pending[0].ID)
}

func TestRubricServiceEvaluateRecordsResult(t *testing.T) {
	evaluatedAt := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	var sent backend.EvaluateRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/submissions/S1/evaluate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		json.NewEncoder(w).Encode(backend.SubmissionPayload{
			ID:        "S1",
			StudentID: "student-1",
			Status:    models.SubmissionStatusSubmittedToFaculty,
			FacultyEvaluation: &backend.FacultyEvaluationPayload{
				RubricScores: []backend.RubricScorePayload{{Criterion: "Argument quality", Score: 4, MaxScore: 5}},
				Comments:     "Well argued",
				EvaluatedBy:  "faculty-1",
				EvaluatedAt:  &evaluatedAt,
			},
			UpdatedAt: evaluatedAt,
		})
	})

	fx := newRubricFixture(t, mux)
	evaluated, err := fx.service.EvaluateSubmission(context.Background(), "S1", dto.EvaluateSubmissionRequest{
		CriteriaScores: map[string]float64{"Argument quality": 4},
		Feedback:       "Well argued",
		FacultyID:      "faculty-1",
	})
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"Argument quality": 4}, sent.CriteriaScores)
	require.NotNil(t, evaluated.FacultyEvaluation)
	require.Equal(t, 4.0, evaluated.FacultyEvaluation.RubricScores[0].Score)

	tracked, ok := fx.submissions.Get("S1")
	require.True(t, ok)
	require.NotNil(t, tracked.FacultyEvaluation)
	require.Equal(t, "faculty-1", tracked.FacultyEvaluation.EvaluatedBy)
}

func TestRubricServiceEvaluateValidatesScores(t *testing.T) {
	fx := newRubricFixture(t, http.NewServeMux())

	_, err := fx.service.EvaluateSubmission(context.Background(), "S1", dto.EvaluateSubmissionRequest{
		FacultyID: "faculty-1",
	})
	require.Error(t, err)

	var validationErr *ValidationError
	_, err = fx.service.EvaluateSubmission(context.Background(), " ", dto.EvaluateSubmissionRequest{
		CriteriaScores: map[string]float64{"clarity": 3},
		FacultyID:      "faculty-1",
	})
	require.ErrorAs(t, err, &validationErr)
	require.Zero(t, atomic.LoadInt32(fx.calls))
}

func TestRubricServiceApproveAppliesVerdictLocally(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/qs-1/approve", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.StatusPayload{
			ID:             "qs-1",
			ApprovalStatus: "approved",
			FacultyRemarks: "Solid work",
		})
	})

	fx := newRubricFixture(t, mux)
	fx.sets.Put(pendingQuestionSet())

	verdict, err := fx.service.ApproveQuestionSet(context.Background(), "qs-1", dto.ApproveQuestionRequest{
		Approve:   true,
		Remarks:   "Solid work",
		FacultyID: "faculty-1",
	})
	require.NoError(t, err)
	require.Equal(t, "approved", verdict.ApprovalStatus)
	require.Equal(t, "Solid work", verdict.Remarks)

	stored, ok := fx.sets.Get("qs-1")
	require.True(t, ok)
	require.Equal(t, models.ApprovalApproved, stored.ApprovalStatus)
	require.Equal(t, "Solid work", stored.FacultyRemarks)
}

func TestRubricServiceApproveToleratesUntrackedSet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/qs-9/approve", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.StatusPayload{
			ID:             "qs-9",
			ApprovalStatus: "rejected",
			FacultyRemarks: "Out of scope",
		})
	})

	fx := newRubricFixture(t, mux)
	verdict, err := fx.service.ApproveQuestionSet(context.Background(), "qs-9", dto.ApproveQuestionRequest{
		Approve:   false,
		Remarks:   "Out of scope",
		FacultyID: "faculty-1",
	})
	require.NoError(t, err)
	require.Equal(t, "rejected", verdict.ApprovalStatus)

	_, ok := fx.sets.Get("qs-9")
	require.False(t, ok)
}

func TestRubricServiceApproveValidatesInput(t *testing.T) {
	fx := newRubricFixture(t, http.NewServeMux())

	var validationErr *ValidationError
	_, err := fx.service.ApproveQuestionSet(context.Background(), "", dto.ApproveQuestionRequest{FacultyID: "faculty-1"})
	require.ErrorAs(t, err, &validationErr)

	_, err = fx.service.ApproveQuestionSet(context.Background(), "qs-1", dto.ApproveQuestionRequest{Approve: true})
	require.Error(t, err)
	require.Zero(t, atomic.LoadInt32(fx.calls))
}
