package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/handler"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/service"
)

type stubEvaluationService struct {
	history []dto.SubmissionResponse
}

func (s stubEvaluationService) Analyze(context.Context, dto.AnalyzeRequest) (dto.AnalyzeResponse, error) {
	return dto.AnalyzeResponse{}, nil
}

func (s stubEvaluationService) SubmitToFaculty(context.Context, dto.SubmitToFacultyRequest) (dto.SubmissionResponse, error) {
	return dto.SubmissionResponse{}, nil
}

func (s stubEvaluationService) History(context.Context, string) ([]dto.SubmissionResponse, error) {
	return s.history, nil
}

func (s stubEvaluationService) Submission(context.Context, string) (dto.SubmissionResponse, error) {
	return dto.SubmissionResponse{}, nil
}

func TestSubmissionHistoryContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "submission_history.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Now().UTC()
	submittedAt := now.Add(-2 * time.Hour)
	history := []dto.SubmissionResponse{
		{
			ID:              "sub-2",
			StudentID:       "student-1",
			AssignmentID:    "a-2",
			AssignmentTitle: "Supply Chain Case",
			CourseName:      "Operations Management",
			Content:         "final draft",
			Status:          "submitted_to_faculty",
			SWOTAnalyses: []dto.SWOTAnalysisResponse{
				{
					Strengths:     []string{"clear structure"},
					Weaknesses:    []string{"light on data"},
					Opportunities: []string{"expand section 3"},
					Threats:       []string{"scope creep"},
					Suggestions:   []string{"add citations"},
					AnalyzedAt:    now.Add(-3 * time.Hour),
				},
			},
			FacultyEvaluation: &dto.FacultyEvaluationResponse{
				RubricScores: []dto.RubricScoreResponse{
					{Criterion: "Clarity", Score: 4, MaxScore: 5},
				},
				Comments:    "Well argued",
				EvaluatedBy: "faculty-1",
				EvaluatedAt: now.Add(-time.Hour),
			},
			SubmittedAt: &submittedAt,
			UpdatedAt:   now,
		},
		{
			ID:           "sub-1",
			StudentID:    "student-1",
			AssignmentID: "a-1",
			Content:      "early draft",
			Status:       "draft",
			SWOTAnalyses: []dto.SWOTAnalysisResponse{},
			UpdatedAt:    now.Add(-24 * time.Hour),
		},
	}

	serviceStub := stubEvaluationService{history: history}
	evaluationHandler := handler.NewEvaluationHandler(serviceStub, nil, zerolog.Nop())

	app := fiber.New()
	evaluationHandler.Register(app.Group("/api/v1/student"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/submissions/student-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestNotificationFeedContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "notification_feed.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	feed := service.NewNotificationService(nil, "", nil, zerolog.Nop())
	ctx := context.Background()
	_, err = feed.Publish(ctx, "student-1", "Assignment saved", models.NotificationSuccess, 0)
	require.NoError(t, err)
	_, err = feed.Publish(ctx, "student-1", "Question approved: looks good", models.NotificationInfo, 10*time.Second)
	require.NoError(t, err)

	notificationHandler := handler.NewNotificationHandler(feed, zerolog.Nop(), 30*time.Second)

	app := fiber.New()
	notificationHandler.Register(app.Group("/api/v1/student"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/notifications?student_id=student-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload))
}
