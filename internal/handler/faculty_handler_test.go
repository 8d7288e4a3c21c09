package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/handler"
	"github.com/praxislab/praxis-api/internal/service"
	"github.com/praxislab/praxis-api/pkg/backend"
)

type mockRubricService struct {
	statusFilter string
	approveID    string
	approveReq   dto.ApproveQuestionRequest
	evaluateID   string
	evaluateReq  dto.EvaluateSubmissionRequest
	createReq    dto.RubricRequest
	updateID     string
	updateReq    dto.RubricRequest
	deletedID    string

	rubrics      []dto.RubricResponse
	rubric       dto.RubricResponse
	questionSets []dto.QuestionSetResponse
	pending      []dto.SubmissionResponse
	submission   dto.SubmissionResponse
	approval     dto.ApprovalResponse
	err          error
}

func (m *mockRubricService) ListRubrics(context.Context) ([]dto.RubricResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rubrics, nil
}

func (m *mockRubricService) CreateRubric(_ context.Context, req dto.RubricRequest) (dto.RubricResponse, error) {
	m.createReq = req
	if m.err != nil {
		return dto.RubricResponse{}, m.err
	}
	return m.rubric, nil
}

func (m *mockRubricService) UpdateRubric(_ context.Context, id string, req dto.RubricRequest) (dto.RubricResponse, error) {
	m.updateID = id
	m.updateReq = req
	if m.err != nil {
		return dto.RubricResponse{}, m.err
	}
	return m.rubric, nil
}

func (m *mockRubricService) DeleteRubric(_ context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func (m *mockRubricService) ListQuestionSets(_ context.Context, status string) ([]dto.QuestionSetResponse, error) {
	m.statusFilter = status
	if m.err != nil {
		return nil, m.err
	}
	return m.questionSets, nil
}

func (m *mockRubricService) PendingSubmissions(context.Context) ([]dto.SubmissionResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.pending, nil
}

func (m *mockRubricService) EvaluateSubmission(_ context.Context, submissionID string, req dto.EvaluateSubmissionRequest) (dto.SubmissionResponse, error) {
	m.evaluateID = submissionID
	m.evaluateReq = req
	if m.err != nil {
		return dto.SubmissionResponse{}, m.err
	}
	return m.submission, nil
}

func (m *mockRubricService) ApproveQuestionSet(_ context.Context, questionSetID string, req dto.ApproveQuestionRequest) (dto.ApprovalResponse, error) {
	m.approveID = questionSetID
	m.approveReq = req
	if m.err != nil {
		return dto.ApprovalResponse{}, m.err
	}
	return m.approval, nil
}

func newFacultyApp(rubrics service.RubricService, intake service.IntakeService) *fiber.App {
	return newFacultyAppWithBackend(rubrics, intake, nil)
}

func newFacultyAppWithBackend(rubrics service.RubricService, intake service.IntakeService, client *backend.Client) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/faculty", func(c *fiber.Ctx) error {
		c.Locals("user_id", "faculty-1")
		c.Locals("user_role", "faculty")
		return c.Next()
	})
	handler.NewFacultyHandler(rubrics, intake, client, zerolog.New(io.Discard)).Register(group)
	return app
}

func corpusForm(t *testing.T, fields map[string]string, files ...string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, name := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.7 stub"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestFacultyHandler_ListQuestionSetsPassesStatusFilter(t *testing.T) {
	rubrics := &mockRubricService{questionSets: []dto.QuestionSetResponse{{ID: "qs-1", ApprovalStatus: "pending"}}}
	app := newFacultyApp(rubrics, &mockIntakeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faculty/questions?status=pending", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "pending", rubrics.statusFilter)

	var response struct {
		Success bool                      `json:"success"`
		Data    []dto.QuestionSetResponse `json:"data"`
		Message string                    `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "question sets retrieved", response.Message)
	require.Len(t, response.Data, 1)
}

func TestFacultyHandler_ApproveBackfillsFacultyID(t *testing.T) {
	rubrics := &mockRubricService{approval: dto.ApprovalResponse{ID: "qs-1", ApprovalStatus: "approved"}}
	app := newFacultyApp(rubrics, &mockIntakeService{})

	body, err := json.Marshal(map[string]any{"approve": true, "remarks": "solid set"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/faculty/questions/qs-1/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "qs-1", rubrics.approveID)
	require.True(t, rubrics.approveReq.Approve)
	require.Equal(t, "faculty-1", rubrics.approveReq.FacultyID)

	var response struct {
		Success bool                 `json:"success"`
		Data    dto.ApprovalResponse `json:"data"`
		Message string               `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "review recorded", response.Message)
	require.Equal(t, "approved", response.Data.ApprovalStatus)
}

func TestFacultyHandler_ApproveKeepsExplicitFacultyID(t *testing.T) {
	rubrics := &mockRubricService{approval: dto.ApprovalResponse{ID: "qs-1", ApprovalStatus: "rejected", Remarks: "rework topic 2"}}
	app := newFacultyApp(rubrics, &mockIntakeService{})

	body, err := json.Marshal(dto.ApproveQuestionRequest{Approve: false, Remarks: "rework topic 2", FacultyID: "faculty-9"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/faculty/questions/qs-1/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "faculty-9", rubrics.approveReq.FacultyID)
	require.Equal(t, "rework topic 2", rubrics.approveReq.Remarks)
}

func TestFacultyHandler_EvaluateBackfillsFacultyID(t *testing.T) {
	rubrics := &mockRubricService{submission: dto.SubmissionResponse{ID: "sub-1", Status: "evaluated"}}
	app := newFacultyApp(rubrics, &mockIntakeService{})

	body, err := json.Marshal(map[string]any{
		"criteria_scores": map[string]float64{"clarity": 4.5},
		"feedback":        "well argued",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/faculty/submissions/sub-1/evaluate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "sub-1", rubrics.evaluateID)
	require.Equal(t, "faculty-1", rubrics.evaluateReq.FacultyID)
	require.InDelta(t, 4.5, rubrics.evaluateReq.CriteriaScores["clarity"], 0.001)
}

func TestFacultyHandler_RubricCreateAndDelete(t *testing.T) {
	rubrics := &mockRubricService{rubric: dto.RubricResponse{ID: "rub-1", Name: "Case Study Rubric"}}
	app := newFacultyApp(rubrics, &mockIntakeService{})

	payload := dto.RubricRequest{
		Name: "Case Study Rubric",
		Criteria: []dto.RubricCriterionRequest{{
			Description: "Clarity of argument",
			Weight:      0.4,
			Levels:      []dto.RubricLevelRequest{{Score: 5, Description: "Excellent"}},
		}},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/faculty/rubrics", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "Case Study Rubric", rubrics.createReq.Name)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/faculty/rubrics/rub-1", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "rub-1", rubrics.deletedID)

	var response struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Message string            `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "rubric deleted", response.Message)
	require.Equal(t, "rub-1", response.Data["rubric_id"])
}

func TestFacultyHandler_CorpusUploadStagesAndFlushes(t *testing.T) {
	intake := &mockIntakeService{
		session: dto.IntakeSessionResponse{SessionID: "sess-corpus", Flow: "corpus", MaxFiles: 10},
		corpus: dto.CorpusUploadResponse{
			Message:       "Successfully uploaded 2 file(s)",
			CourseCode:    "ACC204",
			UploadedFiles: []string{"sem1.pdf", "sem2.pdf"},
			AssignmentIDs: []string{"pa-1", "pa-2"},
		},
	}
	app := newFacultyApp(&mockRubricService{}, intake)

	body, contentType := corpusForm(t, map[string]string{
		"course_title":  "Management Accounting",
		"course_code":   "ACC204",
		"academic_year": "2025-2026",
		"semester":      "4",
	}, "sem1.pdf", "sem2.pdf")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/faculty/corpus/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Equal(t, service.FlowCorpus, intake.openReq.Flow)
	require.Equal(t, []string{"sem1.pdf", "sem2.pdf"}, intake.addedFiles)
	require.Equal(t, "Management Accounting", intake.corpusReq.CourseTitle)
	require.Equal(t, 4, intake.corpusReq.Semester)
	require.Empty(t, intake.discardedID)

	var response struct {
		Success bool                     `json:"success"`
		Data    dto.CorpusUploadResponse `json:"data"`
		Message string                   `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "corpus batch uploaded", response.Message)
	require.Len(t, response.Data.AssignmentIDs, 2)
}

func TestFacultyHandler_CorpusUploadDiscardsOnRejectedFile(t *testing.T) {
	intake := &mockIntakeService{
		session:    dto.IntakeSessionResponse{SessionID: "sess-corpus", Flow: "corpus", MaxFiles: 10},
		addFileErr: service.ErrUnsupportedFile,
	}
	app := newFacultyApp(&mockRubricService{}, intake)

	body, contentType := corpusForm(t, map[string]string{
		"course_title":  "Management Accounting",
		"course_code":   "ACC204",
		"academic_year": "2025-2026",
		"semester":      "4",
	}, "notes.txt")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/faculty/corpus/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "sess-corpus", intake.discardedID)
}

func TestFacultyHandler_CorpusUploadValidatesForm(t *testing.T) {
	intake := &mockIntakeService{session: dto.IntakeSessionResponse{SessionID: "sess-corpus"}}
	app := newFacultyApp(&mockRubricService{}, intake)

	body, contentType := corpusForm(t, map[string]string{
		"course_title": "Management Accounting",
		"semester":     "4",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/faculty/corpus/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Empty(t, intake.openReq.Flow)

	body, contentType = corpusForm(t, map[string]string{
		"course_title":  "Management Accounting",
		"course_code":   "ACC204",
		"academic_year": "2025-2026",
		"semester":      "four",
	}, "sem1.pdf")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/faculty/corpus/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestFacultyHandler_CorpusStatus(t *testing.T) {
	intake := &mockIntakeService{corpusStatus: dto.CorpusStatusResponse{
		AssignmentID:  "pa-1",
		Status:        "completed",
		QuestionCount: 12,
	}}
	app := newFacultyApp(&mockRubricService{}, intake)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faculty/corpus/status/pa-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "pa-1", intake.corpusStatsID)

	var response struct {
		Success bool                     `json:"success"`
		Data    dto.CorpusStatusResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, 12, response.Data.QuestionCount)
}

func newOverviewClient(t *testing.T, handlerFunc http.HandlerFunc) *backend.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/overview", handlerFunc)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := backend.New(backend.Config{
		GenerationURL: server.URL,
		UploadsURL:    server.URL,
		EvaluationURL: server.URL,
		AnalyticsURL:  server.URL,
		Timeout:       2 * time.Second,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	return client
}

func TestFacultyHandler_PlatformOverview(t *testing.T) {
	client := newOverviewClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_students":180,"total_assignments":42,"total_submissions":397,"pending_evaluations":9,"approval_rate":0.82,"average_score":7.4}`))
	})
	app := newFacultyAppWithBackend(&mockRubricService{}, &mockIntakeService{}, client)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faculty/overview", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                         `json:"success"`
		Data    dto.PlatformOverviewResponse `json:"data"`
		Message string                       `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "platform overview retrieved", response.Message)
	require.Equal(t, 180, response.Data.TotalStudents)
	require.Equal(t, 9, response.Data.PendingEvaluations)
	require.InDelta(t, 0.82, response.Data.ApprovalRate, 0.001)
}

func TestFacultyHandler_PlatformOverviewMapsOutageToBadGateway(t *testing.T) {
	client := newOverviewClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"analytics group offline"}`))
	})
	app := newFacultyAppWithBackend(&mockRubricService{}, &mockIntakeService{}, client)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/faculty/overview", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.False(t, response.Success)
	require.Equal(t, "analytics group offline", response.Message)
}
