package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/observability"
	"github.com/praxislab/praxis-api/internal/store"
	"github.com/praxislab/praxis-api/pkg/backend"
)

// RubricService covers the faculty side of the review cycle: rubric
// definitions, the pending queue, rubric evaluations and question set
// approvals.
type RubricService interface {
	ListRubrics(ctx context.Context) ([]dto.RubricResponse, error)
	CreateRubric(ctx context.Context, req dto.RubricRequest) (dto.RubricResponse, error)
	UpdateRubric(ctx context.Context, id string, req dto.RubricRequest) (dto.RubricResponse, error)
	DeleteRubric(ctx context.Context, id string) error
	ListQuestionSets(ctx context.Context, status string) ([]dto.QuestionSetResponse, error)
	PendingSubmissions(ctx context.Context) ([]dto.SubmissionResponse, error)
	EvaluateSubmission(ctx context.Context, submissionID string, req dto.EvaluateSubmissionRequest) (dto.SubmissionResponse, error)
	ApproveQuestionSet(ctx context.Context, questionSetID string, req dto.ApproveQuestionRequest) (dto.ApprovalResponse, error)
}

type rubricService struct {
	sets        *store.QuestionSets
	submissions *store.Submissions
	client      *backend.Client
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewRubricService builds the faculty review coordinator.
func NewRubricService(sets *store.QuestionSets, submissions *store.Submissions, client *backend.Client, validate *validator.Validate, logger zerolog.Logger) RubricService {
	return &rubricService{
		sets:        sets,
		submissions: submissions,
		client:      client,
		validator:   validate,
		logger:      logger.With().Str("component", "rubric_service").Logger(),
		tracer:      otel.Tracer("praxis.service.rubric"),
	}
}

func (s *rubricService) ListRubrics(ctx context.Context) ([]dto.RubricResponse, error) {
	payloads, err := s.client.ListRubrics(ctx)
	if err != nil {
		return nil, err
	}

	rubrics := make([]models.Rubric, 0, len(payloads))
	for _, payload := range payloads {
		rubrics = append(rubrics, rubricFromPayload(payload))
	}
	return dto.NewRubricResponseSlice(rubrics), nil
}

func (s *rubricService) CreateRubric(ctx context.Context, req dto.RubricRequest) (dto.RubricResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.RubricResponse{}, err
	}

	payload, err := s.client.CreateRubric(ctx, rubricRequestPayload(req))
	if err != nil {
		return dto.RubricResponse{}, err
	}

	s.logger.Info().Str("rubric_id", payload.ID).Str("name", payload.Name).Msg("rubric created")
	return dto.NewRubricResponse(rubricFromPayload(payload)), nil
}

func (s *rubricService) UpdateRubric(ctx context.Context, id string, req dto.RubricRequest) (dto.RubricResponse, error) {
	if strings.TrimSpace(id) == "" {
		return dto.RubricResponse{}, &ValidationError{Field: "rubric_id", Message: "Rubric id is required"}
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.RubricResponse{}, err
	}

	payload, err := s.client.UpdateRubric(ctx, id, rubricRequestPayload(req))
	if err != nil {
		return dto.RubricResponse{}, err
	}

	s.logger.Info().Str("rubric_id", id).Msg("rubric updated")
	return dto.NewRubricResponse(rubricFromPayload(payload)), nil
}

func (s *rubricService) DeleteRubric(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "rubric_id", Message: "Rubric id is required"}
	}

	if err := s.client.DeleteRubric(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("rubric_id", id).Msg("rubric deleted")
	return nil
}

// ListQuestionSets pulls the generation group's review queue, optionally
// narrowed to one approval status.
func (s *rubricService) ListQuestionSets(ctx context.Context, status string) ([]dto.QuestionSetResponse, error) {
	status = strings.TrimSpace(status)
	if status != "" && !models.ApprovalStatus(status).Known() {
		return nil, &ValidationError{Field: "status", Message: "Unknown approval status filter"}
	}

	payloads, err := s.client.ListQuestionSets(ctx, status)
	if err != nil {
		return nil, err
	}

	sets := make([]models.QuestionSet, 0, len(payloads))
	for _, payload := range payloads {
		sets = append(sets, questionSetFromPayload(payload))
	}
	return dto.NewQuestionSetResponseSlice(sets), nil
}

func (s *rubricService) PendingSubmissions(ctx context.Context) ([]dto.SubmissionResponse, error) {
	payloads, err := s.client.PendingSubmissions(ctx)
	if err != nil {
		return nil, err
	}

	submissions := make([]models.Submission, 0, len(payloads))
	for _, payload := range payloads {
		submissions = append(submissions, submissionFromPayload(payload))
	}
	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *rubricService) EvaluateSubmission(ctx context.Context, submissionID string, req dto.EvaluateSubmissionRequest) (dto.SubmissionResponse, error) {
	if strings.TrimSpace(submissionID) == "" {
		return dto.SubmissionResponse{}, &ValidationError{Field: "submission_id", Message: "Submission id is required"}
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "rubric.evaluate", trace.WithAttributes(
		attribute.String("rubric.submission_id", submissionID),
	))
	defer span.End()

	payload, err := s.client.Evaluate(ctx, submissionID, backend.EvaluateRequest{
		CriteriaScores: req.CriteriaScores,
		Feedback:       req.Feedback,
		FacultyID:      req.FacultyID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluate failed")
		return dto.SubmissionResponse{}, err
	}

	submission := submissionFromPayload(payload)
	s.submissions.Upsert(submission)

	s.logger.Info().
		Str("submission_id", submissionID).
		Str("faculty_id", req.FacultyID).
		Int("criteria", len(req.CriteriaScores)).
		Msg("submission evaluated")
	span.SetStatus(codes.Ok, "")
	return dto.NewSubmissionResponse(submission), nil
}

func (s *rubricService) ApproveQuestionSet(ctx context.Context, questionSetID string, req dto.ApproveQuestionRequest) (dto.ApprovalResponse, error) {
	id := strings.TrimSpace(questionSetID)
	if id == "" {
		return dto.ApprovalResponse{}, &ValidationError{Field: "question_set_id", Message: "Question set id is required"}
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ApprovalResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "rubric.approve", trace.WithAttributes(
		attribute.String("rubric.question_set_id", id),
		attribute.Bool("rubric.approve", req.Approve),
	))
	defer span.End()

	captured := s.sets.Generation(id)
	payload, err := s.client.Approve(ctx, id, backend.ApproveRequest{
		Approve:   req.Approve,
		Remarks:   req.Remarks,
		FacultyID: req.FacultyID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "approve failed")
		return dto.ApprovalResponse{}, err
	}

	// When this node happens to track the set, the verdict lands in the
	// local mirror right away; other nodes converge through the poller.
	if payload.ApprovalStatus != "" {
		next := models.ApprovalStatus(payload.ApprovalStatus)
		if _, outcome := s.sets.ApplyStatus(id, captured, next, payload.FacultyRemarks); outcome == store.StatusApplied {
			observability.PollTransitions().WithLabelValues(payload.ApprovalStatus).Inc()
		}
	}

	s.logger.Info().
		Str("question_set_id", id).
		Str("faculty_id", req.FacultyID).
		Str("status", payload.ApprovalStatus).
		Msg("question set reviewed")
	span.SetStatus(codes.Ok, "")

	responseID := payload.ID
	if responseID == "" {
		responseID = id
	}
	return dto.ApprovalResponse{
		ID:             responseID,
		ApprovalStatus: payload.ApprovalStatus,
		Remarks:        payload.FacultyRemarks,
	}, nil
}

func rubricFromPayload(payload backend.RubricPayload) models.Rubric {
	rubric := models.Rubric{
		ID:          payload.ID,
		Name:        payload.Name,
		Description: payload.Description,
		CreatedAt:   payload.CreatedAt,
		UpdatedAt:   payload.UpdatedAt,
	}
	for _, criterion := range payload.Criteria {
		levels := make([]models.RubricLevel, 0, len(criterion.Levels))
		for _, level := range criterion.Levels {
			levels = append(levels, models.RubricLevel{Score: level.Score, Description: level.Description})
		}
		rubric.Criteria = append(rubric.Criteria, models.RubricCriterion{
			Description: criterion.Description,
			Weight:      criterion.Weight,
			Levels:      levels,
		})
	}
	return rubric
}

func rubricRequestPayload(req dto.RubricRequest) backend.RubricRequest {
	payload := backend.RubricRequest{
		Name:        req.Name,
		Description: req.Description,
	}
	for _, criterion := range req.Criteria {
		levels := make([]backend.RubricLevelInput, 0, len(criterion.Levels))
		for _, level := range criterion.Levels {
			levels = append(levels, backend.RubricLevelInput{Score: level.Score, Description: level.Description})
		}
		payload.Criteria = append(payload.Criteria, backend.RubricCriterionInput{
			Description: criterion.Description,
			Weight:      criterion.Weight,
			Levels:      levels,
		})
	}
	return payload
}
