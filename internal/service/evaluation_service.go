package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/store"
	"github.com/praxislab/praxis-api/pkg/backend"
)

// EvaluationService runs the draft review flow: request SWOT analyses, track
// the submission record they attach to, and hand finished drafts to faculty.
type EvaluationService interface {
	Analyze(ctx context.Context, req dto.AnalyzeRequest) (dto.AnalyzeResponse, error)
	SubmitToFaculty(ctx context.Context, req dto.SubmitToFacultyRequest) (dto.SubmissionResponse, error)
	History(ctx context.Context, studentID string) ([]dto.SubmissionResponse, error)
	Submission(ctx context.Context, id string) (dto.SubmissionResponse, error)
}

type evaluationService struct {
	submissions *store.Submissions
	client      *backend.Client
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewEvaluationService builds the evaluation coordinator on top of the
// evaluation group client and the tracked submission store.
func NewEvaluationService(submissions *store.Submissions, client *backend.Client, validate *validator.Validate, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		submissions: submissions,
		client:      client,
		validator:   validate,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		tracer:      otel.Tracer("praxis.service.evaluation"),
		now:         time.Now,
	}
}

func (s *evaluationService) Analyze(ctx context.Context, req dto.AnalyzeRequest) (dto.AnalyzeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AnalyzeResponse{}, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return dto.AnalyzeResponse{}, &ValidationError{Field: "content", Message: "Submission content is required"}
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.analyze", trace.WithAttributes(
		attribute.String("evaluation.assignment_id", req.AssignmentID),
	))
	defer span.End()

	trackedID := strings.TrimSpace(req.SubmissionID)
	payload, err := s.client.Analyze(ctx, backend.AnalyzeRequest{
		StudentID:    req.StudentID,
		AssignmentID: req.AssignmentID,
		Content:      req.Content,
		SubmissionID: trackedID,
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("assignment_id", req.AssignmentID).
			Msg("analyze failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "analyze failed")
		return dto.AnalyzeResponse{}, err
	}

	// A returned submission id is adopted only when none was known yet; an
	// id already in hand is never overwritten.
	submissionID := trackedID
	if submissionID == "" {
		submissionID = payload.SubmissionID
	}

	analysis := models.SWOTAnalysis{
		Strengths:     payload.Strengths,
		Weaknesses:    payload.Weaknesses,
		Opportunities: payload.Opportunities,
		Threats:       payload.Threats,
		Suggestions:   payload.Suggestions,
		AnalyzedAt:    s.now().UTC(),
	}

	if submissionID != "" {
		if _, ok := s.submissions.Get(submissionID); !ok {
			s.submissions.Upsert(models.Submission{
				ID:           submissionID,
				StudentID:    req.StudentID,
				AssignmentID: req.AssignmentID,
				Content:      req.Content,
				Status:       models.SubmissionStatusDraft,
				UpdatedAt:    analysis.AnalyzedAt,
			})
		}
		s.submissions.AppendAnalysis(submissionID, analysis)
	}

	s.logger.Info().
		Str("submission_id", submissionID).
		Str("assignment_id", req.AssignmentID).
		Int("strengths", len(payload.Strengths)).
		Int("weaknesses", len(payload.Weaknesses)).
		Msg("draft analyzed")
	span.SetStatus(codes.Ok, "")

	return dto.AnalyzeResponse{
		SubmissionID:  submissionID,
		Strengths:     payload.Strengths,
		Weaknesses:    payload.Weaknesses,
		Opportunities: payload.Opportunities,
		Threats:       payload.Threats,
		Suggestions:   payload.Suggestions,
	}, nil
}

func (s *evaluationService) SubmitToFaculty(ctx context.Context, req dto.SubmitToFacultyRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.submit_to_faculty", trace.WithAttributes(
		attribute.String("evaluation.submission_id", req.SubmissionID),
	))
	defer span.End()

	if _, ok := s.submissions.Get(req.SubmissionID); !ok {
		span.SetStatus(codes.Error, "unknown submission")
		return dto.SubmissionResponse{}, &PreconditionError{Op: "submit_to_faculty", Message: "No tracked submission to send, run an analysis first"}
	}

	ack, err := s.client.SubmitToFaculty(ctx, req.StudentID, req.SubmissionID)
	if err != nil {
		// The tracked record stays as it was; the server did not accept
		// the handover.
		s.logger.Error().
			Err(err).
			Str("submission_id", req.SubmissionID).
			Msg("submit to faculty failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return dto.SubmissionResponse{}, err
	}

	submission, _ := s.submissions.MarkSubmitted(req.SubmissionID, s.now().UTC())

	// Faculty-side fields may have moved concurrently, so the history is
	// pulled back from the server rather than patched locally.
	if refreshed, err := s.refreshHistory(ctx, req.StudentID); err != nil {
		s.logger.Warn().
			Err(err).
			Str("student_id", req.StudentID).
			Msg("history refresh after submit failed")
	} else {
		for _, entry := range refreshed {
			if entry.ID == req.SubmissionID {
				submission = entry
			}
		}
	}

	s.logger.Info().
		Str("submission_id", req.SubmissionID).
		Str("ack", ack.Message).
		Msg("submission sent to faculty")
	span.SetStatus(codes.Ok, "")
	return dto.NewSubmissionResponse(submission), nil
}

func (s *evaluationService) History(ctx context.Context, studentID string) ([]dto.SubmissionResponse, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, &ValidationError{Field: "student_id", Message: "Student id is required"}
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.history", trace.WithAttributes(
		attribute.String("evaluation.student_id", studentID),
	))
	defer span.End()

	submissions, err := s.refreshHistory(ctx, studentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history fetch failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.NewSubmissionResponseSlice(submissions), nil
}

// Submission returns the tracked snapshot without a server round-trip.
func (s *evaluationService) Submission(_ context.Context, id string) (dto.SubmissionResponse, error) {
	submission, ok := s.submissions.Get(strings.TrimSpace(id))
	if !ok {
		return dto.SubmissionResponse{}, &ValidationError{Field: "submission_id", Message: "Unknown submission"}
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *evaluationService) refreshHistory(ctx context.Context, studentID string) ([]models.Submission, error) {
	payloads, err := s.client.MySubmissions(ctx, studentID)
	if err != nil {
		return nil, err
	}

	submissions := make([]models.Submission, 0, len(payloads))
	for _, payload := range payloads {
		submissions = append(submissions, submissionFromPayload(payload))
	}
	s.submissions.ReplaceHistory(studentID, submissions)
	return submissions, nil
}

func submissionFromPayload(payload backend.SubmissionPayload) models.Submission {
	submission := models.Submission{
		ID:              payload.ID,
		StudentID:       payload.StudentID,
		AssignmentID:    payload.AssignmentID,
		AssignmentTitle: payload.AssignmentTitle,
		CourseName:      payload.CourseName,
		Content:         payload.Content,
		Status:          payload.Status,
		SubmittedAt:     payload.SubmittedAt,
		UpdatedAt:       payload.UpdatedAt,
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusDraft
	}

	for _, analysis := range payload.SWOTAnalyses {
		entry := models.SWOTAnalysis{
			Strengths:     analysis.Strengths,
			Weaknesses:    analysis.Weaknesses,
			Opportunities: analysis.Opportunities,
			Threats:       analysis.Threats,
			Suggestions:   analysis.Suggestions,
		}
		if analysis.AnalysisDate != nil {
			entry.AnalyzedAt = *analysis.AnalysisDate
		}
		submission.SWOTAnalyses = append(submission.SWOTAnalyses, entry)
	}

	if payload.FacultyEvaluation != nil {
		evaluation := &models.FacultyEvaluation{
			Comments:    payload.FacultyEvaluation.Comments,
			EvaluatedBy: payload.FacultyEvaluation.EvaluatedBy,
		}
		if payload.FacultyEvaluation.EvaluatedAt != nil {
			evaluation.EvaluatedAt = *payload.FacultyEvaluation.EvaluatedAt
		}
		for _, score := range payload.FacultyEvaluation.RubricScores {
			evaluation.RubricScores = append(evaluation.RubricScores, models.RubricScore{
				Criterion: score.Criterion,
				Score:     score.Score,
				MaxScore:  score.MaxScore,
			})
		}
		submission.FacultyEvaluation = evaluation
	}

	return submission
}
