package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
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

const savedAssignmentsCacheKey = "praxis:assignments:saved:%s"

// AssignmentService drives the student assignment flow: generate a question
// set, pick a question, wait out faculty review, save the approved result.
// All writes for one student are serialized so a selection can never race the
// generation it refers to.
type AssignmentService interface {
	Generate(ctx context.Context, req dto.GenerateQuestionsRequest) (dto.QuestionSetResponse, error)
	QuestionSet(ctx context.Context, questionSetID string) (dto.QuestionSetResponse, error)
	Select(ctx context.Context, questionSetID string, req dto.SelectQuestionRequest) (dto.QuestionSetResponse, error)
	CheckStatus(ctx context.Context, questionSetID string, announce bool) (dto.StatusRefreshResponse, error)
	Save(ctx context.Context, req dto.SaveAssignmentRequest) (dto.SaveResultResponse, error)
	ListSaved(ctx context.Context, studentID string) ([]dto.SavedAssignmentResponse, error)
	ContextOptions() dto.ContextOptionsResponse
	Courses(ctx context.Context) ([]dto.CourseResponse, error)
}

type assignmentService struct {
	sets      *store.QuestionSets
	client    *backend.Client
	poller    StatusPoller
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer

	mu           sync.Mutex
	studentLocks map[string]*sync.Mutex
}

// NewAssignmentService constructs the assignment lifecycle service. The redis
// cache is optional; without it every saved-assignment list goes to the
// generation service.
func NewAssignmentService(sets *store.QuestionSets, client *backend.Client, poller StatusPoller, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &assignmentService{
		sets:         sets,
		client:       client,
		poller:       poller,
		cache:        cache,
		cacheTTL:     cacheTTL,
		validator:    validate,
		logger:       logger.With().Str("component", "assignment_service").Logger(),
		tracer:       otel.Tracer("github.com/praxislab/praxis-api/internal/service/assignment"),
		studentLocks: make(map[string]*sync.Mutex),
	}
}

func (s *assignmentService) Generate(ctx context.Context, req dto.GenerateQuestionsRequest) (dto.QuestionSetResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	studentID := strings.TrimSpace(req.StudentID)
	domain := strings.TrimSpace(req.Domain)
	if studentID == "" {
		return dto.QuestionSetResponse{}, &ValidationError{Field: "student_id", Message: "student id is required"}
	}
	if domain == "" {
		return dto.QuestionSetResponse{}, &ValidationError{Field: "domain", Message: "domain is required"}
	}

	lock := s.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := s.tracer.Start(ctx, "assignments.generate", trace.WithAttributes(
		attribute.String("student.id", studentID),
		attribute.String("assignment.domain", domain),
	))
	defer span.End()

	payload, err := s.client.Generate(ctx, backend.GenerateRequest{
		StudentID:       studentID,
		CourseID:        strings.TrimSpace(req.CourseID),
		CourseName:      strings.TrimSpace(req.CourseName),
		Domain:          domain,
		ServiceCategory: strings.TrimSpace(req.ServiceCategory),
		Department:      strings.TrimSpace(req.Department),
		Topics:          splitList(req.Topics),
		Handouts:        splitList(req.Handouts),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return dto.QuestionSetResponse{}, err
	}
	if payload.ID == "" {
		span.SetStatus(codes.Error, "missing question set id")
		return dto.QuestionSetResponse{}, &backend.RemoteError{
			Op:         "generate",
			StatusCode: http.StatusBadGateway,
			Detail:     "generation service returned no question set id",
		}
	}

	set := questionSetFromPayload(payload)
	if set.StudentID == "" {
		set.StudentID = studentID
	}
	if set.Domain == "" {
		set.Domain = domain
	}
	// A fresh batch never carries a selection over from a previous one.
	set.SelectedQuestion = ""
	s.sets.Put(set)

	span.SetStatus(codes.Ok, "")
	s.logger.Info().
		Str("student_id", studentID).
		Str("question_set_id", set.ID).
		Int("questions", len(set.GeneratedQuestions)).
		Msg("question set generated")

	return dto.NewQuestionSetResponse(set), nil
}

func (s *assignmentService) QuestionSet(ctx context.Context, questionSetID string) (dto.QuestionSetResponse, error) {
	set, ok := s.sets.Get(strings.TrimSpace(questionSetID))
	if !ok {
		return dto.QuestionSetResponse{}, &ValidationError{Field: "question_set_id", Message: "unknown question set"}
	}
	return dto.NewQuestionSetResponse(set), nil
}

func (s *assignmentService) Select(ctx context.Context, questionSetID string, req dto.SelectQuestionRequest) (dto.QuestionSetResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionSetResponse{}, err
	}

	question := strings.TrimSpace(req.SelectedQuestion)
	if question == "" {
		return dto.QuestionSetResponse{}, &ValidationError{Field: "selected_question", Message: "selected question is required"}
	}

	set, ok := s.sets.Get(questionSetID)
	if !ok {
		return dto.QuestionSetResponse{}, &ValidationError{Field: "question_set_id", Message: "unknown question set"}
	}

	lock := s.studentLock(set.StudentID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := s.tracer.Start(ctx, "assignments.select", trace.WithAttributes(
		attribute.String("question_set.id", questionSetID),
	))
	defer span.End()

	// Re-read under the student lock; a generate may have landed while waiting.
	set, ok = s.sets.Get(questionSetID)
	if !ok {
		return dto.QuestionSetResponse{}, &ValidationError{Field: "question_set_id", Message: "unknown question set"}
	}
	if set.ApprovalStatus.IsTerminal() {
		span.SetStatus(codes.Error, "already reviewed")
		return dto.QuestionSetResponse{}, &PreconditionError{Op: "select", Message: "question set already has a final review"}
	}
	if !set.Contains(question) {
		span.SetStatus(codes.Error, "question not in batch")
		return dto.QuestionSetResponse{}, &ValidationError{Field: "selected_question", Message: "Selected question must be from generated set"}
	}

	payload, err := s.client.Select(ctx, set.ID, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return dto.QuestionSetResponse{}, err
	}

	// The server decides the post-select status; apply it only when it is a
	// legal forward step so a racing terminal verdict is never overwritten.
	next := models.ApprovalStatus(payload.ApprovalStatus)
	updated, ok := s.sets.Update(set.ID, func(current *models.QuestionSet) {
		current.SelectedQuestion = question
		if next != "" && current.ApprovalStatus.CanTransition(next) {
			current.ApprovalStatus = next
		}
	})
	if !ok {
		return dto.QuestionSetResponse{}, &ValidationError{Field: "question_set_id", Message: "unknown question set"}
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Info().
		Str("question_set_id", set.ID).
		Str("approval_status", string(updated.ApprovalStatus)).
		Msg("question selected")

	return dto.NewQuestionSetResponse(updated), nil
}

func (s *assignmentService) CheckStatus(ctx context.Context, questionSetID string, announce bool) (dto.StatusRefreshResponse, error) {
	outcome, err := s.poller.Refresh(ctx, questionSetID, announce)
	if err != nil {
		return dto.StatusRefreshResponse{}, err
	}
	return dto.StatusRefreshResponse{
		ID:             outcome.Set.ID,
		ApprovalStatus: string(outcome.Set.ApprovalStatus),
		FacultyRemarks: outcome.Set.FacultyRemarks,
		Transitioned:   outcome.Transitioned,
	}, nil
}

func (s *assignmentService) Save(ctx context.Context, req dto.SaveAssignmentRequest) (dto.SaveResultResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SaveResultResponse{}, err
	}

	set, ok := s.sets.Get(req.QuestionSetID)
	if !ok {
		return dto.SaveResultResponse{}, &ValidationError{Field: "question_set_id", Message: "unknown question set"}
	}

	lock := s.studentLock(set.StudentID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := s.tracer.Start(ctx, "assignments.save", trace.WithAttributes(
		attribute.String("question_set.id", req.QuestionSetID),
	))
	defer span.End()

	set, ok = s.sets.Get(req.QuestionSetID)
	if !ok {
		return dto.SaveResultResponse{}, &ValidationError{Field: "question_set_id", Message: "unknown question set"}
	}
	if set.StudentID != req.StudentID {
		span.SetStatus(codes.Error, "student mismatch")
		return dto.SaveResultResponse{}, &ValidationError{Field: "student_id", Message: "question set belongs to a different student"}
	}
	if set.ApprovalStatus != models.ApprovalApproved {
		span.SetStatus(codes.Error, "not approved")
		return dto.SaveResultResponse{}, &PreconditionError{Op: "save", Message: "must be approved first"}
	}

	result, err := s.client.SaveAssignment(ctx, backend.SaveAssignmentRequest{
		QuestionSetID:  req.QuestionSetID,
		StudentID:      req.StudentID,
		AssignmentName: strings.TrimSpace(req.AssignmentName),
		CourseName:     strings.TrimSpace(req.CourseName),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return dto.SaveResultResponse{}, err
	}

	// Full reload rather than local append so server-side de-duplication wins.
	s.invalidateSavedCache(ctx, req.StudentID)
	if _, err := s.ListSaved(ctx, req.StudentID); err != nil {
		s.logger.Warn().Err(err).Str("student_id", req.StudentID).Msg("saved assignment reload failed")
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Info().
		Str("student_id", req.StudentID).
		Str("assignment_id", result.AssignmentID).
		Msg("assignment saved")

	return dto.SaveResultResponse{
		Message:       result.Message,
		AssignmentID:  result.AssignmentID,
		QuestionSetID: result.QuestionSetID,
	}, nil
}

func (s *assignmentService) ListSaved(ctx context.Context, studentID string) ([]dto.SavedAssignmentResponse, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, &ValidationError{Field: "student_id", Message: "student id is required"}
	}

	ctx, span := s.tracer.Start(ctx, "assignments.list_saved", trace.WithAttributes(
		attribute.String("student.id", studentID),
	))
	defer span.End()

	key := fmt.Sprintf(savedAssignmentsCacheKey, studentID)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		switch {
		case err == nil:
			var saved []models.SavedAssignment
			if err := json.Unmarshal([]byte(cached), &saved); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				return dto.NewSavedAssignmentResponseSlice(saved), nil
			}
			s.logger.Warn().Str("key", key).Msg("dropping corrupt saved assignment cache entry")
		case !errors.Is(err, redis.Nil):
			s.logger.Warn().Err(err).Msg("saved assignment cache read failed")
		}
	}

	payloads, err := s.client.ListAssignments(ctx, studentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}

	saved := make([]models.SavedAssignment, 0, len(payloads))
	for _, payload := range payloads {
		saved = append(saved, models.SavedAssignment{
			ID:             payload.ID,
			StudentID:      studentID,
			Title:          payload.Title,
			AssignmentName: payload.AssignmentName,
			Description:    payload.Description,
			Domain:         payload.Domain,
			CourseName:     payload.CourseName,
			CreatedAt:      payload.CreatedAt,
		})
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(saved); err == nil {
			if err := s.cache.Set(ctx, key, encoded, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("saved assignment cache write failed")
			}
		}
	}

	span.SetStatus(codes.Ok, "")
	return dto.NewSavedAssignmentResponseSlice(saved), nil
}

// ContextOptions returns the fixed dropdown choices for the generation form.
func (s *assignmentService) ContextOptions() dto.ContextOptionsResponse {
	return dto.ContextOptionsResponse{
		Domains: []string{
			"Manufacturing", "IT", "Healthcare", "Finance", "Education",
			"Telecommunications", "Aerospace", "Retail", "Energy", "Government",
		},
		ServiceCategories: []string{"DevOps", "ERP", "Cloud", "Data Engineering", "Cybersecurity", "QA"},
		Departments:       []string{"R&D", "Operations", "Sales", "HR", "Finance", "IT"},
	}
}

func (s *assignmentService) Courses(ctx context.Context) ([]dto.CourseResponse, error) {
	payloads, err := s.client.Courses(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.CourseResponse, 0, len(payloads))
	for _, payload := range payloads {
		out = append(out, dto.CourseResponse{
			ID:         payload.ID,
			Title:      payload.Title,
			CourseCode: payload.CourseCode,
		})
	}
	return out, nil
}

func (s *assignmentService) invalidateSavedCache(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf(savedAssignmentsCacheKey, studentID)
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("saved assignment cache invalidation failed")
	}
}

func (s *assignmentService) studentLock(studentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.studentLocks[studentID]
	if !ok {
		lock = &sync.Mutex{}
		s.studentLocks[studentID] = lock
	}
	return lock
}

func questionSetFromPayload(payload backend.QuestionSetPayload) models.QuestionSet {
	status := models.ApprovalStatus(payload.ApprovalStatus)
	if status == "" {
		status = models.ApprovalNone
	}

	createdAt := payload.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return models.QuestionSet{
		ID:                 payload.ID,
		StudentID:          payload.StudentID,
		Domain:             payload.Domain,
		ServiceCategory:    payload.ServiceCategory,
		Department:         payload.Department,
		Topics:             payload.Topics,
		Handouts:           payload.Handouts,
		GeneratedQuestions: payload.GeneratedQuestions,
		SelectedQuestion:   payload.SelectedQuestion,
		ApprovalStatus:     status,
		FacultyRemarks:     payload.FacultyRemarks,
		CreatedAt:          createdAt,
	}
}

// splitList turns comma-separated form text into trimmed entries, dropping
// empties.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
