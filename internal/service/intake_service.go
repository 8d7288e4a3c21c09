package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/observability"
	"github.com/praxislab/praxis-api/pkg/backend"
)

// Intake flows. The student flow stages one submission for evaluation; the
// corpus flow batches past assignments for background question mining.
const (
	FlowStudent = "student"
	FlowCorpus  = "corpus"
)

const (
	studentFlowMaxFiles = 1
	corpusFlowMaxFiles  = 10

	// maxArtifactSize caps a single attached file. The upload group rejects
	// oversized files anyway; failing locally saves the round trip.
	maxArtifactSize = 25 << 20

	// Abandoned sessions pin raw file buffers in memory, so the janitor
	// drops any session idle for longer than this.
	sessionIdleTimeout   = 30 * time.Minute
	sessionSweepInterval = 5 * time.Minute

	// maxOpenSessions bounds concurrent sessions across all users. Every
	// open session can pin up to maxArtifactSize per attached file until it
	// is processed, discarded, or reaped.
	maxOpenSessions = 64
)

// Rejections raised while a file is attached to a session. These are
// exported so handlers can match them with errors.Is.
var (
	ErrUnknownSession   = &ValidationError{Field: "session_id", Message: "Unknown intake session"}
	ErrUnsupportedFile  = &ValidationError{Field: "file", Message: "Only PDF and DOCX files are allowed"}
	ErrArtifactTooLarge = &ValidationError{Field: "file", Message: fmt.Sprintf("File exceeds the %dMB limit", maxArtifactSize>>20)}
)

// acceptedExtensions maps the allowed extensions to the sniffed content
// types accepted for them. A DOCX container is a plain ZIP archive, so a
// generic zip detection is accepted for .docx attachments.
var acceptedExtensions = map[string][]string{
	".pdf": {"application/pdf"},
	".docx": {
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/zip",
	},
}

// IntakeService stages submission files for the upload group: attach and
// remove files locally, push the staged batch through text extraction, and
// hand the resolved text over to the evaluation flow. Corpus sessions are
// instead flushed as one past-assignment batch.
type IntakeService interface {
	Open(ctx context.Context, req dto.OpenIntakeRequest) (dto.IntakeSessionResponse, error)
	Session(ctx context.Context, sessionID string) (dto.IntakeSessionResponse, error)
	Discard(ctx context.Context, sessionID string)
	AddFile(ctx context.Context, sessionID string, header *multipart.FileHeader) (dto.ArtifactResponse, error)
	RemoveFile(ctx context.Context, sessionID, artifactID string) error
	Process(ctx context.Context, sessionID string, req dto.ProcessIntakeRequest) (dto.IntakeSessionResponse, error)
	Submit(ctx context.Context, sessionID string) (dto.IntakeSubmitResponse, error)
	ProcessCorpus(ctx context.Context, sessionID string, req dto.CorpusUploadRequest) (dto.CorpusUploadResponse, error)
	CorpusStatus(ctx context.Context, assignmentID string) (dto.CorpusStatusResponse, error)
	Start(ctx context.Context)
}

// intakeArtifact pairs the visible artifact state with the raw bytes held
// back for the eventual multipart post.
type intakeArtifact struct {
	artifact      models.SubmissionArtifact
	content       []byte
	lowConfidence bool
}

func (a *intakeArtifact) fail(message string) {
	a.artifact.ProcessingStatus = models.ProcessingFailed
	a.artifact.ExtractedText = ""
	a.artifact.Preview = ""
	a.artifact.Error = message
	a.lowConfidence = false
}

// intakeSession is one staged batch of files. All access goes through the
// service mutex.
type intakeSession struct {
	id         string
	flow       string
	maxFiles   int
	status     *StatusSlot
	artifacts  []*intakeArtifact
	lastActive time.Time
}

func (s *intakeSession) capacityError() *ValidationError {
	if s.maxFiles == 1 {
		return &ValidationError{Field: "files", Message: "A student submission carries a single file"}
	}
	return &ValidationError{Field: "files", Message: fmt.Sprintf("A batch holds at most %d files", s.maxFiles)}
}

type intakeService struct {
	client    *backend.Client
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*intakeSession
}

// NewIntakeService builds the intake coordinator on top of the upload group
// client.
func NewIntakeService(client *backend.Client, validate *validator.Validate, logger zerolog.Logger) IntakeService {
	return &intakeService{
		client:    client,
		validator: validate,
		logger:    logger.With().Str("component", "intake_service").Logger(),
		tracer:    otel.Tracer("praxis.service.intake"),
		now:       time.Now,
		sessions:  make(map[string]*intakeSession),
	}
}

// Start launches the janitor that reaps idle sessions. It returns once the
// loop is running; the loop stops when ctx is cancelled.
func (s *intakeService) Start(ctx context.Context) {
	go s.sweepLoop(ctx)
}

func (s *intakeService) Open(_ context.Context, req dto.OpenIntakeRequest) (dto.IntakeSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.IntakeSessionResponse{}, err
	}

	session := &intakeSession{
		id:         uuid.NewString(),
		flow:       req.Flow,
		maxFiles:   studentFlowMaxFiles,
		status:     NewStatusSlot(),
		lastActive: s.now(),
	}
	if req.Flow == FlowCorpus {
		session.maxFiles = corpusFlowMaxFiles
	}

	s.mu.Lock()
	if len(s.sessions) >= maxOpenSessions {
		s.mu.Unlock()
		s.logger.Warn().Int("open_sessions", maxOpenSessions).Msg("intake session limit reached")
		return dto.IntakeSessionResponse{}, &PreconditionError{
			Op:      "open_intake",
			Message: "Too many open intake sessions, try again shortly",
		}
	}
	s.sessions[session.id] = session
	response := s.sessionResponse(session)
	s.mu.Unlock()

	s.logger.Info().
		Str("session_id", session.id).
		Str("flow", session.flow).
		Msg("intake session opened")
	return response, nil
}

func (s *intakeService) Session(_ context.Context, sessionID string) (dto.IntakeSessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return dto.IntakeSessionResponse{}, ErrUnknownSession
	}
	session.lastActive = s.now()
	return s.sessionResponse(session), nil
}

// Discard drops a session and everything staged in it. Unknown ids are a
// no-op so callers can clean up without checking first.
func (s *intakeService) Discard(_ context.Context, sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		s.logger.Info().Str("session_id", sessionID).Msg("intake session discarded")
	}
}

func (s *intakeService) AddFile(ctx context.Context, sessionID string, header *multipart.FileHeader) (dto.ArtifactResponse, error) {
	_, span := s.tracer.Start(ctx, "intake.add_file", trace.WithAttributes(
		attribute.String("intake.session_id", sessionID),
		attribute.String("intake.file_name", header.Filename),
	))
	defer span.End()

	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "unknown session")
		return dto.ArtifactResponse{}, ErrUnknownSession
	}
	session.lastActive = s.now()
	flow := session.flow
	if len(session.artifacts) >= session.maxFiles {
		capErr := session.capacityError()
		s.mu.Unlock()
		observability.IntakeFiles().WithLabelValues(flow, "rejected").Inc()
		span.SetStatus(codes.Error, "session full")
		return dto.ArtifactResponse{}, capErr
	}
	s.mu.Unlock()

	// The file is buffered and sniffed outside the lock; capacity is
	// checked again when attaching.
	content, contentType, err := readArtifact(header)
	if err != nil {
		observability.IntakeFiles().WithLabelValues(flow, "rejected").Inc()
		s.logger.Warn().
			Err(err).
			Str("session_id", sessionID).
			Str("file_name", header.Filename).
			Msg("upload rejected")
		span.RecordError(err)
		span.SetStatus(codes.Error, "file rejected")
		return dto.ArtifactResponse{}, err
	}

	art := &intakeArtifact{
		artifact: models.SubmissionArtifact{
			ID:               uuid.NewString(),
			FileName:         filepath.Base(header.Filename),
			FileSize:         int64(len(content)),
			ContentType:      contentType,
			ProcessingStatus: models.ProcessingPending,
		},
		content: content,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok = s.sessions[sessionID]
	if !ok {
		span.SetStatus(codes.Error, "unknown session")
		return dto.ArtifactResponse{}, ErrUnknownSession
	}
	if len(session.artifacts) >= session.maxFiles {
		observability.IntakeFiles().WithLabelValues(session.flow, "rejected").Inc()
		span.SetStatus(codes.Error, "session full")
		return dto.ArtifactResponse{}, session.capacityError()
	}
	session.artifacts = append(session.artifacts, art)
	session.lastActive = s.now()

	observability.IntakeFiles().WithLabelValues(session.flow, "accepted").Inc()
	span.SetStatus(codes.Ok, "")
	return dto.NewArtifactResponse(art.artifact, false), nil
}

// RemoveFile detaches an artifact. Removing an id that is not attached is a
// no-op; any surfaced status line is cleared either way so a shed failure
// does not keep warning.
func (s *intakeService) RemoveFile(_ context.Context, sessionID, artifactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	session.lastActive = s.now()

	for i, art := range session.artifacts {
		if art.artifact.ID == artifactID {
			session.artifacts = append(session.artifacts[:i], session.artifacts[i+1:]...)
			break
		}
	}
	session.status.Clear()
	return nil
}

func (s *intakeService) Process(ctx context.Context, sessionID string, req dto.ProcessIntakeRequest) (dto.IntakeSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.IntakeSessionResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "intake.process", trace.WithAttributes(
		attribute.String("intake.session_id", sessionID),
		attribute.String("intake.assignment_id", req.AssignmentID),
	))
	defer span.End()

	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "unknown session")
		return dto.IntakeSessionResponse{}, ErrUnknownSession
	}
	session.lastActive = s.now()
	if session.flow != FlowStudent {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "wrong flow")
		return dto.IntakeSessionResponse{}, &PreconditionError{Op: "process", Message: "Corpus sessions are sent as a batch, not processed per submission"}
	}
	if len(session.artifacts) == 0 {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "no files")
		return dto.IntakeSessionResponse{}, &PreconditionError{Op: "process", Message: "Attach a file before processing"}
	}

	ids := make([]string, 0, len(session.artifacts))
	files := make([]backend.UploadFile, 0, len(session.artifacts))
	for _, art := range session.artifacts {
		ids = append(ids, art.artifact.ID)
		files = append(files, backend.UploadFile{
			Name:        art.artifact.FileName,
			ContentType: art.artifact.ContentType,
			Content:     art.content,
		})
	}
	session.status.Set(fmt.Sprintf("Processing %d file(s)", len(files)), models.NotificationInfo, 0)
	s.mu.Unlock()

	results, err := s.client.UploadSubmissions(ctx, req.AssignmentID, req.StudentID, files)
	if err != nil {
		s.mu.Lock()
		session.status.Set("Processing failed, check the upload and retry", models.NotificationError, 0)
		s.mu.Unlock()
		s.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Str("assignment_id", req.AssignmentID).
			Msg("submission upload failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return dto.IntakeSessionResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	processed, failed, shaky := s.applyResults(session, ids, results)

	switch {
	case processed == 0:
		session.status.Set("No readable text was found in the uploaded file(s)", models.NotificationError, 0)
	case shaky > 0:
		session.status.Set("Very little text was extracted, review the preview before submitting", models.NotificationWarning, 0)
	default:
		session.status.Set("Text extracted successfully", models.NotificationSuccess, DefaultNotificationTTL)
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Str("assignment_id", req.AssignmentID).
		Int("processed", processed).
		Int("failed", failed).
		Int("low_confidence", shaky).
		Msg("submission batch processed")
	span.SetStatus(codes.Ok, "")
	return s.sessionResponse(session), nil
}

// applyResults maps per-file extraction results back onto the artifacts
// that were posted, matched by their id at post time. Artifacts removed
// while the upload was in flight are skipped; re-processing overwrites
// earlier results rather than appending. Caller holds the mutex.
func (s *intakeService) applyResults(session *intakeSession, ids []string, results []backend.UploadedArtifact) (processed, failed, shaky int) {
	byID := make(map[string]*intakeArtifact, len(session.artifacts))
	for _, art := range session.artifacts {
		byID[art.artifact.ID] = art
	}

	for i, id := range ids {
		art, ok := byID[id]
		if !ok {
			continue
		}
		if i >= len(results) {
			art.fail("The upload service returned no result for this file")
			failed++
			observability.IntakeFiles().WithLabelValues(session.flow, "failed").Inc()
			continue
		}

		result := results[i]
		if result.SubmissionID != "" {
			art.artifact.ID = result.SubmissionID
		}
		if result.ExtractionMethod != "" {
			art.artifact.ExtractionMethod = result.ExtractionMethod
		}
		art.artifact.OCRConfidence = result.OCRConfidence

		text, ok := resolveExtractedText(result)
		if !ok {
			// An empty extraction is recorded as a failure, never as a
			// processed artifact with blank content.
			extractErr := &ExtractionError{FileName: art.artifact.FileName, Message: "No readable text could be extracted, the file may be scanned images or empty"}
			art.fail(extractErr.Message)
			failed++
			observability.IntakeFiles().WithLabelValues(session.flow, "failed").Inc()
			s.logger.Warn().
				Err(extractErr).
				Str("session_id", session.id).
				Msg("extraction yielded no text")
			continue
		}

		art.artifact.ExtractedText = text
		art.artifact.ProcessingStatus = models.ProcessingProcessed
		art.artifact.Preview = models.BuildPreview(text)
		art.artifact.Error = ""
		art.lowConfidence = utf8.RuneCountInString(text) < models.ConfidentTextLength
		processed++
		if art.lowConfidence {
			shaky++
		}
		observability.IntakeFiles().WithLabelValues(session.flow, "processed").Inc()
	}
	return processed, failed, shaky
}

// Submit hands the extracted text of every processed artifact over to the
// evaluation flow. At least one artifact must have processed successfully.
func (s *intakeService) Submit(ctx context.Context, sessionID string) (dto.IntakeSubmitResponse, error) {
	_, span := s.tracer.Start(ctx, "intake.submit", trace.WithAttributes(
		attribute.String("intake.session_id", sessionID),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		span.SetStatus(codes.Error, "unknown session")
		return dto.IntakeSubmitResponse{}, ErrUnknownSession
	}
	session.lastActive = s.now()
	if session.flow != FlowStudent {
		span.SetStatus(codes.Error, "wrong flow")
		return dto.IntakeSubmitResponse{}, &PreconditionError{Op: "submit", Message: "Corpus sessions are sent as a batch, not submitted for evaluation"}
	}

	handoff := make([]dto.SubmittedArtifact, 0, len(session.artifacts))
	for _, art := range session.artifacts {
		if !art.artifact.Processed() {
			continue
		}
		handoff = append(handoff, dto.SubmittedArtifact{
			ID:       art.artifact.ID,
			FileName: art.artifact.FileName,
			Content:  art.artifact.ExtractedText,
		})
	}
	if len(handoff) == 0 {
		span.SetStatus(codes.Error, "nothing processed")
		return dto.IntakeSubmitResponse{}, &PreconditionError{Op: "submit", Message: "Process at least one file before submitting"}
	}

	span.SetStatus(codes.Ok, "")
	return dto.IntakeSubmitResponse{SessionID: session.id, Artifacts: handoff}, nil
}

// ProcessCorpus flushes a corpus session as one past-assignment batch. The
// session is closed on success; follow-up state is polled per assignment
// through CorpusStatus.
func (s *intakeService) ProcessCorpus(ctx context.Context, sessionID string, req dto.CorpusUploadRequest) (dto.CorpusUploadResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CorpusUploadResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "intake.process_corpus", trace.WithAttributes(
		attribute.String("intake.session_id", sessionID),
		attribute.String("intake.course_code", req.CourseCode),
	))
	defer span.End()

	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "unknown session")
		return dto.CorpusUploadResponse{}, ErrUnknownSession
	}
	session.lastActive = s.now()
	if session.flow != FlowCorpus {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "wrong flow")
		return dto.CorpusUploadResponse{}, &PreconditionError{Op: "process_corpus", Message: "Student sessions are processed per submission, not as a batch"}
	}
	if len(session.artifacts) == 0 {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "no files")
		return dto.CorpusUploadResponse{}, &PreconditionError{Op: "process_corpus", Message: "Attach at least one file before uploading the batch"}
	}

	files := make([]backend.UploadFile, 0, len(session.artifacts))
	for _, art := range session.artifacts {
		files = append(files, backend.UploadFile{
			Name:        art.artifact.FileName,
			ContentType: art.artifact.ContentType,
			Content:     art.content,
		})
	}
	s.mu.Unlock()

	payload, err := s.client.UploadCorpus(ctx, backend.CorpusUploadRequest{
		CourseTitle:  req.CourseTitle,
		CourseCode:   req.CourseCode,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Files:        files,
	})
	if err != nil {
		s.mu.Lock()
		session.status.Set("Batch upload failed, retry when the upload service recovers", models.NotificationError, 0)
		s.mu.Unlock()
		s.logger.Error().
			Err(err).
			Str("session_id", sessionID).
			Str("course_code", req.CourseCode).
			Msg("corpus upload failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "corpus upload failed")
		return dto.CorpusUploadResponse{}, err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	for range files {
		observability.IntakeFiles().WithLabelValues(FlowCorpus, "processed").Inc()
	}
	s.logger.Info().
		Str("session_id", sessionID).
		Str("course_code", req.CourseCode).
		Int("files", len(files)).
		Strs("assignment_ids", payload.AssignmentIDs).
		Msg("corpus batch accepted")
	span.SetStatus(codes.Ok, "")

	return dto.CorpusUploadResponse{
		Message:          payload.Message,
		CourseTitle:      payload.CourseTitle,
		CourseCode:       payload.CourseCode,
		AcademicYear:     payload.AcademicYear,
		Semester:         payload.Semester,
		UploadedFiles:    payload.UploadedFiles,
		AssignmentIDs:    payload.AssignmentIDs,
		ProcessingStatus: payload.ProcessingStatus,
	}, nil
}

// CorpusStatus polls the mining state of one uploaded past assignment.
func (s *intakeService) CorpusStatus(ctx context.Context, assignmentID string) (dto.CorpusStatusResponse, error) {
	if strings.TrimSpace(assignmentID) == "" {
		return dto.CorpusStatusResponse{}, &ValidationError{Field: "assignment_id", Message: "Assignment id is required"}
	}

	payload, err := s.client.CorpusStatus(ctx, assignmentID)
	if err != nil {
		return dto.CorpusStatusResponse{}, err
	}
	return dto.CorpusStatusResponse{
		AssignmentID:  payload.AssignmentID,
		Status:        payload.Status,
		ErrorMessage:  payload.ErrorMessage,
		QuestionCount: payload.QuestionCount,
	}, nil
}

// sessionResponse serializes a session. Caller holds the mutex.
func (s *intakeService) sessionResponse(session *intakeSession) dto.IntakeSessionResponse {
	artifacts := make([]dto.ArtifactResponse, 0, len(session.artifacts))
	for _, art := range session.artifacts {
		artifacts = append(artifacts, dto.NewArtifactResponse(art.artifact, art.lowConfidence))
	}
	line, kind := session.status.Current()
	return dto.IntakeSessionResponse{
		SessionID:  session.id,
		Flow:       session.flow,
		MaxFiles:   session.maxFiles,
		StatusLine: line,
		StatusKind: string(kind),
		Artifacts:  artifacts,
	}
}

func (s *intakeService) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dropIdleSessions()
		}
	}
}

func (s *intakeService) dropIdleSessions() {
	cutoff := s.now().Add(-sessionIdleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			s.logger.Debug().
				Str("session_id", id).
				Str("flow", session.flow).
				Msg("idle intake session dropped")
		}
	}
}

// readArtifact buffers an attached file and verifies it against the accept
// filter. The extension gates first, then the sniffed content type has to
// agree, so a renamed text file does not slip through as a document.
func readArtifact(header *multipart.FileHeader) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	allowed, ok := acceptedExtensions[ext]
	if !ok {
		return nil, "", ErrUnsupportedFile
	}
	if header.Size > maxArtifactSize {
		return nil, "", ErrArtifactTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxArtifactSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(content)) > maxArtifactSize {
		return nil, "", ErrArtifactTooLarge
	}

	detected := mimetype.Detect(content)
	for _, accepted := range allowed {
		if detected.Is(accepted) {
			return content, accepted, nil
		}
	}
	return nil, "", ErrUnsupportedFile
}
