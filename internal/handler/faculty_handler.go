package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/middleware"
	"github.com/praxislab/praxis-api/internal/service"
	"github.com/praxislab/praxis-api/internal/utils"
	"github.com/praxislab/praxis-api/pkg/backend"
)

// FacultyHandler serves the faculty review surface: the question approval
// queue, rubric definitions, submission evaluations, past-assignment
// corpus uploads and the platform overview.
type FacultyHandler struct {
	rubrics service.RubricService
	intake  service.IntakeService
	backend *backend.Client
	logger  zerolog.Logger
}

// NewFacultyHandler constructs a faculty handler. The backend client is
// only consulted for the analytics overview, which has no local state to
// merge and so bypasses the service layer.
func NewFacultyHandler(rubrics service.RubricService, intake service.IntakeService, client *backend.Client, logger zerolog.Logger) *FacultyHandler {
	return &FacultyHandler{
		rubrics: rubrics,
		intake:  intake,
		backend: client,
		logger:  logger.With().Str("component", "faculty_handler").Logger(),
	}
}

// Register wires faculty routes onto the faculty group.
func (h *FacultyHandler) Register(router fiber.Router) {
	router.Get("/questions", h.listQuestionSets)
	router.Put("/questions/:id/approve", h.approve)
	router.Get("/submissions/pending", h.pendingSubmissions)
	router.Post("/submissions/:id/evaluate", h.evaluate)
	router.Get("/rubrics", h.listRubrics)
	router.Post("/rubrics", h.createRubric)
	router.Put("/rubrics/:id", h.updateRubric)
	router.Delete("/rubrics/:id", h.deleteRubric)
	router.Post("/corpus/upload", middleware.RateLimit("corpus_upload", 3, time.Minute), h.uploadCorpus)
	router.Get("/corpus/status/:id", h.corpusStatus)
	router.Get("/overview", h.overview)
}

func (h *FacultyHandler) listQuestionSets(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	response, err := h.rubrics.ListQuestionSets(requestContext(c), c.Query("status"))
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "question sets retrieved", response)
}

func (h *FacultyHandler) approve(c *fiber.Ctx) error {
	var payload dto.ApproveQuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.FacultyID == "" {
		payload.FacultyID = userIDStringFromContext(c)
	}

	logger := requestLogger(h.logger, c)

	response, err := h.rubrics.ApproveQuestionSet(requestContext(c), c.Params("id"), payload)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	logger.Info().
		Str("question_set_id", c.Params("id")).
		Str("approval_status", response.ApprovalStatus).
		Msg("question set reviewed")
	return utils.SendSuccess(c, "review recorded", response)
}

func (h *FacultyHandler) pendingSubmissions(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	response, err := h.rubrics.PendingSubmissions(requestContext(c))
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "pending submissions retrieved", response)
}

func (h *FacultyHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.EvaluateSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.FacultyID == "" {
		payload.FacultyID = userIDStringFromContext(c)
	}

	logger := requestLogger(h.logger, c)

	response, err := h.rubrics.EvaluateSubmission(requestContext(c), c.Params("id"), payload)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	logger.Info().Str("submission_id", c.Params("id")).Msg("submission evaluated")
	return utils.SendSuccess(c, "evaluation recorded", response)
}

func (h *FacultyHandler) listRubrics(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	response, err := h.rubrics.ListRubrics(requestContext(c))
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "rubrics retrieved", response)
}

func (h *FacultyHandler) createRubric(c *fiber.Ctx) error {
	var payload dto.RubricRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	logger := requestLogger(h.logger, c)

	response, err := h.rubrics.CreateRubric(requestContext(c), payload)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubric created", response)
}

func (h *FacultyHandler) updateRubric(c *fiber.Ctx) error {
	var payload dto.RubricRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	logger := requestLogger(h.logger, c)

	response, err := h.rubrics.UpdateRubric(requestContext(c), c.Params("id"), payload)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "rubric updated", response)
}

func (h *FacultyHandler) deleteRubric(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	if err := h.rubrics.DeleteRubric(requestContext(c), c.Params("id")); err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "rubric deleted", fiber.Map{"rubric_id": c.Params("id")})
}

// uploadCorpus accepts a whole past-assignment batch in one request: the
// course fields plus up to ten files under the 'files' part. A staging
// session is opened behind the scenes and discarded if anything fails
// before the batch is flushed.
func (h *FacultyHandler) uploadCorpus(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid multipart payload")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "at least one file part named 'files' is required")
	}

	semester, err := strconv.Atoi(strings.TrimSpace(c.FormValue("semester")))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "semester must be a number")
	}
	payload := dto.CorpusUploadRequest{
		CourseTitle:  strings.TrimSpace(c.FormValue("course_title")),
		CourseCode:   strings.TrimSpace(c.FormValue("course_code")),
		AcademicYear: strings.TrimSpace(c.FormValue("academic_year")),
		Semester:     semester,
	}

	logger := requestLogger(h.logger, c)
	ctx := requestContext(c)

	session, err := h.intake.Open(ctx, dto.OpenIntakeRequest{Flow: service.FlowCorpus})
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	for _, header := range files {
		if _, err := h.intake.AddFile(ctx, session.SessionID, header); err != nil {
			h.intake.Discard(ctx, session.SessionID)
			return respondServiceError(c, logger, err)
		}
	}

	response, err := h.intake.ProcessCorpus(ctx, session.SessionID, payload)
	if err != nil {
		h.intake.Discard(ctx, session.SessionID)
		return respondServiceError(c, logger, err)
	}

	logger.Info().
		Str("course_code", response.CourseCode).
		Int("files", len(response.UploadedFiles)).
		Msg("corpus batch uploaded")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "corpus batch uploaded", response)
}

func (h *FacultyHandler) corpusStatus(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	response, err := h.intake.CorpusStatus(requestContext(c), c.Params("id"))
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "corpus status retrieved", response)
}

func (h *FacultyHandler) overview(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	payload, err := h.backend.Overview(requestContext(c))
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "platform overview retrieved", dto.PlatformOverviewResponse{
		TotalStudents:      payload.TotalStudents,
		TotalAssignments:   payload.TotalAssignments,
		TotalSubmissions:   payload.TotalSubmissions,
		PendingEvaluations: payload.PendingEvaluations,
		ApprovalRate:       payload.ApprovalRate,
		AverageScore:       payload.AverageScore,
	})
}
