package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/service"
	"github.com/praxislab/praxis-api/internal/utils"
)

// EvaluationHandler serves the student-side analysis and submission routes.
type EvaluationHandler struct {
	service  service.EvaluationService
	notifier service.Announcer
	logger   zerolog.Logger
}

// NewEvaluationHandler constructs an evaluation handler.
func NewEvaluationHandler(service service.EvaluationService, notifier service.Announcer, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service:  service,
		notifier: notifier,
		logger:   logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes onto the student group.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("/analyze", h.analyze)
	router.Post("/submit-to-faculty", h.submitToFaculty)
	router.Get("/submissions/:student_id", h.history)
}

func (h *EvaluationHandler) analyze(c *fiber.Ctx) error {
	var payload dto.AnalyzeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	logger := requestLogger(h.logger, c)
	ctx := requestContext(c)

	response, err := h.service.Analyze(ctx, payload)
	if err != nil {
		announceFailure(ctx, h.notifier, payload.StudentID, "Analysis failed: "+err.Error(), err)
		return respondServiceError(c, logger, err)
	}

	logger.Info().Str("submission_id", response.SubmissionID).Msg("analysis completed")
	return utils.SendSuccess(c, "analysis completed", response)
}

func (h *EvaluationHandler) submitToFaculty(c *fiber.Ctx) error {
	var payload dto.SubmitToFacultyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	logger := requestLogger(h.logger, c)
	ctx := requestContext(c)

	response, err := h.service.SubmitToFaculty(ctx, payload)
	if err != nil {
		announceFailure(ctx, h.notifier, payload.StudentID, "Could not submit to faculty: "+err.Error(), err)
		return respondServiceError(c, logger, err)
	}

	if h.notifier != nil {
		h.notifier.Announce(ctx, payload.StudentID, "Submission sent to faculty", models.NotificationSuccess, service.DefaultNotificationTTL)
	}
	logger.Info().Str("submission_id", response.ID).Msg("submission sent to faculty")
	return utils.SendSuccess(c, "submission sent to faculty", response)
}

func (h *EvaluationHandler) history(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	response, err := h.service.History(requestContext(c), c.Params("student_id"))
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "submission history retrieved", response)
}
