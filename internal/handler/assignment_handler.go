package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/middleware"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/service"
	"github.com/praxislab/praxis-api/internal/utils"
)

// AssignmentHandler serves the question generation and assignment lifecycle
// routes for students.
type AssignmentHandler struct {
	service  service.AssignmentService
	notifier service.Announcer
	logger   zerolog.Logger
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(service service.AssignmentService, notifier service.Announcer, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service:  service,
		notifier: notifier,
		logger:   logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register wires assignment routes onto the student group. Generation is
// rate limited per student because every call fans out to the generation
// group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Post("/questions/generate", middleware.RateLimit("generate", 5, time.Minute), h.generate)
	router.Put("/questions/:id/select", h.selectQuestion)
	router.Get("/questions/:id/status", h.checkStatus)
	router.Post("/assignments/save", h.save)
	router.Get("/assignments", h.listSaved)
	router.Get("/context-options", h.contextOptions)
	router.Get("/courses", h.courses)
}

func (h *AssignmentHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateQuestionsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	logger := requestLogger(h.logger, c)
	ctx := requestContext(c)

	response, err := h.service.Generate(ctx, payload)
	if err != nil {
		announceFailure(ctx, h.notifier, payload.StudentID, "Question generation failed: "+err.Error(), err)
		return respondServiceError(c, logger, err)
	}

	logger.Info().Str("question_set_id", response.ID).Msg("question set generated")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "questions generated", response)
}

func (h *AssignmentHandler) selectQuestion(c *fiber.Ctx) error {
	var payload dto.SelectQuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	logger := requestLogger(h.logger, c)

	response, err := h.service.Select(requestContext(c), c.Params("id"), payload)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "question selected", response)
}

func (h *AssignmentHandler) checkStatus(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	announce := c.QueryBool("announce", false)
	response, err := h.service.CheckStatus(requestContext(c), c.Params("id"), announce)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "status refreshed", response)
}

func (h *AssignmentHandler) save(c *fiber.Ctx) error {
	var payload dto.SaveAssignmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	logger := requestLogger(h.logger, c)
	ctx := requestContext(c)

	response, err := h.service.Save(ctx, payload)
	if err != nil {
		announceFailure(ctx, h.notifier, payload.StudentID, "Could not save the assignment: "+err.Error(), err)
		return respondServiceError(c, logger, err)
	}

	if h.notifier != nil {
		h.notifier.Announce(ctx, payload.StudentID, "Assignment saved", models.NotificationSuccess, service.DefaultNotificationTTL)
	}
	logger.Info().Str("assignment_id", response.AssignmentID).Msg("assignment saved")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment saved", response)
}

func (h *AssignmentHandler) listSaved(c *fiber.Ctx) error {
	studentID := strings.TrimSpace(c.Query("student_id"))
	if studentID == "" {
		studentID = userIDStringFromContext(c)
	}
	if studentID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "student_id is required")
	}

	logger := requestLogger(h.logger, c)

	response, err := h.service.ListSaved(requestContext(c), studentID)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", response)
}

func (h *AssignmentHandler) contextOptions(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "context options retrieved", h.service.ContextOptions())
}

func (h *AssignmentHandler) courses(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	response, err := h.service.Courses(requestContext(c))
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "courses retrieved", response)
}
