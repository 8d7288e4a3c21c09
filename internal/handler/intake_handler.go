package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/service"
	"github.com/praxislab/praxis-api/internal/utils"
)

// IntakeHandler serves the submission intake routes: staging files, running
// extraction and handing the batch over for analysis.
type IntakeHandler struct {
	service service.IntakeService
	logger  zerolog.Logger
}

// NewIntakeHandler constructs an intake handler.
func NewIntakeHandler(service service.IntakeService, logger zerolog.Logger) *IntakeHandler {
	return &IntakeHandler{
		service: service,
		logger:  logger.With().Str("component", "intake_handler").Logger(),
	}
}

// Register wires intake routes onto the student group.
func (h *IntakeHandler) Register(router fiber.Router) {
	router.Post("/intake", h.open)
	router.Get("/intake/:sid", h.session)
	router.Post("/intake/:sid/files", h.addFile)
	router.Delete("/intake/:sid/files/:artifact_id", h.removeFile)
	router.Post("/intake/:sid/process", h.process)
	router.Post("/intake/:sid/submit", h.submit)
}

func (h *IntakeHandler) open(c *fiber.Ctx) error {
	var payload dto.OpenIntakeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	logger := requestLogger(h.logger, c)

	response, err := h.service.Open(requestContext(c), payload)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "intake session opened", response)
}

func (h *IntakeHandler) session(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	response, err := h.service.Session(requestContext(c), c.Params("sid"))
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "intake session retrieved", response)
}

func (h *IntakeHandler) addFile(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "a file part named 'file' is required")
	}

	logger := requestLogger(h.logger, c)

	response, err := h.service.AddFile(requestContext(c), c.Params("sid"), header)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "file attached", response)
}

func (h *IntakeHandler) removeFile(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	if err := h.service.RemoveFile(requestContext(c), c.Params("sid"), c.Params("artifact_id")); err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "file removed", fiber.Map{"artifact_id": c.Params("artifact_id")})
}

func (h *IntakeHandler) process(c *fiber.Ctx) error {
	var payload dto.ProcessIntakeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	logger := requestLogger(h.logger, c)

	response, err := h.service.Process(requestContext(c), c.Params("sid"), payload)
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "files processed", response)
}

func (h *IntakeHandler) submit(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)

	response, err := h.service.Submit(requestContext(c), c.Params("sid"))
	if err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "submission staged", response)
}
