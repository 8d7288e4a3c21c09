package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/praxislab/praxis-api/internal/middleware"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/service"
	"github.com/praxislab/praxis-api/internal/utils"
	"github.com/praxislab/praxis-api/pkg/backend"
)

func userIDStringFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// requestContext derives the context passed down to services. The user
// context already carries the correlation id when the middleware ran; the
// id is re-attached here so handlers behave the same under tests that skip
// the middleware stack.
func requestContext(c *fiber.Ctx) context.Context {
	return middleware.ContextWithCorrelation(c.UserContext(), middleware.GetCorrelationID(c))
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func describeFieldErrors(errs validator.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		fields = append(fields, fieldErr.Field())
	}
	return "Invalid or missing fields: " + strings.Join(fields, ", ")
}

// respondServiceError translates service layer failures into the response
// envelope. Local rejections keep their message; remote failures keep the
// upstream status when it is a client error and collapse to 502 otherwise,
// so a group outage never masquerades as a caller mistake.
func respondServiceError(c *fiber.Ctx, logger *zerolog.Logger, err error) error {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, describeFieldErrors(fieldErrors))
	}

	// Unknown session is a lookup miss, not a malformed request, so it is
	// matched before the generic validation branch it shares a type with.
	if errors.Is(err, service.ErrUnknownSession) {
		return utils.SendError(c, fiber.StatusNotFound, service.ErrUnknownSession.Message)
	}

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return utils.SendError(c, fiber.StatusBadRequest, validationErr.Message)
	}

	var preconditionErr *service.PreconditionError
	if errors.As(err, &preconditionErr) {
		return utils.SendError(c, fiber.StatusConflict, preconditionErr.Message)
	}

	var extractionErr *service.ExtractionError
	if errors.As(err, &extractionErr) {
		return utils.SendError(c, fiber.StatusUnprocessableEntity, extractionErr.Message)
	}

	var remoteErr *backend.RemoteError
	if errors.As(err, &remoteErr) {
		status := remoteErr.HTTPStatusCode()
		if status < fiber.StatusBadRequest || status >= fiber.StatusInternalServerError {
			status = fiber.StatusBadGateway
		}
		return utils.SendError(c, status, remoteErr.Error())
	}

	logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled service error")
	return utils.SendError(c, fiber.StatusInternalServerError, "Something went wrong, try again later")
}

// announceFailure surfaces an operation failure on the student's feed.
// Local rejections come through as warnings, everything else as errors.
func announceFailure(ctx context.Context, notifier service.Announcer, studentID, message string, err error) {
	if notifier == nil || strings.TrimSpace(studentID) == "" {
		return
	}

	kind := models.NotificationError
	var validationErr *service.ValidationError
	var preconditionErr *service.PreconditionError
	if errors.As(err, &validationErr) || errors.As(err, &preconditionErr) || isValidationError(err) {
		kind = models.NotificationWarning
	}

	notifier.Announce(ctx, studentID, message, kind, service.DefaultNotificationTTL)
}
