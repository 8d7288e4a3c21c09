package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/service"
	"github.com/praxislab/praxis-api/internal/utils"
)

// socketWriteWait bounds each websocket write so a stalled client cannot
// wedge the write loop.
const socketWriteWait = 10 * time.Second

// NotificationHandler serves the live notification feed: the active list,
// dismissal, and the SSE and websocket streams.
type NotificationHandler struct {
	service   service.NotificationService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	return &NotificationHandler{
		service:   service,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// Register wires notification routes onto the student group.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/notifications", h.list)
	router.Delete("/notifications/:id", h.dismiss)
	router.Get("/notifications/stream", h.stream)
	router.Get("/notifications/ws", h.upgradeRequired, websocket.New(h.socket))
}

func (h *NotificationHandler) studentID(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Query("student_id")); id != "" {
		return id
	}
	return userIDStringFromContext(c)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	studentID := h.studentID(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "student_id is required")
	}

	notifications := h.service.Active(requestContext(c), studentID)
	return utils.SendSuccess(c, "notifications retrieved", notifications)
}

func (h *NotificationHandler) dismiss(c *fiber.Ctx) error {
	studentID := h.studentID(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "student_id is required")
	}

	logger := requestLogger(h.logger, c)

	if err := h.service.Dismiss(requestContext(c), studentID, c.Params("id")); err != nil {
		return respondServiceError(c, logger, err)
	}

	return utils.SendSuccess(c, "notification dismissed", fiber.Map{"id": c.Params("id")})
}

func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	studentID := h.studentID(c)
	if studentID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "student_id is required")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))
	stream, cleanup := h.service.Subscribe(studentID)

	keepAliveInterval := h.keepAlive
	if keepAliveInterval <= 0 {
		keepAliveInterval = 30 * time.Second
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		ticker := time.NewTicker(keepAliveInterval / 2)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-stream:
				if !ok {
					return
				}
				if err := writeNotificationEvent(w, event); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write notification event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write notification keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *NotificationHandler) upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// socket pushes the same event stream over a websocket. The read side only
// watches for the client going away.
func (h *NotificationHandler) socket(conn *websocket.Conn) {
	defer conn.Close()

	studentID := strings.TrimSpace(conn.Query("student_id"))
	if studentID == "" {
		if id, ok := conn.Locals("user_id").(string); ok {
			studentID = strings.TrimSpace(id)
		}
	}
	if studentID == "" {
		deadline := time.Now().Add(socketWriteWait)
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "student_id is required")
		_ = conn.WriteControl(websocket.CloseMessage, message, deadline)
		return
	}

	stream, cleanup := h.service.Subscribe(studentID)
	defer cleanup()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	keepAliveInterval := h.keepAlive
	if keepAliveInterval <= 0 {
		keepAliveInterval = 30 * time.Second
	}
	ticker := time.NewTicker(keepAliveInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-stream:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug().Err(err).Msg("failed to write websocket event")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeNotificationEvent(w *bufio.Writer, event dto.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: notification\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
