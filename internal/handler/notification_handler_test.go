package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/handler"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/service"
)

// newNotificationApp mounts the handler over the real in-memory feed so the
// list and dismiss routes are tested against actual feed semantics.
func newNotificationApp(svc service.NotificationService, authenticated bool) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/student", func(c *fiber.Ctx) error {
		if authenticated {
			c.Locals("user_id", "student-1")
		}
		return c.Next()
	})
	handler.NewNotificationHandler(svc, zerolog.New(io.Discard), 30*time.Second).Register(group)
	return app
}

func newFeedService() service.NotificationService {
	return service.NewNotificationService(nil, "", nil, zerolog.New(io.Discard))
}

func TestNotificationHandler_ListReturnsFeedInEmitOrder(t *testing.T) {
	svc := newFeedService()
	ctx := context.Background()

	first, err := svc.Publish(ctx, "student-1", "Assignment saved", models.NotificationSuccess, 0)
	require.NoError(t, err)
	second, err := svc.Publish(ctx, "student-1", "Question approved", models.NotificationInfo, time.Minute)
	require.NoError(t, err)

	app := newNotificationApp(svc, true)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/notifications?student_id=student-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                       `json:"success"`
		Data    []dto.NotificationResponse `json:"data"`
		Message string                     `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "notifications retrieved", response.Message)
	require.Len(t, response.Data, 2)
	require.Equal(t, first.ID, response.Data[0].ID)
	require.Equal(t, second.ID, response.Data[1].ID)

	require.True(t, response.Data[0].Sticky)
	require.Nil(t, response.Data[0].ExpiresAt)
	require.False(t, response.Data[1].Sticky)
	require.NotNil(t, response.Data[1].ExpiresAt)
	require.Equal(t, int64(60_000), response.Data[1].TTLMillis)
}

func TestNotificationHandler_ListFallsBackToAuthenticatedUser(t *testing.T) {
	svc := newFeedService()
	_, err := svc.Publish(context.Background(), "student-1", "Assignment saved", models.NotificationSuccess, 0)
	require.NoError(t, err)

	app := newNotificationApp(svc, true)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/notifications", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data []dto.NotificationResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 1)
}

func TestNotificationHandler_ListRequiresStudent(t *testing.T) {
	app := newNotificationApp(newFeedService(), false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/notifications", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var response struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.False(t, response.Success)
	require.Equal(t, "student_id is required", response.Message)
}

func TestNotificationHandler_DismissIsIdempotent(t *testing.T) {
	svc := newFeedService()
	ctx := context.Background()

	published, err := svc.Publish(ctx, "student-1", "Question approved", models.NotificationInfo, 0)
	require.NoError(t, err)

	app := newNotificationApp(svc, true)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/student/notifications/"+published.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Empty(t, svc.Active(ctx, "student-1"))

	// A second dismissal of the same id still succeeds.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/student/notifications/"+published.ID, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Message string            `json:"message"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "notification dismissed", response.Message)
	require.Equal(t, published.ID, response.Data["id"])
}

func TestNotificationHandler_ExpiredNotificationsDropFromList(t *testing.T) {
	svc := newFeedService()
	ctx := context.Background()

	_, err := svc.Publish(ctx, "student-1", "transient", models.NotificationInfo, time.Millisecond)
	require.NoError(t, err)
	sticky, err := svc.Publish(ctx, "student-1", "pinned", models.NotificationWarning, 0)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	app := newNotificationApp(svc, true)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/notifications", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data []dto.NotificationResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 1)
	require.Equal(t, sticky.ID, response.Data[0].ID)
}

func TestNotificationHandler_StreamRequiresStudent(t *testing.T) {
	app := newNotificationApp(newFeedService(), false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/notifications/stream", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
