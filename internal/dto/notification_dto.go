package dto

import (
	"time"

	"github.com/praxislab/praxis-api/internal/models"
)

// Notification event names carried on the stream.
const (
	NotificationEmitted   = "emitted"
	NotificationDismissed = "dismissed"
	NotificationExpired   = "expired"
)

// NotificationResponse represents one live notification returned to clients.
type NotificationResponse struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	Message   string     `json:"message"`
	Kind      string     `json:"kind"`
	TTLMillis int64      `json:"ttl_ms"`
	Sticky    bool       `json:"sticky"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NotificationEvent is one message on a notification stream.
type NotificationEvent struct {
	Event        string               `json:"event"`
	Notification NotificationResponse `json:"notification"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	response := NotificationResponse{
		ID:        model.ID,
		StudentID: model.StudentID,
		Message:   model.Message,
		Kind:      string(model.Kind),
		TTLMillis: model.TTL.Milliseconds(),
		Sticky:    model.Sticky(),
		CreatedAt: model.CreatedAt,
	}
	if !model.Sticky() {
		expiresAt := model.ExpiresAt
		response.ExpiresAt = &expiresAt
	}
	return response
}

// NewNotificationResponseSlice converts a slice of models into DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		out = append(out, NewNotificationResponse(notification))
	}
	return out
}
