package models

import "time"

// NotificationKind classifies how a notification should be rendered.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

// Notification is a transient message shown to one student. A zero TTL makes
// the notification sticky until it is dismissed explicitly.
type Notification struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	TTL       time.Duration    `json:"ttl"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at,omitempty"`
}

// Sticky reports whether the notification stays until dismissed.
func (n Notification) Sticky() bool {
	return n.TTL <= 0
}

// ExpiredAt reports whether the notification should be gone at the given time.
func (n Notification) ExpiredAt(reference time.Time) bool {
	if n.Sticky() {
		return false
	}
	return !reference.Before(n.ExpiresAt)
}
