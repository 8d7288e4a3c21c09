package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxislab/praxis-api/internal/models"
)

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

type recordedAnnouncement struct {
	StudentID string
	Message   string
	Kind      models.NotificationKind
	TTL       time.Duration
}

// recordingAnnouncer captures feed announcements made by handlers.
type recordingAnnouncer struct {
	mu     sync.Mutex
	events []recordedAnnouncement
}

func (r *recordingAnnouncer) Announce(_ context.Context, studentID, message string, kind models.NotificationKind, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedAnnouncement{StudentID: studentID, Message: message, Kind: kind, TTL: ttl})
}

func (r *recordingAnnouncer) all() []recordedAnnouncement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedAnnouncement, len(r.events))
	copy(out, r.events)
	return out
}
