package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praxislab/praxis-api/internal/models"
)

func TestStatusSlotReplacesPreviousLine(t *testing.T) {
	slot := NewStatusSlot()

	slot.Set("Uploading files", models.NotificationInfo, 0)
	slot.Set("Processing files", models.NotificationInfo, 0)

	message, kind := slot.Current()
	require.Equal(t, "Processing files", message)
	require.Equal(t, models.NotificationInfo, kind)
}

func TestStatusSlotExpires(t *testing.T) {
	slot := NewStatusSlot()
	current := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	slot.now = func() time.Time { return current }

	slot.Set("Processing files", models.NotificationInfo, 5*time.Second)

	message, _ := slot.Current()
	require.Equal(t, "Processing files", message)

	current = current.Add(6 * time.Second)
	message, kind := slot.Current()
	require.Empty(t, message)
	require.Empty(t, kind)
}

func TestStatusSlotStickyUntilCleared(t *testing.T) {
	slot := NewStatusSlot()
	current := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	slot.now = func() time.Time { return current }

	slot.Set("2 files ready", models.NotificationSuccess, 0)

	current = current.Add(24 * time.Hour)
	message, _ := slot.Current()
	require.Equal(t, "2 files ready", message)

	slot.Clear()
	message, _ = slot.Current()
	require.Empty(t, message)
}
