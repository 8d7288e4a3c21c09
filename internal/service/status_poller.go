package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/observability"
	"github.com/praxislab/praxis-api/internal/store"
	"github.com/praxislab/praxis-api/pkg/backend"
)

// Announcer is the narrow notification surface coordinators publish through.
// NotificationService implements it; emission failures never reach callers.
type Announcer interface {
	Announce(ctx context.Context, studentID, message string, kind models.NotificationKind, ttl time.Duration)
}

// RefreshOutcome reports what one status refresh observed.
type RefreshOutcome struct {
	Set          models.QuestionSet
	Previous     models.ApprovalStatus
	Transitioned bool
	Announced    bool
}

// StatusPoller reconciles a question set's review status against the
// generation service on demand.
type StatusPoller interface {
	Refresh(ctx context.Context, questionSetID string, announce bool) (RefreshOutcome, error)
}

type statusPoller struct {
	sets     *store.QuestionSets
	client   *backend.Client
	notifier Announcer
	logger   zerolog.Logger
	tracer   trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStatusPoller constructs the on-demand status poller.
func NewStatusPoller(sets *store.QuestionSets, client *backend.Client, notifier Announcer, logger zerolog.Logger) StatusPoller {
	return &statusPoller{
		sets:     sets,
		client:   client,
		notifier: notifier,
		logger:   logger.With().Str("component", "status_poller").Logger(),
		tracer:   otel.Tracer("github.com/praxislab/praxis-api/internal/service/poller"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Refresh fetches the authoritative status for one question set and folds it
// into the store. Overlapping refreshes for the same id serialize; the later
// caller waits for the earlier fetch to finish, then issues its own. A
// terminal verdict seen for the first time always produces a high-TTL
// notification with the faculty remarks; anything else only produces a short
// readout when announce is set.
func (p *statusPoller) Refresh(ctx context.Context, questionSetID string, announce bool) (RefreshOutcome, error) {
	if strings.TrimSpace(questionSetID) == "" {
		return RefreshOutcome{}, &ValidationError{Field: "question_set_id", Message: "question set id is required"}
	}

	entityLock := p.lockFor(questionSetID)
	entityLock.Lock()
	defer entityLock.Unlock()

	ctx, span := p.tracer.Start(ctx, "poller.refresh", trace.WithAttributes(
		attribute.String("question_set.id", questionSetID),
		attribute.Bool("poller.announce", announce),
	))
	defer span.End()

	captured := p.sets.Generation(questionSetID)
	current, ok := p.sets.Get(questionSetID)
	if !ok {
		return RefreshOutcome{}, &ValidationError{Field: "question_set_id", Message: "unknown question set"}
	}

	payload, err := p.client.Status(ctx, questionSetID)
	if err != nil {
		p.logger.Warn().Err(err).Str("question_set_id", questionSetID).Msg("status refresh failed")
		if announce {
			p.notifier.Announce(ctx, current.StudentID, "Could not check status: "+err.Error(), models.NotificationError, DefaultNotificationTTL)
		}
		return RefreshOutcome{}, err
	}

	next := models.ApprovalStatus(payload.ApprovalStatus)
	if payload.ApprovalStatus == "" {
		next = current.ApprovalStatus
	}

	updated, outcome := p.sets.ApplyStatus(questionSetID, captured, next, payload.FacultyRemarks)
	result := RefreshOutcome{Set: updated, Previous: current.ApprovalStatus}

	switch outcome {
	case store.StatusApplied:
		result.Transitioned = true
		observability.PollTransitions().WithLabelValues(string(updated.ApprovalStatus)).Inc()
		if updated.ApprovalStatus.IsTerminal() {
			p.announceVerdict(ctx, updated)
			result.Announced = true
			return result, nil
		}
	case store.StatusStale:
		p.logger.Debug().Str("question_set_id", questionSetID).Msg("discarding stale status response")
	case store.StatusRegression:
		p.logger.Warn().
			Str("question_set_id", questionSetID).
			Str("stored_status", string(updated.ApprovalStatus)).
			Str("reported_status", string(next)).
			Msg("ignoring status regression from server")
	case store.StatusMissing:
		return RefreshOutcome{}, &ValidationError{Field: "question_set_id", Message: "unknown question set"}
	}

	if announce {
		message := fmt.Sprintf("Current status: %s", updated.ApprovalStatus)
		p.notifier.Announce(ctx, updated.StudentID, message, models.NotificationInfo, DefaultNotificationTTL)
		result.Announced = true
	}

	return result, nil
}

// announceVerdict publishes the one-time notification for a terminal review
// outcome, folding in faculty remarks when present.
func (p *statusPoller) announceVerdict(ctx context.Context, set models.QuestionSet) {
	message := "Your assignment was rejected."
	kind := models.NotificationError
	if set.ApprovalStatus == models.ApprovalApproved {
		message = "Your assignment has been approved!"
		kind = models.NotificationSuccess
	}
	if set.FacultyRemarks != "" {
		message = fmt.Sprintf("%s Remarks: %s", message, set.FacultyRemarks)
	}
	p.notifier.Announce(ctx, set.StudentID, message, kind, TerminalNotificationTTL)
}

func (p *statusPoller) lockFor(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[id] = lock
	}
	return lock
}
