package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/praxislab/praxis-api/internal/dto"
	"github.com/praxislab/praxis-api/internal/models"
	"github.com/praxislab/praxis-api/internal/observability"
)

const notificationBufferSize = 16

const (
	// DefaultNotificationTTL is used for routine operation feedback.
	DefaultNotificationTTL = 5 * time.Second
	// TerminalNotificationTTL is used when a review reaches a final verdict,
	// giving students longer to read the remarks.
	TerminalNotificationTTL = 10 * time.Second

	notificationSweepInterval = time.Second
)

// NotificationService owns the per-student feed of transient notifications
// and streams feed changes to subscribed clients. Feeds are purely in-memory;
// nothing here touches the remote service groups.
type NotificationService interface {
	Publish(ctx context.Context, studentID, message string, kind models.NotificationKind, ttl time.Duration) (dto.NotificationResponse, error)
	Announce(ctx context.Context, studentID, message string, kind models.NotificationKind, ttl time.Duration)
	Dismiss(ctx context.Context, studentID, id string) error
	Active(ctx context.Context, studentID string) []dto.NotificationResponse
	Subscribe(studentID string) (<-chan dto.NotificationEvent, func())
	Start(ctx context.Context)
}

type notificationService struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	nodeID      string
	now         func() time.Time

	mu    sync.Mutex
	feeds map[string]*studentFeed
}

// studentFeed keeps one student's live notifications in insertion order.
type studentFeed struct {
	order []string
	byID  map[string]models.Notification
}

type notificationEvent struct {
	Source string                `json:"source"`
	Event  dto.NotificationEvent `json:"event"`
	SentAt time.Time             `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.NotificationEvent]struct{}
}

// NewNotificationService constructs the notification feed service. Redis and
// NATS are optional; when configured, feed changes fan out across gateway
// nodes so every stream sees the same events.
func NewNotificationService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/praxislab/praxis-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[string]map[chan dto.NotificationEvent]struct{}),
		},
		nodeID: uuid.NewString(),
		now:    time.Now,
		feeds:  make(map[string]*studentFeed),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	go s.sweepLoop(ctx)
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *notificationService) Publish(ctx context.Context, studentID, message string, kind models.NotificationKind, ttl time.Duration) (dto.NotificationResponse, error) {
	if strings.TrimSpace(studentID) == "" {
		return dto.NotificationResponse{}, errors.New("student id is required")
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(message))
	if cleanMessage == "" {
		return dto.NotificationResponse{}, errors.New("notification message empty after sanitization")
	}

	switch kind {
	case models.NotificationInfo, models.NotificationSuccess, models.NotificationWarning, models.NotificationError:
	default:
		kind = models.NotificationInfo
	}

	_, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.String("notification.student_id", studentID),
		attribute.String("notification.kind", string(kind)),
	))
	defer span.End()

	createdAt := s.now()
	notification := models.Notification{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Message:   cleanMessage,
		Kind:      kind,
		TTL:       ttl,
		CreatedAt: createdAt,
	}
	if ttl > 0 {
		notification.ExpiresAt = createdAt.Add(ttl)
	}

	s.mu.Lock()
	feed, ok := s.feeds[studentID]
	if !ok {
		feed = &studentFeed{byID: make(map[string]models.Notification)}
		s.feeds[studentID] = feed
	}
	feed.order = append(feed.order, notification.ID)
	feed.byID[notification.ID] = notification
	s.mu.Unlock()

	event := dto.NotificationEvent{
		Event:        dto.NotificationEmitted,
		Notification: dto.NewNotificationResponse(notification),
	}
	s.broker.broadcast(studentID, event)
	s.fanOut(ctx, event)

	observability.NotificationsEmitted().WithLabelValues(string(kind)).Inc()

	return event.Notification, nil
}

// Announce publishes fire-and-forget; failures are logged, never surfaced.
// Coordinators use it to translate outcomes into feed events without coupling
// their error paths to the feed.
func (s *notificationService) Announce(ctx context.Context, studentID, message string, kind models.NotificationKind, ttl time.Duration) {
	if _, err := s.Publish(ctx, studentID, message, kind, ttl); err != nil {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("failed to publish notification")
	}
}

// Dismiss removes a notification by id. Dismissing an id that is already gone
// is a no-op, so racing an auto-expiry is harmless.
func (s *notificationService) Dismiss(ctx context.Context, studentID, id string) error {
	if strings.TrimSpace(studentID) == "" {
		return errors.New("student id is required")
	}
	if strings.TrimSpace(id) == "" {
		return errors.New("notification id is required")
	}

	s.mu.Lock()
	notification, ok := s.removeLocked(studentID, id)
	s.mu.Unlock()

	if !ok {
		return nil
	}

	event := dto.NotificationEvent{
		Event:        dto.NotificationDismissed,
		Notification: dto.NewNotificationResponse(notification),
	}
	s.broker.broadcast(studentID, event)
	s.fanOut(ctx, event)

	return nil
}

// Active returns the student's live notifications in emit order, dropping any
// whose TTL has lapsed.
func (s *notificationService) Active(ctx context.Context, studentID string) []dto.NotificationResponse {
	expired := s.collectExpired(studentID)
	for _, event := range expired {
		s.broker.broadcast(studentID, event)
		s.fanOut(ctx, event)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ok := s.feeds[studentID]
	if !ok {
		return []dto.NotificationResponse{}
	}

	out := make([]dto.NotificationResponse, 0, len(feed.order))
	for _, id := range feed.order {
		if notification, ok := feed.byID[id]; ok {
			out = append(out, dto.NewNotificationResponse(notification))
		}
	}
	return out
}

func (s *notificationService) Subscribe(studentID string) (<-chan dto.NotificationEvent, func()) {
	channel := make(chan dto.NotificationEvent, notificationBufferSize)

	s.broker.subscribe(studentID, channel)
	observability.StreamClientsActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(studentID, channel)
		observability.StreamClientsActive().Dec()
	}

	return channel, cleanup
}

// removeLocked deletes id from the student's feed. Caller holds s.mu.
func (s *notificationService) removeLocked(studentID, id string) (models.Notification, bool) {
	feed, ok := s.feeds[studentID]
	if !ok {
		return models.Notification{}, false
	}

	notification, ok := feed.byID[id]
	if !ok {
		return models.Notification{}, false
	}

	delete(feed.byID, id)
	for i, candidate := range feed.order {
		if candidate == id {
			feed.order = append(feed.order[:i], feed.order[i+1:]...)
			break
		}
	}
	if len(feed.byID) == 0 {
		delete(s.feeds, studentID)
	}

	return notification, true
}

// collectExpired removes lapsed notifications for one student and returns
// the expiry events to broadcast.
func (s *notificationService) collectExpired(studentID string) []dto.NotificationEvent {
	reference := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	feed, ok := s.feeds[studentID]
	if !ok {
		return nil
	}

	var events []dto.NotificationEvent
	for _, id := range append([]string(nil), feed.order...) {
		notification, ok := feed.byID[id]
		if !ok || !notification.ExpiredAt(reference) {
			continue
		}
		if removed, ok := s.removeLocked(studentID, id); ok {
			events = append(events, dto.NotificationEvent{
				Event:        dto.NotificationExpired,
				Notification: dto.NewNotificationResponse(removed),
			})
			observability.NotificationsExpired().Inc()
		}
	}
	return events
}

func (s *notificationService) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(notificationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *notificationService) sweep(ctx context.Context) {
	s.mu.Lock()
	students := make([]string, 0, len(s.feeds))
	for studentID := range s.feeds {
		students = append(students, studentID)
	}
	s.mu.Unlock()

	for _, studentID := range students {
		for _, event := range s.collectExpired(studentID) {
			s.broker.broadcast(studentID, event)
			s.fanOut(ctx, event)
		}
	}
}

// fanOut publishes the event to redis and NATS so other gateway nodes mirror
// the feed change. Best effort; local subscribers were already served.
func (s *notificationService) fanOut(ctx context.Context, event dto.NotificationEvent) {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return
	}

	payload, err := json.Marshal(notificationEvent{
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode notification event")
		return
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish notification event to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish notification event to nats")
		}
	}
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "praxis-notifications", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

// handleEvent mirrors a feed change that originated on another node.
func (s *notificationService) handleEvent(payload []byte) {
	var event notificationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	notification := event.Event.Notification
	if notification.StudentID == "" || notification.ID == "" {
		return
	}

	s.mu.Lock()
	switch event.Event.Event {
	case dto.NotificationEmitted:
		feed, ok := s.feeds[notification.StudentID]
		if !ok {
			feed = &studentFeed{byID: make(map[string]models.Notification)}
			s.feeds[notification.StudentID] = feed
		}
		if _, exists := feed.byID[notification.ID]; !exists {
			feed.order = append(feed.order, notification.ID)
			model := models.Notification{
				ID:        notification.ID,
				StudentID: notification.StudentID,
				Message:   notification.Message,
				Kind:      models.NotificationKind(notification.Kind),
				TTL:       time.Duration(notification.TTLMillis) * time.Millisecond,
				CreatedAt: notification.CreatedAt,
			}
			if notification.ExpiresAt != nil {
				model.ExpiresAt = *notification.ExpiresAt
			}
			feed.byID[notification.ID] = model
		}
	case dto.NotificationDismissed, dto.NotificationExpired:
		s.removeLocked(notification.StudentID, notification.ID)
	}
	s.mu.Unlock()

	s.broker.broadcast(notification.StudentID, event.Event)
}

func (b *notificationBroker) subscribe(studentID string, ch chan dto.NotificationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[studentID]; !exists {
		b.subscribers[studentID] = make(map[chan dto.NotificationEvent]struct{})
	}
	b.subscribers[studentID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(studentID string, ch chan dto.NotificationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[studentID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, studentID)
		}
	}
}

func (b *notificationBroker) broadcast(studentID string, event dto.NotificationEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers := b.subscribers[studentID]
	for ch := range subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
