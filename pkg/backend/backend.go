// Package backend provides typed HTTP clients for the four remote service
// groups the gateway fronts: question generation, submission uploads,
// evaluation, and analytics. All durable state lives behind these APIs; the
// gateway only reconciles their responses.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "praxis",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests to the remote service groups",
	}, []string{"group", "op"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "praxis",
		Subsystem: "backend",
		Name:      "request_failures_total",
		Help:      "Number of failed requests to the remote service groups",
	}, []string{"group", "op"})
)

// Group identifies one of the remote service groups.
type Group string

const (
	GroupGeneration Group = "generation"
	GroupUploads    Group = "uploads"
	GroupEvaluation Group = "evaluation"
	GroupAnalytics  Group = "analytics"
)

// Config defines connection settings for the service groups.
type Config struct {
	GenerationURL string
	UploadsURL    string
	EvaluationURL string
	AnalyticsURL  string
	Timeout       time.Duration
	MaxRetries    int
	Logger        zerolog.Logger
}

// Client talks to all four service groups over plain HTTP.
type Client struct {
	httpClient *http.Client
	bases      map[Group]string
	maxRetries int
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// New builds a backend client. Every group URL must be provided.
func New(cfg Config) (*Client, error) {
	bases := map[Group]string{
		GroupGeneration: strings.TrimRight(cfg.GenerationURL, "/"),
		GroupUploads:    strings.TrimRight(cfg.UploadsURL, "/"),
		GroupEvaluation: strings.TrimRight(cfg.EvaluationURL, "/"),
		GroupAnalytics:  strings.TrimRight(cfg.AnalyticsURL, "/"),
	}
	for group, base := range bases {
		if base == "" {
			return nil, fmt.Errorf("%s service url is required", group)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		bases:      bases,
		maxRetries: retries,
		tracer:     otel.Tracer("github.com/praxislab/praxis-api/pkg/backend"),
		logger:     cfg.Logger.With().Str("component", "backend_client").Logger(),
	}, nil
}

func (c *Client) url(group Group, path string) string {
	return c.bases[group] + path
}

// getJSON performs a GET with idempotent retry and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, group Group, op, path string, out interface{}) error {
	return c.do(ctx, group, op, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.url(group, path), nil)
	}, true, out)
}

// sendJSON performs a request with a JSON body and decodes the response into out.
func (c *Client) sendJSON(ctx context.Context, group Group, op, method, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	return c.do(ctx, group, op, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.url(group, path), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, false, out)
}

// delete performs a DELETE request.
func (c *Client) delete(ctx context.Context, group Group, op, path string) error {
	return c.do(ctx, group, op, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodDelete, c.url(group, path), nil)
	}, false, nil)
}

func (c *Client) do(ctx context.Context, group Group, op string, build func() (*http.Request, error), retryable bool, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "backend."+op, trace.WithAttributes(
		attribute.String("backend.group", string(group)),
	))
	defer span.End()

	start := time.Now()
	err := c.doOnce(ctx, group, op, build, retryable, out)
	requestDuration.WithLabelValues(string(group), op).Observe(time.Since(start).Seconds())

	if err != nil {
		requestFailures.WithLabelValues(string(group), op).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) doOnce(ctx context.Context, group Group, op string, build func() (*http.Request, error), retryable bool, out interface{}) error {
	attempts := 1
	if retryable {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitterBackoff(attempt)):
			}
			c.logger.Debug().Str("op", op).Int("attempt", attempt+1).Msg("retrying backend request")
		}

		req, err := build()
		if err != nil {
			return fmt.Errorf("build %s request: %w", op, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", op, err)
			continue
		}

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			remoteErr := decodeRemoteError(op, resp)
			if retryable && isRetryableStatus(resp.StatusCode) {
				lastErr = remoteErr
				continue
			}
			return remoteErr
		}

		if out == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read %s response: %w", op, err)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return &RemoteError{Op: op, StatusCode: resp.StatusCode, Detail: "malformed response payload"}
		}
		return nil
	}

	return lastErr
}
