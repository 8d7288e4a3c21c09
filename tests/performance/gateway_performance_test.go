package performance_test

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/praxislab/praxis-api/internal/config"
	"github.com/praxislab/praxis-api/internal/handler"
	"github.com/praxislab/praxis-api/pkg/backend"
)

func setupHealthPerformanceApp(t *testing.T) *fiber.App {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	groups := httptest.NewServer(mux)
	t.Cleanup(groups.Close)

	client, err := backend.New(backend.Config{
		GenerationURL: groups.URL,
		UploadsURL:    groups.URL,
		EvaluationURL: groups.URL,
		AnalyticsURL:  groups.URL,
		Timeout:       2 * time.Second,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	cfg := config.Config{
		AppName:    "Praxis Gateway",
		AppEnv:     "test",
		AppVersion: "perf",
	}

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg, client))

	return app
}

func TestGatewayHealthP95LatencyBelow250ms(t *testing.T) {
	app := setupHealthPerformanceApp(t)

	runs := 40
	durations := make([]time.Duration, 0, runs)

	for i := 0; i < runs; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		start := time.Now()
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	index := int(math.Ceil(0.95*float64(len(durations)))) - 1
	if index < 0 {
		index = 0
	}
	p95 := durations[index]

	require.LessOrEqual(t, p95, 250*time.Millisecond)
}
