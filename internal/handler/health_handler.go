package handler

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/praxislab/praxis-api/internal/config"
	"github.com/praxislab/praxis-api/internal/utils"
	"github.com/praxislab/praxis-api/pkg/backend"
)

// HealthResponse aggregates the gateway's own state with the health of every
// service group it fronts.
type HealthResponse struct {
	Status    string                `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
	Service   string                `json:"service"`
	Groups    []backend.GroupHealth `json:"groups"`
}

// StatusResponse reports gateway build and runtime information.
type StatusResponse struct {
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Version     string    `json:"version"`
	StartedAt   time.Time `json:"started_at"`
	UptimeSecs  int64     `json:"uptime_seconds"`
}

// HealthCheck fans out to every service group in parallel and reports
// "degraded" when any of them is unreachable. The gateway itself stays 200
// either way; callers read the per-group entries.
func HealthCheck(cfg config.Config, client *backend.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		groups := backend.Groups()
		results := make([]backend.GroupHealth, len(groups))

		g, ctx := errgroup.WithContext(requestContext(c))
		for i, group := range groups {
			i, group := i, group
			g.Go(func() error {
				results[i] = client.Health(ctx, group)
				return nil
			})
		}
		_ = g.Wait()

		sort.Slice(results, func(i, j int) bool { return results[i].Group < results[j].Group })

		status := "ok"
		for _, result := range results {
			if result.Status != "ok" {
				status = "degraded"
				break
			}
		}

		payload := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC(),
			Service:   cfg.AppName,
			Groups:    results,
		}
		return utils.SendSuccess(c, "gateway health", payload)
	}
}

// GatewayStatus reports static build information plus uptime.
func GatewayStatus(cfg config.Config, startedAt time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := StatusResponse{
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Version:     cfg.AppVersion,
			StartedAt:   startedAt.UTC(),
			UptimeSecs:  int64(time.Since(startedAt).Seconds()),
		}
		return utils.SendSuccess(c, "gateway status", payload)
	}
}
