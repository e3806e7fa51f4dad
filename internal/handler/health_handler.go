package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/eduai-go-api/internal/config"
	"github.com/noah-isme/eduai-go-api/internal/utils"
)

var processStarted = time.Now().UTC()

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Service       string    `json:"service"`
	Environment   string    `json:"environment"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// HealthCheck returns a handler that reports submission pipeline liveness.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:        "ok",
			Timestamp:     time.Now().UTC(),
			Service:       cfg.AppName,
			Environment:   cfg.AppEnv,
			UptimeSeconds: time.Since(processStarted).Seconds(),
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
