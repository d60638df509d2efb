package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"messenger-backend/internal/metrics"
)

// RequestLogger logs every HTTP request with zerolog.
func RequestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Str("remote_addr", c.IP()).
			Msg("request completed")

		return err
	}
}

// Metrics records Prometheus counters per request. Routed paths are used as
// the label to keep cardinality bounded.
func Metrics(c *fiber.Ctx) error {
	err := c.Next()

	path := c.Route().Path
	if path == "" {
		path = c.Path()
	}
	metrics.HTTPRequestsTotal.WithLabelValues(
		c.Method(), path, strconv.Itoa(c.Response().StatusCode()),
	).Inc()

	return err
}
