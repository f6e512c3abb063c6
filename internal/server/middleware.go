// SPDX-License-Identifier: EPL-2.0

package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// geometry arrives every tick
		path := c.Path()
		if path == "/health" || path == "/api/geometry" {
			return err
		}

		logger.Info("http request",
			"method", c.Method(),
			"path", path,
			"status", c.Response().StatusCode(),
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		)

		return err
	}
}
