package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs one line per request. Requests under quietPrefix, such
// as health checks, are logged at debug level when they succeed.
func RequestLogger(logger *slog.Logger, quietPrefix string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Render chain errors here so the logged status is the one sent.
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		case quietPrefix != "" && strings.HasPrefix(c.Path(), quietPrefix):
			level = slog.LevelDebug
		}

		logger.Log(c.UserContext(), level, "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"took", time.Since(start).String(),
		)
		return nil
	}
}
