// Package fiber is the access log middleware of the web service.
package fiber

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/logger"
)

// HeaderRequestID carries the request id, taken from the client or generated.
const HeaderRequestID = "X-Request-ID"

// Config of the access log middleware.
type Config struct {
	// Next skips the middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// Config of the logger.
	Config logger.Log

	// CacheControlError is sent with responses of failed handler chains.
	CacheControlError string

	// CheckAliveURI is not logged when Config.DisableCheckAlive is set.
	CheckAliveURI string

	// UserID returns the authenticated user of a finished request, if any.
	UserID func(c *fiber.Ctx) (uint64, bool)
}

// ConfigDefault is the default config.
var ConfigDefault = Config{ //nolint:gochecknoglobals
	CacheControlError: "max-age=0",
}

// New creates the access log middleware. Every request gets a request id and an
// X-Performance header, then one json line is written per request.
func New(config ...Config) fiber.Handler {
	cfg := ConfigDefault
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.CacheControlError == "" {
		cfg.CacheControlError = ConfigDefault.CacheControlError
	}

	access := zerolog.New(zerolog.MultiLevelWriter(writers(&cfg.Config)...)).
		With().
		Timestamp().
		Logger().
		Level(zerolog.NoLevel)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		requestID := c.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(HeaderRequestID, requestID)

		start := time.Now()
		chainErr := c.Next()

		// the error handler writes the response, a failing one leaves a bare 500
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError) //nolint:errcheck
				c.Response().Header.Set(fiber.HeaderCacheControl, cfg.CacheControlError)
			}
		}

		elapsed := time.Since(start).Seconds()
		c.Locals("elapsed", elapsed)
		c.Set("X-Performance", strconv.FormatFloat(elapsed, 'f', 6, 64))

		if cfg.Config.DisableCheckAlive && string(c.Request().RequestURI()) == cfg.CheckAliveURI {
			return nil
		}

		ev := access.Log().
			Str("request_id", requestID).
			Str("IP", c.IP()).
			Int("status", c.Response().StatusCode()).
			Float64("X-Performance", elapsed).
			Str("URI", requestURI(c)).
			Str("method", c.Method()).
			Bytes("host", c.Request().Host()).
			Str(fiber.HeaderXForwardedFor, c.Get(fiber.HeaderXForwardedFor)).
			Str(fiber.HeaderUserAgent, c.Get(fiber.HeaderUserAgent)).
			Str(fiber.HeaderReferer, c.Get(fiber.HeaderReferer))

		if cfg.UserID != nil {
			if id, ok := cfg.UserID(c); ok {
				ev.Uint64("user_id", id)
			}
		}

		if chainErr != nil {
			ev.Err(chainErr)
		}

		ev.Send()

		return nil
	}
}

// requestURI is the path as sent by the client plus the query string.
// c.Path keeps the unnormalised path, e.g. /admin//roles.
func requestURI(c *fiber.Ctx) string {
	p := c.Path()
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		p += "?" + string(q)
	}

	return p
}

// writers returns the configured access log targets.
func writers(cfg *logger.Log) []io.Writer {
	var out []io.Writer

	if cfg.File.Enabled {
		if err := os.MkdirAll(cfg.File.Path, 0o750); err != nil { //nolint:mnd
			log.Error().Err(err).Str("path", cfg.File.Path).Msg("can't create log directory")
		} else {
			out = append(out, logger.NewRollingFile(cfg.File.Path, cfg.File.AccessFile()))
		}
	}

	if !cfg.Console.Enabled || !cfg.EnableAccessLogToConsole {
		return out
	}

	if cfg.Console.UseConsoleWriter {
		return append(out, zerolog.ConsoleWriter{
			Out:          os.Stdout,
			TimeFormat:   zerolog.TimeFieldFormat,
			PartsExclude: []string{zerolog.LevelFieldName},
		})
	}

	return append(out, os.Stdout)
}
