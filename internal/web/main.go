// Package web builds the fiber application and runs it until shutdown.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/unrolled/secure"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	accesslog "github.com/GoStorefront-Admin/GoStorefront-Admin/internal/logger/adapter/fiber"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/account"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/admin/page"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/admin/permission"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/admin/role"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/admin/securityevent"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/admin/settings"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/admin/user"
	oidchandler "github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/auth/oidc"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/login"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler/logout"
)

const (
	// CheckAlivePath answers 200 while the service takes traffic.
	CheckAlivePath = "/checkalive"
	// MetricsPath exposes the prometheus registry.
	MetricsPath = "/metrics"

	readBufferSize = 8192
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	deps         *handler.Deps
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address and blocks until it stops.
func (s *Service) Start(addr string) error {
	if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err //nolint:wrapcheck
	}

	return nil
}

// Addr returns the configured listen address.
func (s *Service) Addr() string {
	return ":" + strconv.Itoa(s.deps.Cfg.Webserver.Port)
}

// WaitShutdown blocks until SIGINT or SIGTERM and then shuts down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown marks the service dead, waits for the load balancer, stops the
// server and drains pending security event writes.
func (s *Service) Shutdown() {
	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	s.alive.Store(false)

	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.deps.Cfg.Webserver.ShutDownTime,
		)

		time.Sleep(time.Duration(s.deps.Cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	s.deps.Audit.Wait()

	log.Info().Msg("http server was stopped ... good bye...")
}

// checkAlive answers 503 once shutdown started.
func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

// errorHandler keeps every error response in the JSON shape of the handlers.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return handler.Error(c, fe.Code, fe.Message)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")

	return handler.Error(c, fiber.StatusInternalServerError, "internal server error")
}

// New creates the web service and registers every handler.
func New(deps *handler.Deps) (*Service, error) {
	if err := deps.Check(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	cfg := deps.Cfg

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: readBufferSize,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   errorHandler,
		},
	)

	app.Use(accesslog.New(accesslog.Config{
		Config:            cfg.Log,
		CacheControlError: accesslog.ConfigDefault.CacheControlError,
		CheckAliveURI:     CheckAlivePath,
		UserID:            identityUserID,
	}))

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	if cfg.Webserver.SecureHeaders {
		app.Use(adaptor.HTTPMiddleware(secure.New(secure.Options{
			AllowedHosts:          allowedHosts(cfg.Webserver.Domain),
			STSSeconds:            31536000,
			STSIncludeSubdomains:  true,
			FrameDeny:             true,
			ContentTypeNosniff:    true,
			ReferrerPolicy:        "same-origin",
			ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
			IsDevelopment:         cfg.DevMode,
		}).Handler))
	}

	service := &Service{
		App:          app,
		deps:         deps,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	handlers := []handler.Service{
		&login.Handler,
		&logout.Handler,
		&oidchandler.Handler,
		&account.Handler,
		&permission.Handler,
		&role.Handler,
		&user.Handler,
		&page.Handler,
		&settings.Handler,
		&securityevent.Handler,
	}

	for _, h := range handlers {
		if err := h.Init(app, deps); err != nil {
			return nil, err //nolint:wrapcheck
		}
	}

	log.Info().Int("permissions", len(auth.CatalogNames())).Msg("web service initialised")

	return service, nil
}

func identityUserID(c *fiber.Ctx) (uint64, bool) {
	if identity := auth.IdentityFromContext(c); identity != nil {
		return identity.UserID, true
	}

	return 0, false
}

func allowedHosts(domain string) []string {
	if domain == "" {
		return nil
	}

	return []string{domain}
}
