// Package daemon wires the database, storages and authentication providers
// into the web service.
package daemon

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/audit"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/handler"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/session"
)

// ErrNilConfig is returned by New without configuration.
var ErrNilConfig = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
	db         *gorm.DB
}

// Start runs the web service until a shutdown signal was handled.
func (d *Daemon) Start() error {
	done := make(chan struct{})

	go func() {
		d.webService.WaitShutdown()
		close(done)
	}()

	if err := d.webService.Start(d.webService.Addr()); err != nil {
		return err //nolint:wrapcheck
	}

	<-done

	return closeDB(d.db)
}

// New opens and migrates the database and builds the web service.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	if err = Migrate(ctx, cfg, db); err != nil {
		return nil, err
	}

	deps, err := NewDeps(cfg, db)
	if err != nil {
		return nil, err
	}

	webService, err := web.New(deps)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &Daemon{webService: webService, db: db}, nil
}

// NewDeps builds the handler dependencies. Disabled providers stay nil.
func NewDeps(cfg *config.Config, db *gorm.DB) (*handler.Deps, error) {
	storage, err := NewSessionStorage(cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.Token)
	if err != nil && !errors.Is(err, auth.ErrTokensDisabled) {
		return nil, err //nolint:wrapcheck
	}

	roles := auth.NewRoleStore(db)

	ldapProvider, err := auth.NewLDAPProvider(cfg.Auth.LDAP, db, roles)
	switch {
	case errors.Is(err, auth.ErrLDAPDisabled):
	case err != nil:
		return nil, err //nolint:wrapcheck
	default:
		if err = ldapProvider.TestConnection(); err != nil {
			log.Warn().Err(err).Str("host", cfg.Auth.LDAP.Host).Msg("ldap server not reachable, directory logins will fail")
		}
	}

	sessions := session.New(storage, cfg.Session.ExpiryTime)

	return &handler.Deps{
		Cfg:      cfg,
		DB:       db,
		Sessions: sessions,
		Resolver: auth.NewResolver(db, sessions, tokens, cfg.Session.CookieName),
		Guard:    auth.NewGuard(db),
		Roles:    roles,
		Local:    auth.NewLocalProvider(db),
		LDAP:     ldapProvider,
		Tokens:   tokens,
		TOTP:     auth.NewTOTP(db, cfg.Auth.TOTP.Issuer),
		Audit:    audit.New(db),
		Storage:  storage,
	}, nil
}
