package daemon

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		DevMode:   true,
		Webserver: config.Webserver{Port: 8080, URL: "http://localhost:8080"},
		DB:        config.DB{GormEngine: config.EngineSQLite, Name: filepath.Join(t.TempDir(), "storefront.db")},
		Session:   config.Session{Storage: "memory", ExpiryTime: time.Hour, CookieName: "session"},
		Auth: config.Auth{
			LocalDB: config.LocalDBAuth{Enabled: true},
			Token:   config.TokenAuth{Enabled: true, Secret: "secret", TTL: time.Hour},
		},
	}
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.ErrorIs(t, err, ErrNilConfig)

	d, err := New(context.Background(), fileConfig(t))
	require.NoError(t, err)

	t.Cleanup(func() { _ = closeDB(d.db) })

	assert.Equal(t, ":8080", d.webService.Addr())

	resp, err := d.webService.App.Test(httptest.NewRequest(fiber.MethodGet, "/checkalive", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestNewDeps(t *testing.T) {
	cfg := fileConfig(t)

	db, err := OpenDB(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = closeDB(db) })

	require.NoError(t, Migrate(context.Background(), cfg, db))

	deps, err := NewDeps(cfg, db)
	require.NoError(t, err)
	require.NoError(t, deps.Check())
	assert.NotNil(t, deps.Tokens)
	assert.Nil(t, deps.LDAP)

	cfg.Auth.Token.Enabled = false

	deps, err = NewDeps(cfg, db)
	require.NoError(t, err)
	assert.Nil(t, deps.Tokens)
}
