package auth

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/dbtest"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/session"
)

const testPassword = "correct horse battery"

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	roles    *RoleStore
	guard    *Guard
	sessions *session.Store
	tokens   *TokenIssuer
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	db := dbtest.Open(t)
	require.NoError(t, SeedPermissions(ctx, db))

	tokens, err := NewTokenIssuer(config.TokenAuth{Enabled: true, Secret: "test-secret", Issuer: "test", TTL: time.Hour})
	require.NoError(t, err)

	sessions := session.New(memory.New(), time.Hour)

	return &fixture{
		ctx:      ctx,
		db:       db,
		roles:    NewRoleStore(db),
		guard:    NewGuard(db),
		sessions: sessions,
		tokens:   tokens,
		resolver: NewResolver(db, sessions, tokens, "session"),
	}
}

func (f *fixture) role(t *testing.T, name string, perms ...string) *models.Role {
	t.Helper()

	role, err := f.roles.CreateRole(f.ctx, name, "")
	require.NoError(t, err)
	require.NoError(t, f.roles.SyncPermissionNames(f.ctx, role.ID, perms))

	return role
}

func (f *fixture) user(t *testing.T, username string, roleID uint) *models.User {
	t.Helper()

	hash, err := models.HashPassword(testPassword)
	require.NoError(t, err)

	u := &models.User{
		Active:     true,
		Username:   username,
		Email:      username + "@example.com",
		Password:   hash,
		RoleID:     roleID,
		AuthSource: models.AuthSourceLocal,
	}
	require.NoError(t, f.db.Omit("Role").Create(u).Error)

	return u
}

func (f *fixture) identity(t *testing.T, u *models.User) *Identity {
	t.Helper()

	id, _, err := f.sessions.Create(u.ID)
	require.NoError(t, err)

	identity, state := f.resolver.Resolve(f.ctx, CookieSession{ID: id})
	require.Equal(t, StateAuthenticated, state)

	return identity
}

func (f *fixture) permissionIDs(t *testing.T, names ...string) []uint {
	t.Helper()

	var ids []uint
	require.NoError(t, f.db.Model(&models.Permission{}).Where("name IN ?", names).Pluck("id", &ids).Error)
	require.Len(t, ids, len(names))

	return ids
}
