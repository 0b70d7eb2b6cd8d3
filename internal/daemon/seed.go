package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/auth"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/uniuri"
)

// AdministratorRole is the system role holding the whole catalog.
const AdministratorRole = "Administrator"

const (
	defaultAdminUsername   = "admin"
	defaultAdminEmail      = "admin@example.com"
	generatedPasswordLen   = 20
	defaultRoleDescription = "Default role of directory and social login users"
)

// defaultRolePermissions is granted to a configured default role when seeding creates it.
var defaultRolePermissions = []string{ //nolint:gochecknoglobals
	auth.PermProductsRead,
	auth.PermCategoriesRead,
	auth.PermOrdersRead,
	auth.PermPagesRead,
}

// Seed brings the permission catalog and the Administrator role up to date.
// Default roles and the first administrator account are only created, never changed.
func Seed(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if err := auth.SeedPermissions(ctx, db); err != nil {
		return err //nolint:wrapcheck
	}

	roles := auth.NewRoleStore(db)

	admin, err := roles.EnsureRole(ctx, AdministratorRole, "Full access to the back office", auth.CatalogNames(), true)
	if err != nil {
		return err //nolint:wrapcheck
	}

	for _, name := range []string{cfg.Auth.OIDC.DefaultRole, cfg.Auth.LDAP.DefaultRole} {
		if err = seedDefaultRole(ctx, roles, name); err != nil {
			return err
		}
	}

	return seedAdmin(ctx, cfg.Seed, db, admin.ID)
}

func seedDefaultRole(ctx context.Context, roles *auth.RoleStore, name string) error {
	if name == "" || name == AdministratorRole {
		return nil
	}

	_, err := roles.GetRoleByName(ctx, name)
	if !errors.Is(err, auth.ErrRoleNotFound) {
		return err //nolint:wrapcheck
	}

	role, err := roles.CreateRole(ctx, name, defaultRoleDescription)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if err = roles.SyncPermissionNames(ctx, role.ID, defaultRolePermissions); err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Str("role", name).Strs("permissions", defaultRolePermissions).Msg("default role created")

	return nil
}

// seedAdmin creates the first account on an empty users table.
func seedAdmin(ctx context.Context, seed config.Seed, db *gorm.DB, roleID uint) error {
	var count int64
	if err := db.WithContext(ctx).Unscoped().Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}

	if count > 0 {
		return nil
	}

	in := auth.NewUser{
		Username: seed.AdminUsername,
		Email:    seed.AdminEmail,
		Password: seed.AdminPassword,
		RoleID:   roleID,
	}

	if in.Username == "" {
		in.Username = defaultAdminUsername
	}

	if in.Email == "" {
		in.Email = defaultAdminEmail
	}

	generated := in.Password == ""
	if generated {
		var err error
		if in.Password, err = uniuri.NewLen(generatedPasswordLen); err != nil {
			return fmt.Errorf("failed to generate admin password: %w", err)
		}
	}

	user, err := auth.NewLocalProvider(db).CreateUser(ctx, in)
	if err != nil {
		return err //nolint:wrapcheck
	}

	ev := log.Warn().Uint64("user_id", user.ID).Str("username", user.Username)
	if generated {
		ev = ev.Str("password", in.Password)
	}

	ev.Msg("initial administrator created, change the password after the first login")

	return nil
}
