package auth

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/setting"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

// Permission constants define the available permissions in the system.
// Every protected admin route declares exactly one of them.
const (
	PermProductsRead   = "admin.products.read"
	PermProductsCreate = "admin.products.create"
	PermProductsEdit   = "admin.products.edit"
	PermProductsDelete = "admin.products.delete"

	PermCategoriesRead   = "admin.categories.read"
	PermCategoriesCreate = "admin.categories.create"
	PermCategoriesEdit   = "admin.categories.edit"
	PermCategoriesDelete = "admin.categories.delete"

	PermOrdersRead = "admin.orders.read"
	PermOrdersEdit = "admin.orders.edit"

	PermRefundsRead   = "admin.refunds.read"
	PermRefundsCreate = "admin.refunds.create"

	PermPagesRead   = "admin.pages.read"
	PermPagesCreate = "admin.pages.create"
	PermPagesEdit   = "admin.pages.edit"
	PermPagesDelete = "admin.pages.delete"

	PermMediaRead   = "admin.media.read"
	PermMediaCreate = "admin.media.create"
	PermMediaDelete = "admin.media.delete"

	PermUsersRead   = "admin.users.read"
	PermUsersCreate = "admin.users.create"
	PermUsersEdit   = "admin.users.edit"

	PermRolesRead   = "admin.roles.read"
	PermRolesCreate = "admin.roles.create"
	PermRolesEdit   = "admin.roles.edit"
	PermRolesDelete = "admin.roles.delete"

	PermSettingsRead = "admin.settings.read"
	PermSettingsEdit = "admin.settings.edit"

	PermSecurityRead = "admin.security.read"
)

const (
	// CatalogVersion is bumped whenever a permission is added to the catalog.
	CatalogVersion = 1

	// CatalogVersionSetting is the settings key holding the seeded catalog version.
	CatalogVersionSetting = "permission_catalog_version"

	permissionPrefix = "admin"
)

// PermissionDef is one catalog entry.
type PermissionDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PermissionGroup is a set of permissions sharing a namespace.
type PermissionGroup struct {
	Category    string              `json:"category"`
	Permissions []models.Permission `json:"permissions"`
}

var catalog = []PermissionDef{ //nolint:gochecknoglobals
	{PermProductsRead, "View products and variants"},
	{PermProductsCreate, "Create products"},
	{PermProductsEdit, "Edit products, prices and stock"},
	{PermProductsDelete, "Delete products"},
	{PermCategoriesRead, "View categories"},
	{PermCategoriesCreate, "Create categories"},
	{PermCategoriesEdit, "Edit categories"},
	{PermCategoriesDelete, "Delete categories"},
	{PermOrdersRead, "View orders"},
	{PermOrdersEdit, "Change order status"},
	{PermRefundsRead, "View refunds"},
	{PermRefundsCreate, "Issue refunds"},
	{PermPagesRead, "View CMS pages"},
	{PermPagesCreate, "Create CMS pages"},
	{PermPagesEdit, "Edit CMS pages"},
	{PermPagesDelete, "Delete CMS pages"},
	{PermMediaRead, "Browse the media library"},
	{PermMediaCreate, "Upload media"},
	{PermMediaDelete, "Delete media"},
	{PermUsersRead, "View back-office users"},
	{PermUsersCreate, "Create back-office users"},
	{PermUsersEdit, "Change user roles and activation"},
	{PermRolesRead, "View roles and the permission catalog"},
	{PermRolesCreate, "Create roles"},
	{PermRolesEdit, "Change role permissions"},
	{PermRolesDelete, "Delete roles"},
	{PermSettingsRead, "View provider settings"},
	{PermSettingsEdit, "Change provider settings"},
	{PermSecurityRead, "View the security event log"},
}

var catalogIndex = func() map[string]struct{} { //nolint:gochecknoglobals
	idx := make(map[string]struct{}, len(catalog))
	for _, p := range catalog {
		idx[p.Name] = struct{}{}
	}

	return idx
}()

// Catalog returns a copy of every known permission sorted by name.
func Catalog() []PermissionDef {
	out := slices.Clone(catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// CatalogNames returns every known permission name sorted.
func CatalogNames() []string {
	names := make([]string, 0, len(catalog))
	for _, p := range catalog {
		names = append(names, p.Name)
	}

	sort.Strings(names)

	return names
}

// IsKnown reports whether name is part of the catalog.
func IsKnown(name string) bool {
	_, ok := catalogIndex[name]
	return ok
}

// Category returns the namespace segment of a permission, "admin.orders.edit" -> "orders".
// Malformed names return an empty string.
func Category(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) != 3 || parts[0] != permissionPrefix { //nolint:mnd
		return ""
	}

	return parts[1]
}

// Action returns the trailing segment of a permission, "admin.orders.edit" -> "edit".
func Action(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) != 3 { //nolint:mnd
		return ""
	}

	return parts[2]
}

// Grouped groups permissions by category for presentation.
// Groups and the permissions inside them are sorted by name.
func Grouped(perms []models.Permission) []PermissionGroup {
	byCategory := make(map[string][]models.Permission)

	for _, p := range perms {
		c := p.Category
		if c == "" {
			c = Category(p.Name)
		}

		byCategory[c] = append(byCategory[c], p)
	}

	groups := make([]PermissionGroup, 0, len(byCategory))
	for c, ps := range byCategory {
		sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
		groups = append(groups, PermissionGroup{Category: c, Permissions: ps})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })

	return groups
}

// ListPermissions returns the seeded permissions grouped by namespace.
func ListPermissions(ctx context.Context, db *gorm.DB) ([]PermissionGroup, error) {
	var perms []models.Permission
	if err := db.WithContext(ctx).Order("name").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	known := perms[:0]

	for _, p := range perms {
		if IsKnown(p.Name) {
			known = append(known, p)
		}
	}

	return Grouped(known), nil
}

// SeedPermissions upserts every catalog entry and records the catalog version.
// Permissions removed from the catalog are left in place and only reported.
func SeedPermissions(ctx context.Context, db *gorm.DB) error {
	rows := make([]models.Permission, 0, len(catalog))
	for _, p := range catalog {
		rows = append(rows, models.Permission{
			Name:        p.Name,
			Category:    Category(p.Name),
			Action:      Action(p.Name),
			Description: p.Description,
		})
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"category", "action", "description"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to seed permissions: %w", err)
	}

	var stale []string
	if err = db.WithContext(ctx).Model(&models.Permission{}).
		Where("name NOT IN ?", CatalogNames()).
		Pluck("name", &stale).Error; err != nil {
		return fmt.Errorf("failed to check stale permissions: %w", err)
	}

	if len(stale) > 0 {
		log.Warn().Strs("permissions", stale).Msg("permissions in database are no longer part of the catalog")
	}

	seeded, err := setting.GetInt(ctx, db, CatalogVersionSetting)
	if err != nil {
		return fmt.Errorf("failed to read catalog version: %w", err)
	}

	if seeded != CatalogVersion {
		if err = setting.SetInt(ctx, db, CatalogVersionSetting, CatalogVersion); err != nil {
			return fmt.Errorf("failed to store catalog version: %w", err)
		}

		log.Info().Int("from", seeded).Int("to", CatalogVersion).Msg("permission catalog updated")
	}

	return nil
}
