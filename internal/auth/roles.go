package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

const whereRoleID = "role_id = ?"

// RoleView is a role together with its resolved permission names.
type RoleView struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	Permissions []string  `json:"permissions"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newRoleView(r *models.Role, perms []string) RoleView {
	if perms == nil {
		perms = []string{}
	}

	return RoleView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		UpdatedAt:   r.UpdatedAt,
	}
}

// RoleStore persists roles and their permission sets.
// Permission sets are always read from the database, nothing is cached.
type RoleStore struct {
	db *gorm.DB
}

// NewRoleStore creates a new role store.
func NewRoleStore(db *gorm.DB) *RoleStore {
	return &RoleStore{db: db}
}

// CreateRole creates an empty role. A taken name fails with ErrConflict.
func (s *RoleStore) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	db := s.db.WithContext(ctx)

	taken, err := s.nameTaken(db, name)
	if err != nil {
		return nil, err
	}

	if taken {
		return nil, fmt.Errorf("%w: role %q already exists", ErrConflict, name)
	}

	role := models.Role{Name: name, Description: strings.TrimSpace(description)}
	if err = db.Create(&role).Error; err != nil {
		// lost a race against a concurrent create with the same name
		if taken, errTaken := s.nameTaken(db, name); errTaken == nil && taken {
			return nil, fmt.Errorf("%w: role %q already exists", ErrConflict, name)
		}

		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	return &role, nil
}

// whereRoleName matches role names case insensitively on every engine,
// MySQL collations already do and sqlite or postgres would not.
const whereRoleName = "LOWER(name) = LOWER(?)"

func (s *RoleStore) nameTaken(db *gorm.DB, name string) (bool, error) {
	var count int64
	if err := db.Model(&models.Role{}).Where(whereRoleName, name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check role name: %w", err)
	}

	return count > 0, nil
}

// ListRoles returns every role with its permission set, ordered by name.
func (s *RoleStore) ListRoles(ctx context.Context) ([]RoleView, error) {
	db := s.db.WithContext(ctx)

	var roles []models.Role
	if err := db.Order("name").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	var rows []struct {
		RoleID uint
		Name   string
	}

	err := db.Table("role_permissions").
		Select("role_permissions.role_id, permissions.name").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Order("permissions.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}

	perms := make(map[uint][]string, len(roles))
	for _, r := range rows {
		perms[r.RoleID] = append(perms[r.RoleID], r.Name)
	}

	views := make([]RoleView, 0, len(roles))
	for i := range roles {
		views = append(views, newRoleView(&roles[i], perms[roles[i].ID]))
	}

	return views, nil
}

// GetRole returns a single role with its permission set.
func (s *RoleStore) GetRole(ctx context.Context, id uint) (*RoleView, error) {
	role, err := s.findRole(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}

	perms, err := s.RolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}

	v := newRoleView(role, perms)

	return &v, nil
}

// GetRoleByName returns the role called name, ignoring case.
func (s *RoleStore) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role

	err := s.db.WithContext(ctx).Where(whereRoleName, name).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query role: %w", err)
	}

	return &role, nil
}

func (s *RoleStore) findRole(db *gorm.DB, id uint) (*models.Role, error) {
	var role models.Role

	err := db.First(&role, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query role: %w", err)
	}

	return &role, nil
}

// RolePermissions returns the current permission names of a role, sorted.
func (s *RoleStore) RolePermissions(ctx context.Context, roleID uint) ([]string, error) {
	perms := []string{}

	err := s.db.WithContext(ctx).Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.name").
		Pluck("permissions.name", &perms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}

	return perms, nil
}

// SyncPermissions replaces the permission set of a role.
// All ids are validated before anything is written, the replace runs in a single
// transaction so no partial set is ever visible. Concurrent syncs are last writer wins.
func (s *RoleStore) SyncPermissions(ctx context.Context, roleID uint, permissionIDs []uint) error {
	ids := dedupe(permissionIDs)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.findRole(tx, roleID)
		if err != nil {
			return err
		}

		if err = validatePermissionIDs(tx, ids); err != nil {
			return err
		}

		if err = tx.Where(whereRoleID, roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("failed to clear role permissions: %w", err)
		}

		if len(ids) > 0 {
			rows := make([]models.RolePermission, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, models.RolePermission{RoleID: roleID, PermissionID: id})
			}

			if err = tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to assign role permissions: %w", err)
			}
		}

		return tx.Model(role).Update("updated_at", time.Now()).Error
	})
}

// validatePermissionIDs checks that every id exists and belongs to the catalog.
func validatePermissionIDs(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	var found []models.Permission
	if err := tx.Select("id", "name").Where("id IN ?", ids).Find(&found).Error; err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	valid := make(map[uint]struct{}, len(found))

	for _, p := range found {
		if IsKnown(p.Name) {
			valid[p.ID] = struct{}{}
		}
	}

	var invalid []uint

	for _, id := range ids {
		if _, ok := valid[id]; !ok {
			invalid = append(invalid, id)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%w: ids %v", ErrInvalidPermission, invalid)
	}

	return nil
}

// SyncPermissionNames replaces the permission set of a role by permission names.
// Names outside the catalog are rejected with ErrUnknownPermission before anything is written.
func (s *RoleStore) SyncPermissionNames(ctx context.Context, roleID uint, names []string) error {
	names = dedupe(names)

	var unknown []string

	for _, n := range names {
		if !IsKnown(n) {
			unknown = append(unknown, n)
		}
	}

	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPermission, strings.Join(unknown, ", "))
	}

	ids := []uint{}

	if len(names) > 0 {
		var perms []models.Permission
		if err := s.db.WithContext(ctx).Select("id", "name").Where("name IN ?", names).Find(&perms).Error; err != nil {
			return fmt.Errorf("failed to resolve permissions: %w", err)
		}

		if len(perms) != len(names) {
			return fmt.Errorf("%w: catalog is not seeded", ErrInvalidPermission)
		}

		for _, p := range perms {
			ids = append(ids, p.ID)
		}
	}

	return s.SyncPermissions(ctx, roleID, ids)
}

// DeleteRole removes a role and its permission assignments.
// System roles and roles held by any user can not be deleted.
func (s *RoleStore) DeleteRole(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.findRole(tx, id)
		if err != nil {
			return err
		}

		if role.IsSystem {
			return ErrSystemRole
		}

		var holders int64
		if err = tx.Unscoped().Model(&models.User{}).Where(whereRoleID, id).Count(&holders).Error; err != nil {
			return fmt.Errorf("failed to count role holders: %w", err)
		}

		if holders > 0 {
			return fmt.Errorf("%w: %d users", ErrRoleInUse, holders)
		}

		if err = tx.Where(whereRoleID, id).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("failed to delete role permissions: %w", err)
		}

		return tx.Delete(role).Error
	})
}

// AssignRole sets the single role of a user.
func (s *RoleStore) AssignRole(ctx context.Context, userID uint64, roleID uint) error {
	db := s.db.WithContext(ctx)

	if _, err := s.findRole(db, roleID); err != nil {
		return err
	}

	result := db.Model(&models.User{}).Where("id = ?", userID).Update("role_id", roleID)
	if result.Error != nil {
		return fmt.Errorf("failed to assign role: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// EnsureRole creates the role if missing and replaces its permission set.
// Used by seeding, an existing role keeps its id and description.
func (s *RoleStore) EnsureRole(ctx context.Context, name, description string, perms []string, system bool) (*models.Role, error) {
	role, err := s.GetRoleByName(ctx, name)

	switch {
	case errors.Is(err, ErrRoleNotFound):
		role = &models.Role{Name: name, Description: description}
		if err = s.db.WithContext(ctx).Create(role).Error; err != nil {
			return nil, fmt.Errorf("failed to ensure role %s: %w", name, err)
		}
	case err != nil:
		return nil, err
	}

	if role.IsSystem != system {
		if err = s.db.WithContext(ctx).Model(role).Update("is_system", system).Error; err != nil {
			return nil, fmt.Errorf("failed to update role %s: %w", name, err)
		}
	}

	if err = s.SyncPermissionNames(ctx, role.ID, perms); err != nil {
		return nil, err
	}

	return role, nil
}

func dedupe[T uint | string](in []T) []T {
	out := slices.Clone(in)
	slices.Sort(out)

	return slices.Compact(out)
}
