package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

// LocalProvider handles local database authentication and account maintenance.
type LocalProvider struct {
	db *gorm.DB
}

const whereID = "id = ?"

// NewUser holds the fields of a new local account.
type NewUser struct {
	Username  string `json:"username"   validate:"required,min=3,max=100"`
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name"  validate:"max=100"`
	RoleID    uint   `json:"role_id"    validate:"required"`
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db: db,
	}
}

// Authenticate authenticates a user against the local database.
func (p *LocalProvider) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User

	err := p.db.WithContext(ctx).
		Where("username = ? AND auth_source = ?", username, models.AuthSourceLocal).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	// only reveal the account state to someone who knows the password
	if !user.Active {
		return &user, ErrUserAccountDisabled
	}

	return &user, nil
}

// CreateUser creates a new local user.
func (p *LocalProvider) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	db := p.db.WithContext(ctx)

	var count int64
	if err := db.Unscoped().Model(&models.User{}).
		Where("username = ? OR email = ?", in.Username, in.Email).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if count > 0 {
		return nil, ErrUserNameOrEmailExists
	}

	if err := db.First(&models.Role{}, in.RoleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		return nil, fmt.Errorf("failed to check role: %w", err)
	}

	hashedPassword, err := models.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Active:     true,
		Username:   strings.TrimSpace(in.Username),
		Email:      strings.TrimSpace(in.Email),
		Password:   hashedPassword,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		RoleID:     in.RoleID,
		AuthSource: models.AuthSourceLocal,
	}

	if err = db.Omit("Role").Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// ChangePassword changes a user's password.
func (p *LocalProvider) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	db := p.db.WithContext(ctx)

	var user models.User
	if err := db.Where("id = ? AND auth_source = ?", userID, models.AuthSourceLocal).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}

		return fmt.Errorf("failed to query user: %w", err)
	}

	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	hashedPassword, err := models.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return db.Model(&models.User{}).Where(whereID, userID).Update("password", hashedPassword).Error
}

// SetActive activates or deactivates a user account.
// A deactivated user is rejected by the resolver on the next request.
func (p *LocalProvider) SetActive(ctx context.Context, userID uint64, active bool) error {
	result := p.db.WithContext(ctx).Model(&models.User{}).Where(whereID, userID).Update("active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// RecordLogin stores the source address of a successful login and returns the previous one.
func (p *LocalProvider) RecordLogin(ctx context.Context, user *models.User, ip string) (string, error) {
	previous := user.LastLoginIP
	now := time.Now()

	err := p.db.WithContext(ctx).Model(&models.User{}).Where(whereID, user.ID).
		Updates(map[string]any{"last_login_ip": ip, "last_login_at": now}).Error
	if err != nil {
		return previous, fmt.Errorf("failed to record login: %w", err)
	}

	user.LastLoginIP = ip
	user.LastLoginAt = &now

	return previous, nil
}

// GetUserByID retrieves a user by ID.
func (p *LocalProvider) GetUserByID(ctx context.Context, userID uint64) (*models.User, error) {
	var user models.User

	err := p.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// ListUsers lists users ordered by username.
func (p *LocalProvider) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)

	query := p.db.WithContext(ctx).Model(&models.User{}).Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	if err := query.Order("username").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}
