// Package setting stores named blobs in the settings table.
package setting

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when attempting to create/update a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrSettingAlreadyExists is returned when attempting to create a setting that already exists.
	ErrSettingAlreadyExists = errors.New("setting already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

func check(db *gorm.DB, name string) error {
	if db == nil {
		return ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	return nil
}

// Get retrieves a setting by its name.
func Get(ctx context.Context, db *gorm.DB, name string) (*models.Setting, error) {
	if err := check(db, name); err != nil {
		return nil, err
	}

	var s models.Setting

	err := db.WithContext(ctx).Where(nameQueryPattern, name).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettingNotFound
	}

	if err != nil {
		return nil, err
	}

	return &s, nil
}

// GetAll retrieves all settings ordered by name.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var settings []models.Setting
	if err := db.WithContext(ctx).Order("name").Find(&settings).Error; err != nil {
		return nil, err
	}

	return settings, nil
}

// Create creates a new setting, an existing name is an error.
func Create(ctx context.Context, db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	if err := check(db, name); err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Setting{}).Where(nameQueryPattern, name).Count(&count).Error; err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, ErrSettingAlreadyExists
	}

	s := &models.Setting{Name: name, Value: value}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}

	return s, nil
}

// Set creates or replaces a setting by name in a single upsert statement.
func Set(ctx context.Context, db *gorm.DB, name string, value []byte) error {
	if err := check(db, name); err != nil {
		return err
	}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.Setting{Name: name, Value: value}).Error
}

// Delete deletes a setting by name.
func Delete(ctx context.Context, db *gorm.DB, name string) error {
	if err := check(db, name); err != nil {
		return err
	}

	result := db.WithContext(ctx).Where(nameQueryPattern, name).Delete(&models.Setting{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}

// GetInt reads a setting holding a decimal integer.
// A missing setting returns 0 without error.
func GetInt(ctx context.Context, db *gorm.DB, name string) (int, error) {
	s, err := Get(ctx, db, name)
	if errors.Is(err, ErrSettingNotFound) {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	return strconv.Atoi(string(s.Value)) //nolint:wrapcheck
}

// SetInt stores a decimal integer setting.
func SetInt(ctx context.Context, db *gorm.DB, name string, value int) error {
	return Set(ctx, db, name, []byte(strconv.Itoa(value)))
}
