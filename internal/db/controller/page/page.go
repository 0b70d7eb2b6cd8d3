// Package page manages the CMS pages of the storefront.
package page

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

var (
	// ErrPageNotFound is returned when a page does not exist.
	ErrPageNotFound = errors.New("page not found")
	// ErrSlugTaken is returned when another page already uses the slug.
	ErrSlugTaken = errors.New("slug already in use")
	// ErrInvalidSlug is returned for slugs that are not lower case words joined by dashes.
	ErrInvalidSlug = errors.New("invalid slug")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Input holds the editable fields of a page.
type Input struct {
	Slug      string `json:"slug"      validate:"required,max=150"`
	Title     string `json:"title"     validate:"required,max=255"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

func (in *Input) normalize() error {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Title = strings.TrimSpace(in.Title)

	if !slugPattern.MatchString(in.Slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, in.Slug)
	}

	return nil
}

// List returns all pages ordered by slug.
func List(ctx context.Context, db *gorm.DB) ([]models.Page, error) {
	var pages []models.Page
	if err := db.WithContext(ctx).Order("slug").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	return pages, nil
}

// Get returns a page by id.
func Get(ctx context.Context, db *gorm.DB, id uint) (*models.Page, error) {
	var p models.Page

	err := db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPageNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	return &p, nil
}

// Create stores a new page.
func Create(ctx context.Context, db *gorm.DB, in Input) (*models.Page, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	db = db.WithContext(ctx)

	if err := slugFree(db, in.Slug, 0); err != nil {
		return nil, err
	}

	p := models.Page{Slug: in.Slug, Title: in.Title, Body: in.Body, Published: in.Published}
	if err := db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &p, nil
}

// Update replaces the editable fields of a page.
func Update(ctx context.Context, db *gorm.DB, id uint, in Input) (*models.Page, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var p *models.Page

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error

		if p, err = Get(ctx, tx, id); err != nil {
			return err
		}

		if err = slugFree(tx, in.Slug, id); err != nil {
			return err
		}

		p.Slug, p.Title, p.Body, p.Published = in.Slug, in.Title, in.Body, in.Published

		return tx.Model(p).Select("slug", "title", "body", "published").Updates(p).Error
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Delete removes a page.
func Delete(ctx context.Context, db *gorm.DB, id uint) error {
	result := db.WithContext(ctx).Delete(&models.Page{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete page: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrPageNotFound
	}

	return nil
}

func slugFree(db *gorm.DB, slug string, exceptID uint) error {
	var count int64
	if err := db.Model(&models.Page{}).Where("slug = ? AND id <> ?", slug, exceptID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check slug: %w", err)
	}

	if count > 0 {
		return ErrSlugTaken
	}

	return nil
}
