package models

import "time"

// Page is a CMS page of the storefront.
type Page struct {
	ID        uint      `gorm:"primaryKey"             json:"id"`
	Slug      string    `gorm:"unique;size:150;not null" json:"slug"`
	Title     string    `gorm:"size:255;not null"      json:"title"`
	Body      string    `gorm:"type:text"              json:"body"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the Page model.
func (Page) TableName() string {
	return "pages"
}
