package models

import "time"

// Permission is one entry of the permission catalog, e.g. "admin.orders.edit".
// Rows are seeded at deploy time and never changed at runtime.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Name is the dot-namespaced permission string.
	Name string `gorm:"unique;size:100;not null"`
	// Category is the namespace segment of Name (e.g. "orders").
	Category string `gorm:"size:50;not null;index"`
	// Action is the trailing segment of Name (e.g. "edit").
	Action string `gorm:"size:50;not null"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the permission was seeded (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
