package models

import "time"

// SecurityEvent is an append-only record of an authentication relevant occurrence.
// Rows are never updated or deleted by the application.
type SecurityEvent struct {
	// ID is a random UUID.
	ID string `gorm:"primaryKey;size:36"`
	// Type is the event kind, e.g. "login.failure".
	Type string `gorm:"size:50;not null;index"`
	// UserID is set when the event could be attributed to an account.
	UserID *uint64 `gorm:"index"`
	// Username as submitted, also for unknown accounts.
	Username string `gorm:"size:100"`
	// IP is the request source address.
	IP string `gorm:"size:64"`
	// UserAgent of the request.
	UserAgent string `gorm:"size:255"`
	// Details holds event specific data as a JSON object.
	Details string `gorm:"type:text"`
	// CreatedAt is the time of the event.
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the database table name for the SecurityEvent model.
func (SecurityEvent) TableName() string {
	return "security_events"
}
