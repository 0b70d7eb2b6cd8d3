// Package session keeps cookie sessions in a fiber storage backend.
// A session only maps an opaque id to a user id and its lifetime, never to permissions.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// storageGrace keeps expired entries around for a while so an expired session
// can still be told apart from one that never existed.
const storageGrace = time.Hour

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrCorrupt is returned when the stored entry can not be decoded.
	ErrCorrupt = errors.New("session data is corrupt")
	// ErrEmptyID is returned for an empty session id.
	ErrEmptyID = errors.New("session id is empty")
)

// Data represents the session data structure.
type Data struct {
	UserID    uint64    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session lifetime is over at now.
func (d *Data) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// Store reads and writes sessions.
type Store struct {
	storage fiber.Storage
	expiry  time.Duration
}

// New creates a session store on top of storage.
func New(storage fiber.Storage, expiry time.Duration) *Store {
	if storage == nil {
		panic("storage is nil")
	}

	return &Store{storage: storage, expiry: expiry}
}

// Expiry returns the session lifetime.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Create starts a new session for userID and returns its id.
func (s *Store) Create(userID uint64) (string, *Data, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	d := &Data{UserID: userID, CreatedAt: now, ExpiresAt: now.Add(s.expiry)}

	if err = s.Write(id, d); err != nil {
		return "", nil, err
	}

	return id, d, nil
}

// Write stores d under id.
func (s *Store) Write(id string, d *Data) error {
	if id == "" {
		return ErrEmptyID
	}

	out, err := json.Marshal(d)
	if err != nil {
		return err //nolint:wrapcheck
	}

	ttl := time.Until(d.ExpiresAt) + storageGrace
	if ttl <= 0 {
		ttl = storageGrace
	}

	if err = s.storage.Set(id, out, ttl); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

// Read returns the session stored under id.
func (s *Store) Read(id string) (*Data, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	raw, err := s.storage.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	if len(raw) == 0 {
		return nil, ErrNotFound
	}

	var d Data
	if err = json.Unmarshal(raw, &d); err != nil || d.UserID == 0 {
		return nil, ErrCorrupt
	}

	return &d, nil
}

// Delete removes the session stored under id.
func (s *Store) Delete(id string) error {
	if id == "" {
		return ErrEmptyID
	}

	return s.storage.Delete(id) //nolint:wrapcheck
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err //nolint:wrapcheck
	}

	return hex.EncodeToString(b), nil
}
