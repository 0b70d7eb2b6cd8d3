// Package audit records security relevant events such as logins and token issuance.
//
// Recording never blocks or fails the request that caused the event: rows are written
// in the background and write errors are only logged.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

// Event types.
const (
	TypeLoginSuccess    = "login.success"
	TypeLoginFailure    = "login.failure"
	TypeLoginOTPFailure = "login.otp_failure"
	TypeLogout          = "logout"
	TypeTokenIssued     = "token.issued"
	TypeIPChanged       = "ip.changed"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPageSize     = 50
	maxPageSize         = 500
)

var writeFailures = promauto.NewCounter( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "security_event_write_failures_total",
		Help: "Security events that could not be stored.",
	},
)

// Event is a security event before it is stored.
type Event struct {
	Type      string
	UserID    *uint64
	Username  string
	IP        string
	UserAgent string
	Details   map[string]any
}

// Filter narrows List.
type Filter struct {
	Type   string
	UserID *uint64
	Limit  int
	Offset int
}

// Log appends security events to the database.
type Log struct {
	db      *gorm.DB
	timeout time.Duration
	wg      sync.WaitGroup
}

// New creates a security event log.
func New(db *gorm.DB) *Log {
	return &Log{db: db, timeout: defaultWriteTimeout}
}

// Record stores e asynchronously. The write is detached from ctx so it
// survives the end of the request, errors are logged and swallowed.
func (l *Log) Record(ctx context.Context, e Event) {
	row, err := newRow(e)
	if err != nil {
		writeFailures.Inc()
		log.Error().Err(err).Str("type", e.Type).Msg("failed to encode security event")

		return
	}

	l.wg.Add(1)

	go func() {
		defer l.wg.Done()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		if err := l.db.WithContext(wctx).Create(row).Error; err != nil {
			writeFailures.Inc()
			log.Error().Err(err).Str("type", row.Type).Str("username", row.Username).
				Msg("failed to store security event")
		}
	}()
}

// Wait blocks until every pending write finished.
func (l *Log) Wait() {
	l.wg.Wait()
}

func newRow(e Event) (*models.SecurityEvent, error) {
	row := &models.SecurityEvent{
		ID:        uuid.NewString(),
		Type:      e.Type,
		UserID:    e.UserID,
		Username:  truncate(e.Username, maxUsernameLen),
		IP:        truncate(e.IP, maxIPLen),
		UserAgent: truncate(e.UserAgent, maxUserAgentLen),
		CreatedAt: time.Now(),
	}

	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		row.Details = string(b)
	}

	return row, nil
}

// column sizes of models.SecurityEvent
const (
	maxUsernameLen  = 100
	maxIPLen        = 64
	maxUserAgentLen = 255
)

// truncate drops invalid UTF-8 from client supplied s and cuts it to at most n
// bytes on a rune boundary, so the row is accepted by every database engine.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}

	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}

// List returns stored events newest first together with the total number of matches.
func (l *Log) List(ctx context.Context, f Filter) ([]models.SecurityEvent, int64, error) {
	var (
		events []models.SecurityEvent
		total  int64
	)

	query := l.db.WithContext(ctx).Model(&models.SecurityEvent{})

	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}

	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}

	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err //nolint:wrapcheck
	}

	limit := f.Limit

	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}

	err := query.Order("created_at DESC").Order("id").Limit(limit).Offset(max(f.Offset, 0)).Find(&events).Error
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}

	return events, total, nil
}
