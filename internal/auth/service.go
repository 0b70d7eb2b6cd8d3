package auth

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

// DenyReason tells why a request was denied.
type DenyReason string

const (
	// DenyNone is the reason of an allowed decision.
	DenyNone DenyReason = ""
	// DenyUnauthenticated is returned when there is no identity.
	DenyUnauthenticated DenyReason = "unauthenticated"
	// DenyForbidden is returned when the identity's role lacks the permission.
	DenyForbidden DenyReason = "forbidden"
)

var decisions = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Authorization decisions, differentiated by outcome.",
	},
	[]string{"decision"},
)

// Decision is the outcome of an authorization check.
// Err is set when the check itself failed, such a decision is never an allow.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Err     error
}

// Error maps a denied decision to the taxonomy error, nil when allowed.
func (d Decision) Error() error {
	switch {
	case d.Allowed:
		return nil
	case d.Err != nil:
		return d.Err
	case d.Reason == DenyUnauthenticated:
		return ErrUnauthenticated
	default:
		return ErrForbidden
	}
}

func (d Decision) label() string {
	switch {
	case d.Allowed:
		return "allow"
	case d.Err != nil:
		return "error"
	default:
		return string(d.Reason)
	}
}

// Guard decides whether an identity may perform an operation.
type Guard struct {
	db *gorm.DB
}

// NewGuard creates a new authorization guard.
func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// Authorize checks required against the current permission set of the identity's role.
// The set is read from the database on every call so a revocation applies to the next request.
func (g *Guard) Authorize(ctx context.Context, identity *Identity, required string) Decision {
	d := g.decide(ctx, identity, required)
	decisions.WithLabelValues(d.label()).Inc()

	return d
}

func (g *Guard) decide(ctx context.Context, identity *Identity, required string) Decision {
	if identity == nil {
		return Decision{Reason: DenyUnauthenticated}
	}

	// a permission outside the catalog can not be granted to anyone
	if !IsKnown(required) {
		return Decision{Reason: DenyForbidden}
	}

	ok, err := g.RoleHasPermission(ctx, identity.RoleID, required)
	if err != nil {
		return Decision{Reason: DenyForbidden, Err: err}
	}

	if !ok {
		return Decision{Reason: DenyForbidden}
	}

	return Decision{Allowed: true}
}

// RoleHasPermission checks if a role currently holds a permission.
func (g *Guard) RoleHasPermission(ctx context.Context, roleID uint, permission string) (bool, error) {
	var count int64

	err := g.db.WithContext(ctx).Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ? AND permissions.name = ?", roleID, permission).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role permission: %w", err)
	}

	return count > 0, nil
}

// Permissions returns the current permission names of the identity's role.
func (g *Guard) Permissions(ctx context.Context, identity *Identity) ([]string, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}

	perms := []string{}

	err := g.db.WithContext(ctx).Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", identity.RoleID).
		Order("permissions.name").
		Pluck("permissions.name", &perms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}

	return perms, nil
}
