package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/web/session"
)

// CredentialKind names the transport a credential arrived on.
type CredentialKind string

const (
	// CredentialNone is a request without any credential.
	CredentialNone CredentialKind = "none"
	// CredentialCookie is a session cookie.
	CredentialCookie CredentialKind = "cookie"
	// CredentialBearer is an Authorization bearer token.
	CredentialBearer CredentialKind = "bearer"
)

// Credential is what a request presents to prove who it is.
// New transports add a variant and a case in Resolver.Resolve, the Guard never changes.
type Credential interface {
	Kind() CredentialKind
}

// CookieSession carries the session id from the session cookie.
type CookieSession struct {
	ID string
}

// Kind implements Credential.
func (CookieSession) Kind() CredentialKind { return CredentialCookie }

// BearerToken carries a raw bearer token.
type BearerToken struct {
	Raw string
}

// Kind implements Credential.
func (BearerToken) Kind() CredentialKind { return CredentialBearer }

// NoCredential is a request without a credential.
type NoCredential struct{}

// Kind implements Credential.
func (NoCredential) Kind() CredentialKind { return CredentialNone }

// Identity is the resolved user and role of a request.
type Identity struct {
	UserID   uint64         `json:"user_id"`
	RoleID   uint           `json:"role_id"`
	Username string         `json:"username"`
	Source   CredentialKind `json:"source"`
}

// ResolveState is the outcome of resolving a credential.
type ResolveState int

const (
	// StateUnauthenticated means no credential was presented.
	StateUnauthenticated ResolveState = iota
	// StateAuthenticated means the credential maps to an active user.
	StateAuthenticated
	// StateExpired means the credential was valid once but its lifetime is over.
	StateExpired
	// StateInvalid means the credential is malformed, unknown or maps to no usable account.
	StateInvalid
)

func (s ResolveState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	case StateInvalid:
		return "invalid"
	default:
		return "unauthenticated"
	}
}

const bearerPrefix = "bearer "

// CredentialFromRequest extracts the credential of a request.
// An Authorization bearer header wins over the session cookie.
func CredentialFromRequest(c *fiber.Ctx, cookieName string) Credential {
	if h := c.Get(fiber.HeaderAuthorization); len(h) >= len(bearerPrefix) &&
		strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return BearerToken{Raw: strings.TrimSpace(h[len(bearerPrefix):])}
	}

	if id := c.Cookies(cookieName); id != "" {
		return CookieSession{ID: id}
	}

	return NoCredential{}
}

// Resolver maps credentials to identities.
type Resolver struct {
	db         *gorm.DB
	sessions   *session.Store
	tokens     *TokenIssuer
	cookieName string
	now        func() time.Time
}

// NewResolver creates a resolver. tokens may be nil when bearer tokens are disabled,
// bearer credentials then resolve to StateInvalid.
func NewResolver(db *gorm.DB, sessions *session.Store, tokens *TokenIssuer, cookieName string) *Resolver {
	return &Resolver{
		db:         db,
		sessions:   sessions,
		tokens:     tokens,
		cookieName: cookieName,
		now:        time.Now,
	}
}

// CookieName returns the name of the session cookie.
func (r *Resolver) CookieName() string {
	return r.cookieName
}

// FromRequest extracts the credential of a request.
func (r *Resolver) FromRequest(c *fiber.Ctx) Credential {
	return CredentialFromRequest(c, r.cookieName)
}

// Resolve maps cred to an identity. It never fails: lookup errors are logged and
// degrade to StateInvalid. The identity is only non-nil for StateAuthenticated.
func (r *Resolver) Resolve(ctx context.Context, cred Credential) (*Identity, ResolveState) {
	switch c := cred.(type) {
	case CookieSession:
		return r.resolveSession(ctx, c)
	case BearerToken:
		return r.resolveToken(ctx, c)
	default:
		return nil, StateUnauthenticated
	}
}

func (r *Resolver) resolveSession(ctx context.Context, c CookieSession) (*Identity, ResolveState) {
	if r.sessions == nil {
		return nil, StateInvalid
	}

	data, err := r.sessions.Read(c.ID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) && !errors.Is(err, session.ErrCorrupt) && !errors.Is(err, session.ErrEmptyID) {
			log.Error().Err(err).Msg("failed to read session")
		}

		return nil, StateInvalid
	}

	if data.Expired(r.now()) {
		if err = r.sessions.Delete(c.ID); err != nil {
			log.Warn().Err(err).Msg("failed to delete expired session")
		}

		return nil, StateExpired
	}

	return r.loadUser(ctx, data.UserID, CredentialCookie)
}

func (r *Resolver) resolveToken(ctx context.Context, c BearerToken) (*Identity, ResolveState) {
	if r.tokens == nil || c.Raw == "" {
		return nil, StateInvalid
	}

	userID, err := r.tokens.Parse(c.Raw)
	if errors.Is(err, ErrTokenExpired) {
		return nil, StateExpired
	}

	if err != nil {
		log.Debug().Err(err).Msg("rejected bearer token")
		return nil, StateInvalid
	}

	return r.loadUser(ctx, userID, CredentialBearer)
}

// loadUser reads the user row so a role change or deactivation applies to the very next request.
func (r *Resolver) loadUser(ctx context.Context, userID uint64, source CredentialKind) (*Identity, ResolveState) {
	var user models.User

	err := r.db.WithContext(ctx).Select("id", "username", "role_id", "active").First(&user, userID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Uint64("user_id", userID).Msg("failed to load user for identity")
		}

		return nil, StateInvalid
	}

	if !user.Active {
		return nil, StateInvalid
	}

	return &Identity{
		UserID:   user.ID,
		RoleID:   user.RoleID,
		Username: user.Username,
		Source:   source,
	}, StateAuthenticated
}
