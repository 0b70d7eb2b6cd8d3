package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/controller/provider"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

// ErrOIDCDisabled is returned when social login is disabled in the provider settings.
var ErrOIDCDisabled = errors.New("oidc authentication is disabled")

// OIDCProvider handles social login through an OpenID Connect provider.
type OIDCProvider struct {
	verifier    *oidc.IDTokenVerifier
	oauth2      oauth2.Config
	db          *gorm.DB
	roles       *RoleStore
	defaultRole string
}

// NewOIDCProvider creates a new OIDC provider from the stored social login settings.
// New accounts get defaultRole.
func NewOIDCProvider(
	ctx context.Context,
	settings *provider.Social,
	db *gorm.DB,
	roles *RoleStore,
	defaultRole string,
) (*OIDCProvider, error) {
	if settings == nil || !settings.Enabled {
		return nil, ErrOIDCDisabled
	}

	p, err := oidc.NewProvider(ctx, settings.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	scopes := settings.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &OIDCProvider{
		verifier: p.Verifier(&oidc.Config{ClientID: settings.ClientID}),
		oauth2: oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			RedirectURL:  settings.RedirectURL,
			Endpoint:     p.Endpoint(),
			Scopes:       scopes,
		},
		db:          db,
		roles:       roles,
		defaultRole: defaultRole,
	}, nil
}

// AuthURL returns the authorization URL for state.
func (p *OIDCProvider) AuthURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// oidcClaims are the ID token claims mirrored into the users table.
type oidcClaims struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// HandleCallback exchanges code and returns the mirrored local account.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (*models.User, error) {
	oauth2Token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims oidcClaims
	if err = idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	return p.upsertOIDCUser(ctx, claims)
}

// upsertOIDCUser creates or refreshes the local mirror of a social login account.
func (p *OIDCProvider) upsertOIDCUser(ctx context.Context, claims oidcClaims) (*models.User, error) {
	db := p.db.WithContext(ctx)

	var user models.User

	err := db.Where("external_id = ? AND auth_source = ?", claims.Sub, models.AuthSourceOIDC).First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		role, errRole := p.roles.GetRoleByName(ctx, p.defaultRole)
		if errRole != nil {
			return nil, fmt.Errorf("no default role for social login: %w", errRole)
		}

		var taken int64
		if err = db.Unscoped().Model(&models.User{}).Where("username = ?", claims.Email).Count(&taken).Error; err != nil {
			return nil, fmt.Errorf("failed to check existing user: %w", err)
		}

		if taken > 0 {
			return nil, ErrUserNameOrEmailExists
		}

		user = models.User{
			Active:     true,
			Username:   claims.Email,
			Email:      claims.Email,
			FirstName:  claims.GivenName,
			LastName:   claims.FamilyName,
			AuthSource: models.AuthSourceOIDC,
			ExternalID: claims.Sub,
			RoleID:     role.ID,
		}

		if err = db.Omit("Role").Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to query user: %w", err)
	default:
		if !user.Active {
			return &user, ErrUserAccountDisabled
		}

		err = db.Model(&user).Updates(map[string]any{
			"email":      claims.Email,
			"first_name": claims.GivenName,
			"last_name":  claims.FamilyName,
		}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	return &user, nil
}
