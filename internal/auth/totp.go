package auth

import (
	"context"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

// TOTP manages the time based second factor of local accounts.
type TOTP struct {
	db     *gorm.DB
	issuer string
}

// NewTOTP creates a TOTP manager. issuer is shown in authenticator apps.
func NewTOTP(db *gorm.DB, issuer string) *TOTP {
	return &TOTP{db: db, issuer: issuer}
}

// Enroll generates a new pending secret for user. A user with an enabled factor
// must pass a valid code of the current secret. The current secret stays in
// force until Confirm succeeds on the new one.
func (t *TOTP) Enroll(ctx context.Context, user *models.User, code string) (*otp.Key, error) {
	if user.TOTPEnabled {
		if err := t.Verify(user, code); err != nil {
			return nil, err
		}
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: user.Username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	err = t.db.WithContext(ctx).Model(&models.User{}).Where(whereID, user.ID).
		Update("totp_pending_secret", key.Secret()).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store totp secret: %w", err)
	}

	user.TOTPPendingSecret = key.Secret()

	return key, nil
}

// Confirm activates the pending secret once the user proved possession with a valid code.
func (t *TOTP) Confirm(ctx context.Context, user *models.User, code string) error {
	if user.TOTPPendingSecret == "" {
		return ErrOTPNotEnrolled
	}

	if !totp.Validate(code, user.TOTPPendingSecret) {
		return ErrInvalidOTP
	}

	if err := t.db.WithContext(ctx).Model(&models.User{}).Where(whereID, user.ID).
		Updates(map[string]any{
			"totp_secret":         user.TOTPPendingSecret,
			"totp_pending_secret": "",
			"totp_enabled":        true,
		}).Error; err != nil {
		return fmt.Errorf("failed to enable totp: %w", err)
	}

	user.TOTPSecret = user.TOTPPendingSecret
	user.TOTPPendingSecret = ""
	user.TOTPEnabled = true

	return nil
}

// Verify checks code for users with an enabled factor, other users always pass.
func (t *TOTP) Verify(user *models.User, code string) error {
	if !user.TOTPEnabled {
		return nil
	}

	if code == "" || !totp.Validate(code, user.TOTPSecret) {
		return ErrInvalidOTP
	}

	return nil
}
