package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTPEnrollAndConfirm(t *testing.T) {
	f := newFixture(t)
	m := NewTOTP(f.db, "Storefront")

	u := f.user(t, "alice", f.role(t, "Support").ID)

	require.NoError(t, m.Verify(u, ""), "users without a factor always pass")
	require.ErrorIs(t, m.Confirm(f.ctx, u, "123456"), ErrOTPNotEnrolled)

	key, err := m.Enroll(f.ctx, u, "")
	require.NoError(t, err)
	assert.Equal(t, "Storefront", key.Issuer())
	assert.Equal(t, "alice", key.AccountName())
	assert.False(t, u.TOTPEnabled)

	require.ErrorIs(t, m.Confirm(f.ctx, u, "000000x"), ErrInvalidOTP)

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	require.NoError(t, m.Confirm(f.ctx, u, code))

	reloaded, err := NewLocalProvider(f.db).GetUserByID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TOTPEnabled)
	assert.Equal(t, key.Secret(), reloaded.TOTPSecret)

	require.NoError(t, m.Verify(reloaded, code))
	require.ErrorIs(t, m.Verify(reloaded, ""), ErrInvalidOTP)
	require.ErrorIs(t, m.Verify(reloaded, "abcdef"), ErrInvalidOTP)
}

func TestTOTPReEnrollKeepsFactor(t *testing.T) {
	f := newFixture(t)
	m := NewTOTP(f.db, "Storefront")
	local := NewLocalProvider(f.db)

	u := f.user(t, "alice", f.role(t, "Support").ID)

	key, err := m.Enroll(f.ctx, u, "")
	require.NoError(t, err)

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	require.NoError(t, m.Confirm(f.ctx, u, code))

	for _, bad := range []string{"", "000000"} {
		_, err = m.Enroll(f.ctx, u, bad)
		require.ErrorIs(t, err, ErrInvalidOTP)
	}

	second, err := m.Enroll(f.ctx, u, code)
	require.NoError(t, err)
	assert.NotEqual(t, key.Secret(), second.Secret())

	// the old secret is enforced until the new one is confirmed
	reloaded, err := local.GetUserByID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TOTPEnabled)
	assert.Equal(t, key.Secret(), reloaded.TOTPSecret)
	require.NoError(t, m.Verify(reloaded, code))

	newCode, err := totp.GenerateCode(second.Secret(), time.Now())
	require.NoError(t, err)
	require.NoError(t, m.Confirm(f.ctx, reloaded, newCode))

	reloaded, err = local.GetUserByID(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TOTPEnabled)
	assert.Equal(t, second.Secret(), reloaded.TOTPSecret)
	assert.Empty(t, reloaded.TOTPPendingSecret)
}
