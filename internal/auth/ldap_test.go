package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

func TestNewLDAPProvider(t *testing.T) {
	_, err := NewLDAPProvider(config.LDAPAuth{}, nil, nil)
	require.ErrorIs(t, err, ErrLDAPDisabled)

	p, err := NewLDAPProvider(config.LDAPAuth{Enabled: true, Host: "ldap.example.com", Port: 389}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "uid", p.config.UsernameAttr)
	assert.Equal(t, "mail", p.config.EmailAttr)
	assert.Equal(t, "givenName", p.config.FirstNameAttr)
	assert.Equal(t, "sn", p.config.LastNameAttr)
	assert.Equal(t, "(uid={username})", p.config.UserFilter)
	assert.Equal(t, defaultLDAPTimeout, p.config.Timeout)
}

func TestLDAPUserFilter(t *testing.T) {
	p, err := NewLDAPProvider(config.LDAPAuth{
		Enabled:    true,
		UserFilter: "(&(objectClass=person)(sAMAccountName={username}))",
	}, nil, nil)
	require.NoError(t, err)

	tests := []struct {
		username string
		want     string
	}{
		{username: "alice", want: "(&(objectClass=person)(sAMAccountName=alice))"},
		{username: "a*)(uid=*", want: `(&(objectClass=person)(sAMAccountName=a\2a\29\28uid=\2a))`},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			got := p.userFilter(tt.username)
			assert.True(t, strings.EqualFold(tt.want, got), "got %s", got)
		})
	}
}

func TestLDAPAuthenticateEmptyPassword(t *testing.T) {
	p, err := NewLDAPProvider(config.LDAPAuth{Enabled: true, Host: "127.0.0.1", Port: 1}, nil, nil)
	require.NoError(t, err)

	_, err = p.Authenticate(t.Context(), "alice", "")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestUpsertLDAPUser(t *testing.T) {
	f := newFixture(t)

	staff := f.role(t, "Staff", PermOrdersRead)
	manager := f.role(t, "Manager", PermOrdersEdit)

	p, err := NewLDAPProvider(config.LDAPAuth{Enabled: true, DefaultRole: "Staff"}, f.db, f.roles)
	require.NoError(t, err)

	du := directoryUser{
		Username:  "jdoe",
		DN:        "uid=jdoe,ou=people,dc=example,dc=com",
		Email:     "jdoe@example.com",
		FirstName: "John",
		LastName:  "Doe",
	}

	created, err := p.upsertLDAPUser(f.ctx, du)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, created.RoleID)
	assert.Equal(t, models.AuthSourceLDAP, created.AuthSource)

	// a locally assigned role survives the next login
	require.NoError(t, f.roles.AssignRole(f.ctx, created.ID, manager.ID))

	du.Email = "john.doe@example.com"
	updated, err := p.upsertLDAPUser(f.ctx, du)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, manager.ID, updated.RoleID)
	assert.Equal(t, "john.doe@example.com", updated.Email)

	require.NoError(t, NewLocalProvider(f.db).SetActive(f.ctx, created.ID, false))

	_, err = p.upsertLDAPUser(f.ctx, du)
	require.ErrorIs(t, err, ErrUserAccountDisabled)
}

func TestUpsertLDAPUserWithoutDefaultRole(t *testing.T) {
	f := newFixture(t)

	p, err := NewLDAPProvider(config.LDAPAuth{Enabled: true, DefaultRole: "Missing"}, f.db, f.roles)
	require.NoError(t, err)

	_, err = p.upsertLDAPUser(f.ctx, directoryUser{Username: "x", DN: "uid=x"})
	require.ErrorIs(t, err, ErrRoleNotFound)
}
