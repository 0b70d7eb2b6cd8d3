package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/models"
)

// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
var ErrLDAPDisabled = errors.New("ldap authentication is disabled")

const defaultLDAPTimeout = 10

// LDAPProvider authenticates staff against a directory.
// Directory users are mirrored into the users table and start with the configured default role.
type LDAPProvider struct {
	config config.LDAPAuth
	db     *gorm.DB
	roles  *RoleStore
}

// NewLDAPProvider creates a new LDAP provider.
func NewLDAPProvider(cfg config.LDAPAuth, db *gorm.DB, roles *RoleStore) (*LDAPProvider, error) {
	if !cfg.Enabled {
		return nil, ErrLDAPDisabled
	}

	if cfg.UsernameAttr == "" {
		cfg.UsernameAttr = "uid"
	}

	if cfg.EmailAttr == "" {
		cfg.EmailAttr = "mail"
	}

	if cfg.FirstNameAttr == "" {
		cfg.FirstNameAttr = "givenName"
	}

	if cfg.LastNameAttr == "" {
		cfg.LastNameAttr = "sn"
	}

	if cfg.UserFilter == "" {
		cfg.UserFilter = "(" + cfg.UsernameAttr + "={username})"
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultLDAPTimeout
	}

	return &LDAPProvider{
		config: cfg,
		db:     db,
		roles:  roles,
	}, nil
}

// Connect establishes a connection to the LDAP server.
func (p *LDAPProvider) Connect() (*ldap.Conn, error) {
	hostPort := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))

	ldapURL := "ldap://" + hostPort
	if p.config.UseSSL {
		ldapURL = "ldaps://" + hostPort
	}

	var tlsConfig *tls.Config
	if p.config.UseSSL || p.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec // opt-in for lab directories
			ServerName:         p.config.Host,
		}
	}

	conn, err := ldap.DialURL(ldapURL,
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: time.Duration(p.config.Timeout) * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if !p.config.UseSSL && p.config.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	conn.SetTimeout(time.Duration(p.config.Timeout) * time.Second)

	return conn, nil
}

// Authenticate binds as the user and returns the mirrored local account.
func (p *LDAPProvider) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	// an empty password would be an unauthenticated bind and always succeed
	if password == "" {
		return nil, ErrInvalidPassword
	}

	conn, err := p.Connect()
	if err != nil {
		return nil, err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if p.config.BindDN != "" {
		if err = conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	entry, err := p.searchUserEntry(conn, username)
	if err != nil {
		return nil, err
	}

	if err = conn.Bind(entry.DN, password); err != nil {
		var ldapErr *ldap.Error
		if errors.As(err, &ldapErr) && ldapErr.ResultCode == ldap.LDAPResultInvalidCredentials {
			return nil, ErrInvalidPassword
		}

		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	return p.upsertLDAPUser(ctx, directoryUser{
		Username:  username,
		DN:        entry.DN,
		Email:     entry.GetAttributeValue(p.config.EmailAttr),
		FirstName: entry.GetAttributeValue(p.config.FirstNameAttr),
		LastName:  entry.GetAttributeValue(p.config.LastNameAttr),
	})
}

// searchUserEntry searches LDAP for the given username and returns a single entry.
func (p *LDAPProvider) searchUserEntry(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	searchRequest := ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, //nolint:mnd // one more than needed to detect ambiguous filters
		p.config.Timeout,
		false,
		p.userFilter(username),
		[]string{
			p.config.UsernameAttr,
			p.config.EmailAttr,
			p.config.FirstNameAttr,
			p.config.LastNameAttr,
		},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	if searchResult == nil {
		return nil, ErrMultipleUsersFound
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}

func (p *LDAPProvider) userFilter(username string) string {
	return strings.ReplaceAll(p.config.UserFilter, "{username}", ldap.EscapeFilter(username))
}

type directoryUser struct {
	Username  string
	DN        string
	Email     string
	FirstName string
	LastName  string
}

// upsertLDAPUser creates or refreshes the local mirror of a directory account.
// The role of an existing account is managed locally and never overwritten.
func (p *LDAPProvider) upsertLDAPUser(ctx context.Context, du directoryUser) (*models.User, error) {
	db := p.db.WithContext(ctx)

	var user models.User

	err := db.Where("external_id = ? AND auth_source = ?", du.DN, models.AuthSourceLDAP).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		role, errRole := p.roles.GetRoleByName(ctx, p.config.DefaultRole)
		if errRole != nil {
			return nil, fmt.Errorf("no default role for directory users: %w", errRole)
		}

		user = models.User{
			Active:     true,
			Username:   du.Username,
			Email:      du.Email,
			FirstName:  du.FirstName,
			LastName:   du.LastName,
			AuthSource: models.AuthSourceLDAP,
			ExternalID: du.DN,
			RoleID:     role.ID,
		}

		if err = db.Omit("Role").Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		return &user, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return &user, ErrUserAccountDisabled
	}

	err = db.Model(&user).Updates(map[string]any{
		"email":      du.Email,
		"first_name": du.FirstName,
		"last_name":  du.LastName,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &user, nil
}

// TestConnection tests the LDAP server connection and bind credentials.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.Connect()
	if err != nil {
		return err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if p.config.BindDN != "" {
		if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
			return fmt.Errorf("bind failed: %w", err)
		}
	}

	return nil
}
