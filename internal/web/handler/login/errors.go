// Package login provides the credential entry points: session login and bearer token issuance.
//
// This file defines exported error values used throughout the login flow.
package login

import "errors"

var (
	// ErrLocalAuthDisabled is returned when local (username/password) authentication
	// is disabled by configuration.
	ErrLocalAuthDisabled = errors.New("local authentication is disabled")

	// ErrLDAPAuthDisabled is returned when LDAP authentication is disabled by
	// configuration.
	ErrLDAPAuthDisabled = errors.New("ldap authentication is disabled")

	// ErrInvalidAuthMethod is returned when a requested authentication method is
	// unknown or not permitted.
	ErrInvalidAuthMethod = errors.New("invalid authentication method")

	// ErrInvalidCredentials is returned when the provided username and/or password
	// are not valid for the selected authentication method.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountDisabled is returned for deactivated accounts with valid credentials.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrOTPRequired is returned when the second factor is missing or wrong.
	ErrOTPRequired = errors.New("invalid one-time password")
)
