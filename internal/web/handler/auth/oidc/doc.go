// Package oidc provides handlers for the social login flow over OpenID Connect.
//
// The provider credentials are the social-auth settings managed in the admin area,
// they are read on every login attempt so changes apply without a restart.
//
//	GET /auth/oidc/login    - redirect to the provider with a one time state
//	GET /auth/oidc/callback - verify state and ID token, start a session
//
// New accounts are created with the configured default role.
package oidc
