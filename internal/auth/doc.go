// Package auth implements authentication and role-based access control for the back-office.
//
// # Permission Catalog
//
// Every protected operation is gated by one permission from a static catalog of
// dot-namespaced names such as "admin.orders.edit". The catalog is seeded into the
// permissions table by SeedPermissions and versioned with CatalogVersion.
//
// # Roles
//
// RoleStore persists roles and their permission sets. Each user holds exactly one role.
// SyncPermissions replaces a role's set atomically, an invalid id leaves the set untouched.
//
// # Identity Resolution
//
// A request presents a Credential: a CookieSession, a BearerToken or NoCredential.
// Resolver.Resolve maps it to an Identity and a ResolveState without ever failing,
// the user row is read on every request so role changes apply immediately.
//
// # Authorization
//
// Guard.Authorize reads the permission set of the identity's role from the database
// on every call. Nothing is cached, a revoked permission is denied on the next request.
//
//	resolver := auth.NewResolver(db, sessions, tokens, "session")
//	guard := auth.NewGuard(db)
//
//	app.Put("/admin/pages/:id",
//	    auth.RequirePermission(resolver, guard, auth.PermPagesEdit),
//	    handler,
//	)
//
// # Authentication Providers
//
// LocalProvider checks Argon2id passwords, LDAPProvider binds against the staff directory
// and OIDCProvider handles social login. TOTP adds a second factor to local accounts and
// TokenIssuer signs bearer tokens for API clients.
package auth
