package auth

import "errors"

// Authorization taxonomy.
var (
	// ErrUnauthenticated is the denial for requests without a valid credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is the denial for a valid identity lacking the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrUnknownPermission is returned when a permission name is not part of the catalog.
	ErrUnknownPermission = errors.New("unknown permission")
	// ErrInvalidPermission is returned when a permission id does not exist.
	ErrInvalidPermission = errors.New("invalid permission")
	// ErrConflict is returned when a role name is already taken.
	ErrConflict = errors.New("conflict")
)

// Role store errors.
var (
	// ErrRoleNotFound is returned for unknown role ids.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleNameEmpty is returned when a role is created without a name.
	ErrRoleNameEmpty = errors.New("role name cannot be empty")
	// ErrRoleInUse is returned when deleting a role that users still hold.
	ErrRoleInUse = errors.New("role is assigned to users")
	// ErrSystemRole is returned when deleting a seeded system role.
	ErrSystemRole = errors.New("system roles cannot be deleted")
)

// Authentication errors.
var (
	// ErrNoIDToken is returned when the OAuth2 token response doesn't contain an ID token.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrUserNameOrEmailExists is returned when attempting to create a user with a username or email that already exists.
	ErrUserNameOrEmailExists = errors.New("user with username or email already exists")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database or directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrMultipleUsersFound is returned when a directory query expected one user but found multiple.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrInvalidOTP is returned for a wrong or missing second factor code.
	ErrInvalidOTP = errors.New("invalid one-time password")

	// ErrOTPNotEnrolled is returned when confirming TOTP before enrolment.
	ErrOTPNotEnrolled = errors.New("totp is not enrolled")

	// ErrInvalidToken is returned for bearer tokens that fail validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for bearer tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokensDisabled is returned when bearer tokens are disabled via configuration.
	ErrTokensDisabled = errors.New("bearer tokens are disabled")
)
