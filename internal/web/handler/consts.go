package handler

import (
	"errors"
	"time"
)

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// RouterRootPath is the root of a route group.
	RouterRootPath = ""

	// AdminPath prefixes every admin route.
	AdminPath = RootPath + "admin"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25

	// MaxPageSize caps the page size a client can ask for.
	MaxPageSize = 100

	rateLimitWindow = time.Minute
)

var (
	// ErrNilDeps is returned by Init when app or a required dependency is nil.
	ErrNilDeps = errors.New("app or handler dependencies are nil")
	// ErrBadRequest is returned for bodies or parameters that can not be parsed.
	ErrBadRequest = errors.New("bad request")
)
