package logger

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned if Log.AppName was not defined.
	ErrAppNameIsEmpty = errors.New("config Log.AppName can not be empty")
	// ErrServiceNameIsEmpty is returned if Log.ServiceName was not defined.
	ErrServiceNameIsEmpty = errors.New("config Log.ServiceName can not be empty")
	// ErrNilRegisterer is returned by NewPrometheusHook without a metrics registry.
	ErrNilRegisterer = errors.New("prometheus registerer is nil")
)

// ErrorHandler reports events zerolog could not write to any writer.
// It must not log through zerolog itself.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "storefront-admin: log event dropped: %v\n", err)
}
