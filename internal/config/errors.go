package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")
	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")
	// ErrUnknownGormEngine error if db.gormengine is not supported.
	ErrUnknownGormEngine = errors.New("toml config db.gormengine must be mysql, postgres or sqlite")
	// ErrUnknownSessionStorage error if session.storage is not supported.
	ErrUnknownSessionStorage = errors.New("toml config session.storage must be memory, mysql, postgres or redis")
	// ErrEmptyTokenSecret error if bearer tokens are enabled without a signing secret.
	ErrEmptyTokenSecret = errors.New("toml config auth.token.secret can not be empty when tokens are enabled")
)
