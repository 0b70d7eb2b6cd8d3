package daemon

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/gofiber/storage/redis/v3"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/config"
	"github.com/GoStorefront-Admin/GoStorefront-Admin/internal/db/dsn"
)

var (
	// ErrStorageEngineMismatch is returned when a sql session storage differs from the database engine.
	ErrStorageEngineMismatch = errors.New("session storage must use the database engine")
	// ErrEmptyRedisURL is returned for the redis storage without url.
	ErrEmptyRedisURL = errors.New("session storage redis needs Session.RedisURL")
)

// NewSessionStorage creates the fiber storage backing login sessions and OIDC state.
// The sql storages share the database connection settings.
func NewSessionStorage(cfg *config.Config) (fiber.Storage, error) {
	switch cfg.Session.Storage {
	case "mysql":
		if cfg.DB.GormEngine != config.EngineMySQL {
			return nil, fmt.Errorf("%w: %s", ErrStorageEngineMismatch, cfg.DB.GormEngine)
		}

		return mysql.New(mysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         cfg.Session.Table,
		}), nil
	case "postgres":
		if cfg.DB.GormEngine != config.EnginePostgres {
			return nil, fmt.Errorf("%w: %s", ErrStorageEngineMismatch, cfg.DB.GormEngine)
		}

		return postgres.New(postgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         cfg.Session.Table,
		}), nil
	case "redis":
		if cfg.Session.RedisURL == "" {
			return nil, ErrEmptyRedisURL
		}

		return redis.New(redis.Config{URL: cfg.Session.RedisURL}), nil
	default:
		return memory.New(), nil
	}
}
