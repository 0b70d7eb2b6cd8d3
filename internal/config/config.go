// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvJSONOverride holds a full JSON document merged over the file config.
	EnvJSONOverride = "GO_STOREFRONT_ADMIN_CONFIG_JSON"
	// EnvPrefix prefixes single value overrides, e.g. GOSTOREFRONT_DB_PASSWORD.
	EnvPrefix = "GOSTOREFRONT"

	defaultShutDownTime      = 5
	defaultSessionExpiryTime = 12 * time.Hour
	defaultSessionCookieName = "session"
	defaultSessionTable      = "sessions"
	defaultTokenTTL          = time.Hour
	defaultOIDCStateTTL      = 5 * time.Minute
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(path + "main.toml")
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvJSONOverride)
	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer

	t := toml.NewEncoder(&buffer)
	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer

	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the daemon can not start without and fills defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineSQLite
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrap(ErrUnknownGormEngine, invalidErrMessage)
	}

	switch c.Session.Storage {
	case "":
		c.Session.Storage = "memory"
	case "memory", "mysql", "postgres", "redis":
	default:
		return errors.Wrap(ErrUnknownSessionStorage, invalidErrMessage)
	}

	if c.Auth.Token.Enabled && c.Auth.Token.Secret == "" {
		return errors.Wrap(ErrEmptyTokenSecret, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Session.ExpiryTime == 0 {
		c.Session.ExpiryTime = defaultSessionExpiryTime
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = defaultSessionCookieName
	}

	if c.Session.Table == "" {
		c.Session.Table = defaultSessionTable
	}

	if c.Auth.Token.TTL == 0 {
		c.Auth.Token.TTL = defaultTokenTTL
	}

	if c.Auth.OIDC.StateTTL == 0 {
		c.Auth.OIDC.StateTTL = defaultOIDCStateTTL
	}

	return nil
}
