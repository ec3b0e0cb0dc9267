// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config holds the server settings.
type Config struct {
	HTTPAddr string       `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel logrus.Level `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	Postgres    Postgres

	NotifyDriver string `env:"NOTIFY_DRIVER" envDefault:"memory"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	TokenExpire    string `env:"TOKEN_EXPIRE_TIME" envDefault:"72h"`
	PrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	PublicKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`
}

// Postgres holds the discrete connection settings used when DATABASE_URL is unset.
type Postgres struct {
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     string `env:"PG_PORT" envDefault:"5432"`
	Database string `env:"PG_DATABASE"`
}

// Watch holds the settings of the room watch CLI.
type Watch struct {
	ServerURL      string        `env:"LUDO_SERVER_URL" envDefault:"http://localhost:8080"`
	Token          string        `env:"LUDO_TOKEN"`
	LogLevel       logrus.Level  `env:"LOG_LEVEL" envDefault:"info"`
	SessionTimeout time.Duration `env:"WATCH_SESSION_TIMEOUT" envDefault:"10s"`
	ReadTimeout    time.Duration `env:"WATCH_READ_TIMEOUT" envDefault:"5s"`
	MaxFailures    int           `env:"WATCH_MAX_FAILURES" envDefault:"5"`
	InitialBackoff time.Duration `env:"WATCH_INITIAL_BACKOFF" envDefault:"250ms"`
	MaxBackoff     time.Duration `env:"WATCH_MAX_BACKOFF" envDefault:"5s"`
	StableAfter    time.Duration `env:"WATCH_STABLE_AFTER" envDefault:"10s"`
}

// Load parses the server settings.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWatch parses the CLI settings.
func LoadWatch() (*Watch, error) {
	cfg, err := env.ParseAs[Watch]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.NotifyDriver {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown NOTIFY_DRIVER %q", c.NotifyDriver)
	}
	if c.StoreDriver == "postgres" && c.DatabaseURL == "" && c.Postgres.Database == "" {
		return errors.New("DATABASE_URL or PG_DATABASE is required for the postgres store")
	}
	if c.ReconcileInterval <= 0 {
		return errors.New("RECONCILE_INTERVAL must be positive")
	}
	return nil
}

// DSN returns DATABASE_URL, or a URL assembled from the discrete settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:   net.JoinHostPort(c.Postgres.Host, c.Postgres.Port),
		Path:   "/" + c.Postgres.Database,
	}
	return u.String()
}
