package database

import (
	"fmt"

	coreconfig "github.com/m3rciful/gallerybot/core/config"
)

// Config holds PostgreSQL connection settings.
type Config = coreconfig.PostgresConfig

// RedisConfig holds Redis connection settings.
type RedisConfig = coreconfig.RedisConfig

// DSN renders the lib/pq keyword/value connection string.
func DSN(cfg Config) string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)
}

// URL renders the postgres:// form expected by golang-migrate.
func URL(cfg Config) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)
}
