package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/gallerybot/core/config"
	coredatabase "github.com/m3rciful/gallerybot/core/database"
	"github.com/m3rciful/gallerybot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	LoggerInit   func(*coreconfig.Config) error
	Connect      func(coredatabase.Config) (*sqlx.DB, error)
	Migrate      func(coredatabase.Config) error
	ConnectRedis func(coredatabase.RedisConfig) (*redis.Client, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// Exactly one of DB and Redis is set, matching store.backend.
type Result struct {
	Backend string
	DB      *sqlx.DB
	Redis   *redis.Client
}

// Close releases the opened store connection.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}

// Run initializes the logger and opens the configured durable store.
// The postgres backend additionally applies migrations.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	store := opts.Config.Store
	switch store.Backend {
	case coreconfig.StorePostgres:
		return runPostgres(opts, store.Postgres)
	case coreconfig.StoreRedis, "":
		connect := opts.ConnectRedis
		if connect == nil {
			connect = coredatabase.ConnectRedis
		}
		client, err := connect(store.Redis)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: redis initialization failed: %w", err)
		}
		return &Result{Backend: coreconfig.StoreRedis, Redis: client}, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown store backend %q", store.Backend)
	}
}

func runPostgres(opts Options, cfg coredatabase.Config) (*Result, error) {
	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{Backend: coreconfig.StorePostgres, DB: db}, nil
}
