package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/gallerybot/core/logger"
)

const previewFiles = 6

// migrationFile is one *.up.sql file and the version encoded in its prefix.
type migrationFile struct {
	name    string
	version uint64
}

// RunMigrations brings the deletion-code schema up to date from cfg.MigrationsDir.
func RunMigrations(cfg Config) error {
	if err := awaitPostgres(cfg); err != nil {
		logger.MIG.Error("postgres unreachable", slog.String("event", "db.migrate"), logger.Err(err))
		return fmt.Errorf("migrate: postgres not ready: %w", err)
	}

	dir, err := resolveMigrationsDir(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("migrate: resolve dir: %w", err)
	}
	files := scanMigrations(dir)
	logger.MIG.Debug("migrations found", withPreview([]any{
		slog.String("event", "resolve"),
		slog.String("path", dir),
	}, fileNames(files))...)

	m, err := migrate.New("file://"+dir, URL(cfg))
	if err != nil {
		logger.MIG.Error("migrator init failed", slog.String("event", "db.migrate"), logger.Err(err))
		return fmt.Errorf("migrate: init: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	from := currentVersion(m)
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.MIG.Error("migration failed",
			slog.String("event", "apply"),
			slog.Uint64("from_ver", from),
			logger.Err(err),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("migrate: up: %w", err)
	}
	to := currentVersion(m)

	applied := appliedBetween(files, from, to)
	if len(applied) > 0 {
		logger.MIG.Debug("migrations applied", withPreview([]any{slog.String("event", "apply")}, applied)...)
	}
	logger.MIG.Info("schema ready",
		slog.String("event", "summary"),
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", len(applied)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// awaitPostgres pings the server the migrator is about to use.
func awaitPostgres(cfg Config) error {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = waitReady(db.PingContext, readyWait, readyInterval)
	return err
}

// currentVersion treats a fresh database as version zero.
func currentVersion(m *migrate.Migrate) uint64 {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return uint64(v)
}

func resolveMigrationsDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "migrations"
	}
	return filepath.Abs(dir)
}

// scanMigrations lists up migrations in dir ordered by name. An unreadable dir yields none.
func scanMigrations(dir string) []migrationFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		files = append(files, migrationFile{name: e.Name(), version: parseVersion(e.Name())})
	}
	slices.SortFunc(files, func(a, b migrationFile) int { return strings.Compare(a.name, b.name) })
	return files
}

// parseVersion reads the numeric prefix before the first underscore; 0 when absent.
func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// appliedBetween names the files with from < version <= to.
func appliedBetween(files []migrationFile, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if f.version > from && f.version <= to {
			out = append(out, f.name)
		}
	}
	return out
}

func fileNames(files []migrationFile) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names
}

func withPreview(attrs []any, names []string) []any {
	attrs = append(attrs, slog.Int("files_total", len(names)))
	preview, truncated := logger.SummarizeStrings(names, previewFiles)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}
