// Package logger provides the structured slog setup shared by the bot: one
// line per event, a fixed key order, update correlation ids taken from the
// context and an optional second sink for warnings and errors.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/gallerybot/core/buildinfo"
	coreconfig "github.com/m3rciful/gallerybot/core/config"
)

var discard = slog.New(slog.DiscardHandler)

// Loggers are usable before InitLogger and discard everything until then.
var (
	// L is the root logger.
	L = discard
	// DB logs PostgreSQL store events.
	DB = discard
	// RDS logs Redis store events.
	RDS = discard
	// TG logs Telegram transport events.
	TG = discard
	// MIG logs schema migrations.
	MIG = discard
	// TWire logs Telegram wiring steps.
	TWire = discard
)

var (
	levelVar     slog.LevelVar
	debugSampler = newRatioSampler(1, 50)
	traceAll     bool

	lifecycle struct {
		sync.Mutex
		started bool
		stopped bool
		writers []*asyncWriter
		files   []io.Closer
	}
)

// settings is the resolved form of coreconfig.LoggingConfig.
type settings struct {
	format   logFormat
	order    []string
	level    slog.Level
	sample   [2]int
	profile  string
	dir      string
	botFile  string
	errsFile string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{
		format:  formatJSON,
		order:   defaultKeyOrder,
		level:   slog.LevelInfo,
		sample:  [2]int{1, 50},
		profile: "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		num, den := parseRatioSpec(spec)
		s.sample = [2]int{num, den}
	}

	s.dir = strings.TrimSpace(lc.Dir)
	s.botFile = strings.TrimSpace(lc.BotFile)
	s.errsFile = strings.TrimSpace(lc.ErrorsFile)
	return s
}

// InitLogger installs the process logger. Calls after the first are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	lifecycle.Lock()
	defer lifecycle.Unlock()
	if lifecycle.started {
		return nil
	}

	s := resolve(cfg)
	mainOut := []io.Writer{os.Stdout}
	var errOut []io.Writer
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("logger: create %s: %w", s.dir, err)
		}
		for _, sink := range []struct {
			name string
			dst  *[]io.Writer
		}{{s.botFile, &mainOut}, {s.errsFile, &errOut}} {
			if sink.name == "" {
				continue
			}
			f, err := os.OpenFile(filepath.Join(s.dir, sink.name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				closeAll(lifecycle.files)
				lifecycle.files = nil
				return fmt.Errorf("logger: open %s: %w", sink.name, err)
			}
			*sink.dst = append(*sink.dst, f)
			lifecycle.files = append(lifecycle.files, f)
		}
	}

	levelVar.Set(s.level)
	debugSampler.Set(s.sample[0], s.sample[1])
	traceAll = envFlag("TRACE") || envFlag("LOG_TRACE")

	mainW := newAsyncWriter(mainOut, 64*1024)
	lifecycle.writers = append(lifecycle.writers, mainW)
	var h slog.Handler = newLineHandler(handlerConfig{level: &levelVar, writer: mainW, format: s.format, keyOrder: s.order})
	if len(errOut) > 0 {
		errW := newAsyncWriter(errOut, 16*1024)
		lifecycle.writers = append(lifecycle.writers, errW)
		h = fanoutHandler{h, newLineHandler(handlerConfig{level: slog.LevelWarn, writer: errW, format: s.format, keyOrder: s.order})}
	}

	L = slog.New(h)
	slog.SetDefault(L)
	DB = Component("store.postgres")
	RDS = Component("store.redis")
	TG = Component("tg")
	MIG = Component("store.migrate")
	TWire = Component("tg.wire")
	lifecycle.started = true

	L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
		slog.String("component", "app"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("instance", buildinfo.Instance()),
		slog.String("cfg_profile", s.profile),
	)
	return nil
}

// Shutdown drains buffered lines and closes log files. It is safe to call more than once.
func Shutdown() error {
	lifecycle.Lock()
	defer lifecycle.Unlock()
	if lifecycle.stopped {
		return nil
	}
	lifecycle.stopped = true

	var errs []error
	for _, w := range lifecycle.writers {
		errs = append(errs, w.Close())
	}
	errs = append(errs, closeAll(lifecycle.files))
	return errors.Join(errs...)
}

func closeAll(cs []io.Closer) error {
	var errs []error
	for _, c := range cs {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Background is context.Background, kept for call sites that build update contexts.
func Background() context.Context {
	return context.Background()
}

// Component returns L scoped to name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes event with attrs through logg, or the logger carried by ctx when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

func emit(ctx context.Context, component string, level slog.Level, event string, attrs []slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

// Debug logs a debug event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelDebug, event, attrs)
}

// Info logs an info event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelInfo, event, attrs)
}

// Warn logs a warning event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelWarn, event, attrs)
}

// Error logs an error event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, component, slog.LevelError, event, attrs)
}

// ShouldSampleDebug reports whether a high-volume debug line should be written.
// TRACE=1 or LOG_TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}
