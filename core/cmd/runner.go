// Package cmd runs a Telegram app: config, bootstrap, signal handling and shutdown.
package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/gallerybot/core/config"
	"github.com/m3rciful/gallerybot/core/logger"
	coretelegram "github.com/m3rciful/gallerybot/core/telegram"
)

const defaultConfigEnvVar = "CONFIG_PATH"

// ConfigCarrier is an app config that embeds the core one.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp supplies the bot wiring. Apps that also implement io.Closer
// are closed after the bot stops.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options plug the app into Run. LoadConfig and Bootstrap are required.
type Options struct {
	// ConfigPath wins over ConfigEnvVar and DefaultConfigPath, e.g. from a CLI flag.
	ConfigPath        string
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	// Test hooks; nil selects logger.Shutdown and coretelegram.RunTelegram.
	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// ResolveConfigPath returns ConfigPath, else the env var, else DefaultConfigPath.
func ResolveConfigPath(opts Options) (string, error) {
	env := cmp.Or(opts.ConfigEnvVar, defaultConfigEnvVar)
	if p := cmp.Or(opts.ConfigPath, os.Getenv(env), opts.DefaultConfigPath); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("cmd: no config path: set %s or pass one explicitly", env)
}

// Run bootstraps the app and serves updates until ctx is done or the process
// gets SIGINT or SIGTERM.
func Run(ctx context.Context, opts Options) (err error) {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdownLogger, run := opts.ShutdownLogger, opts.RunTelegram
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	if run == nil {
		run = coretelegram.RunTelegram
	}

	app, err := load(opts)
	if err != nil {
		return err
	}
	defer func() {
		if serr := shutdownLogger(); serr != nil {
			fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", serr)
		}
	}()
	if closer, ok := app.(io.Closer); ok {
		defer func() {
			if cerr := closer.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("cmd: app close: %w", cerr))
			}
		}()
	}

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	announceLifecycle(&runOpts, time.Now())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, runOpts)
}

func load(opts Options) (TelegramApp, error) {
	path, err := ResolveConfigPath(opts)
	if err != nil {
		return nil, err
	}
	slog.Info("loading config", slog.String("path", path))
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return nil, errors.New("cmd: loaded config is missing core configuration")
	}
	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return nil, fmt.Errorf("cmd: bootstrap: %w", err)
	}
	return app, nil
}

// announceLifecycle logs ready after the app's OnStart and shutdown before its OnStop.
func announceLifecycle(opts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := opts.OnStart, opts.OnStop
	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready", slog.Duration("startup_duration", time.Since(startedAt)))
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}
