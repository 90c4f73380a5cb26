package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/gallerybot/core/config"
	coretelegram "github.com/m3rciful/gallerybot/core/telegram"

	"github.com/stretchr/testify/require"
)

type stubConfig struct{ core *coreconfig.Config }

func (s stubConfig) CoreConfig() *coreconfig.Config { return s.core }

type stubApp struct {
	closed bool
}

func (a *stubApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *stubApp) Close() error {
	a.closed = true
	return errors.New("close failed")
}

func TestResolveConfigPathPrecedence(t *testing.T) {
	t.Setenv("GALLERY_CONFIG", "/etc/env.yaml")

	p, err := ResolveConfigPath(Options{ConfigPath: "flag.yaml", ConfigEnvVar: "GALLERY_CONFIG"})
	require.NoError(t, err)
	require.Equal(t, "flag.yaml", p)

	p, err = ResolveConfigPath(Options{ConfigEnvVar: "GALLERY_CONFIG", DefaultConfigPath: "config.yaml"})
	require.NoError(t, err)
	require.Equal(t, "/etc/env.yaml", p)

	p, err = ResolveConfigPath(Options{ConfigEnvVar: "UNSET_GALLERY_CONFIG", DefaultConfigPath: "config.yaml"})
	require.NoError(t, err)
	require.Equal(t, "config.yaml", p)

	_, err = ResolveConfigPath(Options{ConfigEnvVar: "UNSET_GALLERY_CONFIG"})
	require.Error(t, err)
}

func TestRunWiresLifecycleAndClosesApp(t *testing.T) {
	app := &stubApp{}
	var started, stopped bool
	err := Run(context.Background(), Options{
		ConfigPath: "unused.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return stubConfig{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NotNil(t, opts.OnStart)
			require.NotNil(t, opts.OnStop)
			started = opts.OnStart(ctx, coretelegram.Runtime{}) == nil
			stopped = opts.OnStop(ctx, coretelegram.Runtime{}) == nil
			return nil
		},
	})
	require.ErrorContains(t, err, "close failed")
	require.True(t, started)
	require.True(t, stopped)
	require.True(t, app.closed)
}

func TestRunRejectsMissingCoreConfig(t *testing.T) {
	err := Run(context.Background(), Options{
		ConfigPath: "unused.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) { return stubConfig{}, nil },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return &stubApp{}, nil },
	})
	require.ErrorContains(t, err, "missing core configuration")
}
