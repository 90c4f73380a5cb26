// Package bot wires the gallery coordinator into the Telegram runtime.
package bot

import (
	"context"
	"fmt"

	"github.com/m3rciful/gallerybot/app/codes"
	appconfig "github.com/m3rciful/gallerybot/app/config"
	"github.com/m3rciful/gallerybot/app/dialog"
	"github.com/m3rciful/gallerybot/app/gallery"
	"github.com/m3rciful/gallerybot/app/gateway"
	"github.com/m3rciful/gallerybot/core/bootstrap"
	corecmd "github.com/m3rciful/gallerybot/core/cmd"
	coreconfig "github.com/m3rciful/gallerybot/core/config"
	"github.com/m3rciful/gallerybot/core/metrics"
	tg "github.com/m3rciful/gallerybot/core/telegram"
	"github.com/m3rciful/gallerybot/core/telegram/router"
	"github.com/m3rciful/gallerybot/core/telegram/state"

	"golang.org/x/sync/errgroup"
)

// App is the gallery bot ready to be run by core/cmd.
type App struct {
	cfg   *appconfig.Config
	infra *bootstrap.Result
	gw    *gateway.Telegram
	coord *gallery.Coordinator

	stopMetrics context.CancelFunc
	background  *errgroup.Group
}

// Bootstrap initializes logging and the configured store, then builds the App.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*appconfig.Config)
	if !ok {
		return nil, fmt.Errorf("bot: unexpected config type %T", carrier)
	}
	infra, err := bootstrap.Run(bootstrap.Options{Config: cfg.CoreConfig()})
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(cfg.CoreConfig(), infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	app := New(cfg, store)
	app.infra = infra
	return app, nil
}

// OpenStore returns the deletion code store for the bootstrapped backend.
func OpenStore(cfg *coreconfig.Config, infra *bootstrap.Result) (codes.Store, error) {
	switch {
	case infra == nil:
		return nil, fmt.Errorf("bot: no store initialized")
	case infra.Backend == coreconfig.StorePostgres && infra.DB != nil:
		return codes.NewPostgresStore(infra.DB), nil
	case infra.Backend == coreconfig.StoreRedis && infra.Redis != nil:
		return codes.NewRedisStore(infra.Redis, cfg.Store.Redis.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("bot: store backend %q not initialized", infra.Backend)
	}
}

// New builds the App over an already opened store.
func New(cfg *appconfig.Config, store codes.Store) *App {
	gw := gateway.New()
	coord := gallery.New(gw, codes.NewRegistry(store), dialog.New(state.NewMemoryManager()), gallery.Options{
		GroupID:         cfg.Gallery.GroupID,
		ChannelID:       cfg.Gallery.ChannelID,
		AdminID:         cfg.Telegram.AdminID,
		GroupInviteLink: cfg.Gallery.GroupInviteLink,
		GroupTitle:      cfg.Gallery.GroupTitle,
		ChannelTitle:    cfg.Gallery.ChannelTitle,
	})
	return &App{cfg: cfg, gw: gw, coord: coord}
}

// TelegramRunOptions implements core/cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg, err := a.commands()
	if err != nil {
		return tg.RunOptions{}, err
	}
	routes := router.CommandRoutes(reg)
	routes = append(routes, router.ContentRoutes(router.ContentOptions{
		Registry:  reg,
		Handler:   a.onMessage,
		Endpoints: contentEndpoints,
	})...)

	return tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	a.gw.Bind(rt.Bot)

	listen := a.cfg.Metrics.Listen
	if listen == "" {
		return nil
	}
	mctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(mctx)
	g.Go(func() error {
		return metrics.Serve(gctx, listen)
	})
	a.stopMetrics = cancel
	a.background = g
	return nil
}

func (a *App) onStop(context.Context, tg.Runtime) error {
	if a.stopMetrics == nil {
		return nil
	}
	a.stopMetrics()
	if err := a.background.Wait(); err != nil {
		return fmt.Errorf("bot: metrics listener: %w", err)
	}
	return nil
}

// Close releases the store connection.
func (a *App) Close() error {
	return a.infra.Close()
}
