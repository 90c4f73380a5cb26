package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/gallerybot/core/config"
	"github.com/m3rciful/gallerybot/core/logger"
	tghelpers "github.com/m3rciful/gallerybot/core/telegram/helpers"
	tgsender "github.com/m3rciful/gallerybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// DispatcherOptionsFrom maps the sender config section onto dispatcher options.
func DispatcherOptionsFrom(cfg coreconfig.SenderConfig) tgsender.Options {
	return tgsender.Options{
		QueueSize:    cfg.QueueSize,
		Workers:      cfg.Workers,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
	}
}

// RunTelegram builds the bot from opts and serves updates until ctx is done.
// A cancelled ctx is a clean shutdown and yields nil.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	cfg := opts.Config

	poller := NewPoller(cfg.Telegram, cfg.Webhook)
	longPoll := LongPollTimeout(cfg.Telegram)

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(longPoll),
		OnError: logHandlerError,
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(ctx, poller, longPoll, time.Since(start))

	if _, polling := poller.(*tele.LongPoller); polling && !opts.DisableWebhookCleanup {
		removeWebhook(ctx, bot)
	}

	rt := Runtime{Bot: bot, Registry: opts.Registry, Dispatcher: opts.Dispatcher}
	if rt.Dispatcher == nil {
		dOpts := opts.DispatcherOptions
		if dOpts == (tgsender.Options{}) {
			dOpts = DispatcherOptionsFrom(cfg.Sender)
		}
		rt.Dispatcher = tgsender.NewDispatcher(dOpts)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(rt.Dispatcher)
	}
	release := func() {
		rt.Dispatcher.Close()
		if !opts.DisableHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	wire(bot, opts)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	runErr := serve(ctx, bot)

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	release()

	if stopErr != nil {
		return stopErr
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// wire installs middlewares, routes and the command menu.
func wire(bot *tele.Bot, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	PublishMenu(bot, opts.Registry)
}

// serve runs the poller until it stops by itself or ctx is done.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func logMode(ctx context.Context, poller tele.Poller, longPoll time.Duration, took time.Duration) {
	if wh, ok := poller.(*tele.Webhook); ok {
		logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
			slog.Duration("duration", took),
		)
		return
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "polling mode",
		slog.String("event", "mode"),
		slog.String("mode", "polling"),
		slog.Duration("timeout", longPoll),
		slog.Duration("duration", took),
	)
}

// removeWebhook clears a webhook left by a previous deployment, which would
// otherwise make getUpdates fail with a conflict.
func removeWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelWarn, "failed to delete webhook",
			slog.String("event", "delete_webhook"),
			slog.String("status", "fail"),
			logger.Err(err),
		)
		return
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "webhook deleted",
		slog.String("event", "delete_webhook"),
		slog.String("status", "ok"),
	)
}

func logHandlerError(err error, c tele.Context) {
	if err == nil {
		return
	}
	logger.Error(tghelpers.UpdateContext(c), "tg", "handler.error",
		slog.String("status", "fail"),
		logger.Err(err),
	)
}
