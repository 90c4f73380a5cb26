package router

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/gallerybot/core/logger"
	tg "github.com/m3rciful/gallerybot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// ContentOptions controls how inbound messages are routed.
type ContentOptions struct {
	// Registry resolves slash-prefixed text that telebot did not match to a command
	// (wrong case, unknown bot suffix).
	Registry *tg.Registry
	// Handler receives every other message on the listed endpoints.
	Handler tele.HandlerFunc
	// Endpoints lists the telebot message endpoints to bind, e.g. tele.OnText.
	Endpoints []string
}

// ContentRoutes binds a single handler to each message endpoint.
func ContentRoutes(opts ContentOptions) []tg.Route {
	if opts.Handler == nil || len(opts.Endpoints) == 0 {
		return nil
	}

	routes := make([]tg.Route, 0, len(opts.Endpoints))
	for _, ep := range opts.Endpoints {
		name := endpointHandlerName(ep)
		routes = append(routes, tg.Route{
			Endpoint: ep,
			Handler: func(c tele.Context) error {
				start := time.Now()
				if ep == tele.OnText && opts.Registry != nil && strings.HasPrefix(c.Text(), "/") {
					if cmd, ok := opts.Registry.Lookup(c.Text()); ok {
						return handleWithSummary(c, normalizeHandlerName(cmd.Name), start, func() error {
							return cmd.Handler(c)
						})
					}
				}
				return handleWithSummary(c, name, start, func() error {
					return opts.Handler(c)
				})
			},
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "content"),
		slog.Int("endpoints", len(routes)),
	)

	return routes
}

// endpointHandlerName turns "\ftext" style endpoints into handler names like "on_text".
func endpointHandlerName(ep string) string {
	ep = strings.TrimPrefix(ep, "\a")
	ep = strings.TrimPrefix(ep, "\f")
	if ep == "" {
		return "unknown"
	}
	return "on_" + normalizeHandlerName(ep)
}
