package router

import (
	"log/slog"
	"time"

	"github.com/m3rciful/gallerybot/core/logger"
	tg "github.com/m3rciful/gallerybot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command and its aliases, each wrapped
// with a summary line named after the canonical command.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	cmds := reg.All()
	if len(cmds) == 0 {
		return nil
	}

	var routes []tg.Route
	for _, cmd := range cmds {
		handler := summarized(normalizeHandlerName(cmd.Name), cmd.Handler)
		routes = append(routes, tg.Route{Endpoint: cmd.Name, Handler: handler})
		for _, alias := range cmd.Aliases {
			routes = append(routes, tg.Route{Endpoint: "/" + normalizeHandlerName(alias), Handler: handler})
		}
	}

	logger.TWire.Info("routes bound",
		slog.String("event", "commands"),
		slog.Int("commands", len(cmds)),
		slog.Int("endpoints", len(routes)),
	)
	return routes
}

func summarized(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return handleWithSummary(c, name, time.Now(), func() error { return h(c) })
	}
}
