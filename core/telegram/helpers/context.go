// Package helpers carries per-update logging context and ordered sends for handlers.
package helpers

import (
	"context"

	"github.com/m3rciful/gallerybot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const updateCtxKey = "update_ctx"

// Seeded reports whether c already carries an update context.
func Seeded(c tele.Context) bool {
	if c == nil {
		return false
	}
	_, ok := c.Get(updateCtxKey).(context.Context)
	return ok
}

// Seed builds the logging context for the update in c from its update, chat
// and sender ids and caches it on c.
func Seed(c tele.Context) context.Context {
	chatID, userID := ids(c)
	updateID := c.Update().ID
	ctx := logger.WithRID(context.Background(), logger.BuildRID(updateID, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.TG)
	c.Set(updateCtxKey, ctx)
	return ctx
}

// UpdateContext returns the cached update context, seeding it when absent.
// A nil c yields a bare background context.
func UpdateContext(c tele.Context) context.Context {
	if c == nil {
		return logger.WithLogger(context.Background(), logger.TG)
	}
	if ctx, ok := c.Get(updateCtxKey).(context.Context); ok {
		return ctx
	}
	return Seed(c)
}

// ForHandler tags the update context with handler and caches the result.
func ForHandler(c tele.Context, handler string) context.Context {
	ctx := UpdateContext(c)
	if c == nil || handler == "" || logger.HandlerFrom(ctx) == handler {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	c.Set(updateCtxKey, ctx)
	return ctx
}

func ids(c tele.Context) (chatID, userID int64) {
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	return chatID, userID
}
