package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/gallerybot/core/logger"
	"github.com/m3rciful/gallerybot/core/metrics"
	tghelpers "github.com/m3rciful/gallerybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Context keys a handler may set to refine its summary line.
const (
	StatusKey  = "handler_status"
	OutcomeKey = "handler_outcome"
)

// SetOutcome overrides the status and outcome of the summary line. Empty values keep the default.
func SetOutcome(c tele.Context, status, outcome string) {
	if c == nil {
		return
	}
	for key, val := range map[string]string{StatusKey: status, OutcomeKey: outcome} {
		if val != "" {
			c.Set(key, val)
		}
	}
}

// handleWithSummary runs fn and writes one handler.handled line with its
// result and latency.
func handleWithSummary(c tele.Context, name string, start time.Time, fn func() error) error {
	ctx := tghelpers.ForHandler(c, name)
	err := fn()
	elapsed := time.Since(start)

	result := logger.Status(err)
	status := override(c, StatusKey, result)
	metrics.ObserveHandler(name, status, elapsed)

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.String("outcome", override(c, OutcomeKey, result)),
		slog.Duration("duration", elapsed),
	}
	if err != nil {
		attrs = append(attrs, logger.Err(err), slog.String("err_code", deriveErrorCode(err)))
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "handler.handled", attrs...)
	return err
}

func override(c tele.Context, key, fallback string) string {
	if v, _ := c.Get(key).(string); v != "" {
		return v
	}
	return fallback
}

// normalizeHandlerName turns "/Start" or "Delete Photo" into "start" and "delete_photo".
func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// deriveErrorCode prefers an error's own Code and falls back to its type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coder interface{ Code() string }
	if errors.As(err, &coder) {
		if code := strings.TrimSpace(coder.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	typ := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(typ, '.'); i >= 0 {
		typ = typ[i+1:]
	}
	return strings.ToUpper(typ)
}
