// Package codes maps deletion codes to published channel messages.
package codes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/gallerybot/core/logger"
)

var (
	// ErrNotFound means no record exists for the code.
	ErrNotFound = errors.New("codes: not found")
	// ErrUnavailable wraps store failures; the record may or may not exist.
	ErrUnavailable = errors.New("codes: store unavailable")
	// ErrCollision is returned when every generated code was already taken.
	ErrCollision = errors.New("codes: could not allocate a unique code")
)

const issueAttempts = 3

// Registry issues, resolves and revokes deletion codes.
type Registry struct {
	store   Store
	newCode func() (Code, error)
}

// NewRegistry returns a Registry over store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, newCode: NewCode}
}

// Issue records messageID under a fresh code.
func (r *Registry) Issue(ctx context.Context, messageID int) (Code, error) {
	value := strconv.Itoa(messageID)
	for attempt := 1; attempt <= issueAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return "", err
		}
		stored, err := r.store.SetNX(ctx, string(code), value)
		if err != nil {
			logger.Error(ctx, "codes", "issue",
				slog.String("status", "fail"),
				slog.Int("message_id", messageID),
				logger.Err(err),
			)
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if stored {
			logger.Debug(ctx, "codes", "issue",
				slog.String("status", "ok"),
				slog.Int("message_id", messageID),
				slog.String("code", code.String()),
				slog.Int("attempt", attempt),
			)
			return code, nil
		}
		logger.Warn(ctx, "codes", "issue",
			slog.String("status", "retry"),
			slog.Int("attempt", attempt),
		)
	}
	return "", ErrCollision
}

// Resolve returns the message id recorded for code.
func (r *Registry) Resolve(ctx context.Context, code Code) (int, error) {
	val, err := r.store.Get(ctx, string(code))
	if errors.Is(err, ErrMissing) {
		return 0, ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "codes", "resolve",
			slog.String("status", "fail"),
			slog.String("code", code.String()),
			logger.Err(err),
		)
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	id, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt message id %q", ErrUnavailable, val)
	}
	return id, nil
}

// Revoke removes the record for code. Revoking an absent code is not an error.
func (r *Registry) Revoke(ctx context.Context, code Code) error {
	if err := r.store.Delete(ctx, string(code)); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}
