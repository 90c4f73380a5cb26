package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/gallerybot/core/logger"
	tghelpers "github.com/m3rciful/gallerybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// PanicError is a recovered handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// RecoverMiddleware turns a handler panic into a *PanicError, which telebot
// then reports through OnError like any other handler failure.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			perr := &PanicError{Value: r, Stack: debug.Stack()}
			logger.Error(tghelpers.UpdateContext(c), "tg", "tg.panic",
				slog.String("status", "fail"),
				logger.Err(perr),
				slog.String("stack", string(perr.Stack)),
			)
			err = perr
		}()
		return next(c)
	}
}
