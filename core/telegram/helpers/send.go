package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/gallerybot/core/logger"
	"github.com/m3rciful/gallerybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes SendSteps through d. nil makes sends synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// SendSteps queues steps as one job so they reach the chat in order.
// When the dispatcher retries the job it resumes at the step that failed.
func SendSteps(c tele.Context, action string, steps ...func() error) error {
	if len(steps) == 0 {
		return nil
	}
	next := 0
	run := func() error {
		for ; next < len(steps); next++ {
			if err := steps[next](); err != nil {
				return err
			}
		}
		return nil
	}

	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := UpdateContext(c)
	err := d.Enqueue(ctx, action, "sendMessage", run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			logger.Err(err),
		)
		return run()
	}
	return err
}
