package middleware

import (
	"strconv"

	"github.com/m3rciful/gallerybot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

// replyContext counts replies that Telegram accepted. Sends may run later on
// the dispatcher, so the count is kept in Prometheus rather than on the update.
type replyContext struct{ tele.Context }

// Send proxies tele.Context.Send.
func (r replyContext) Send(what interface{}, opts ...interface{}) error {
	err := r.Context.Send(what, opts...)
	if err == nil {
		metrics.IncReply(replyKind(what), strconv.FormatBool(hasKeyboard(opts)))
	}
	return err
}

// Reply proxies tele.Context.Reply.
func (r replyContext) Reply(what interface{}, opts ...interface{}) error {
	err := r.Context.Reply(what, opts...)
	if err == nil {
		metrics.IncReply(replyKind(what), strconv.FormatBool(hasKeyboard(opts)))
	}
	return err
}

// ReplyMetricsMiddleware instruments the context so successful replies are counted.
func ReplyMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return next(replyContext{Context: c})
	}
}

func replyKind(what interface{}) string {
	switch what.(type) {
	case string:
		return "text"
	case *tele.Photo:
		return "photo"
	default:
		return "other"
	}
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}
