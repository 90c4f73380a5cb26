package middleware

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/gallerybot/core/logger"
	tghelpers "github.com/m3rciful/gallerybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware seeds the update context and writes one sampled
// update.received line. An update that passes the middleware twice is
// logged once.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if tghelpers.Seeded(c) {
			return next(c)
		}
		ctx := tghelpers.Seed(c)
		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}
	if msg := c.Update().Message; msg != nil {
		attrs = append(attrs, slog.String("content", messageKind(msg)), payloadAttr(msg))
	}
	return attrs
}

// messageKind names the payload type of a message for receipt logs.
func messageKind(m *tele.Message) string {
	switch {
	case m.Photo != nil:
		return "photo"
	case m.Text != "":
		return "text"
	case m.Document != nil:
		return "document"
	case m.Animation != nil:
		return "animation"
	case m.Sticker != nil:
		return "sticker"
	case m.Video != nil:
		return "video"
	case m.VideoNote != nil:
		return "video_note"
	case m.Voice != nil:
		return "voice"
	case m.Audio != nil:
		return "audio"
	default:
		return "other"
	}
}

// payloadAttr logs commands verbatim. Other text can be a caption or a
// deletion code, so only its length is kept.
func payloadAttr(m *tele.Message) slog.Attr {
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		return slog.String("payload", logger.SanitizeLimit(cmd, 64))
	}
	return slog.Int("payload_len", utf8.RuneCountInString(text))
}
