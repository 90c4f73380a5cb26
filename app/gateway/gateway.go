// Package gateway implements the gallery gateway on top of the Telegram Bot API.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/m3rciful/gallerybot/app/gallery"
	"github.com/m3rciful/gallerybot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned when a call is made before Bind.
var ErrNotBound = errors.New("gateway: bot not bound")

// Telegram talks to the Bot API through a telebot instance.
// The bot is bound once the runtime has built it.
type Telegram struct {
	bot atomic.Pointer[tele.Bot]
}

var _ gallery.Gateway = (*Telegram)(nil)

// New returns an unbound gateway.
func New() *Telegram {
	return &Telegram{}
}

// Bind attaches the bot used for API calls.
func (t *Telegram) Bind(b *tele.Bot) {
	t.bot.Store(b)
}

func (t *Telegram) api(ctx context.Context) (*tele.Bot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := t.bot.Load()
	if b == nil {
		return nil, ErrNotBound
	}
	return b, nil
}

// Membership implements gallery.Gateway. Users who left or were banned are not
// members; a restricted user counts only while is_member is set.
func (t *Telegram) Membership(ctx context.Context, groupID, userID int64) (bool, error) {
	b, err := t.api(ctx)
	if err != nil {
		return false, err
	}
	start := time.Now()
	m, err := b.ChatMemberOf(&tele.Chat{ID: groupID}, &tele.User{ID: userID})
	logCall(ctx, "getChatMember", start, err)
	if err != nil {
		return false, err
	}
	switch m.Role {
	case tele.Left, tele.Kicked:
		return false, nil
	case tele.Restricted:
		return m.Member, nil
	default:
		return true, nil
	}
}

// SendPhoto implements gallery.Gateway.
func (t *Telegram) SendPhoto(ctx context.Context, chatID int64, photoRef, caption string) (int, error) {
	b, err := t.api(ctx)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	photo := &tele.Photo{File: tele.File{FileID: photoRef}, Caption: caption}
	msg, err := b.Send(&tele.Chat{ID: chatID}, photo, &tele.SendOptions{ParseMode: tele.ModeHTML})
	logCall(ctx, "sendPhoto", start, err)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// DeleteMessage implements gallery.Gateway.
func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	b, err := t.api(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	err = b.Delete(&tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID})
	logCall(ctx, "deleteMessage", start, err)
	return err
}

// ChatInfo implements gallery.Gateway.
func (t *Telegram) ChatInfo(ctx context.Context, chatID int64) (gallery.ChatInfo, error) {
	b, err := t.api(ctx)
	if err != nil {
		return gallery.ChatInfo{}, err
	}
	start := time.Now()
	chat, err := b.ChatByID(chatID)
	logCall(ctx, "getChat", start, err)
	if err != nil {
		return gallery.ChatInfo{}, err
	}
	return gallery.ChatInfo{Title: chat.Title, Username: chat.Username}, nil
}

// SendText implements gallery.Gateway.
func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) error {
	b, err := t.api(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = b.Send(&tele.Chat{ID: chatID}, text)
	logCall(ctx, "sendMessage", start, err)
	return err
}

func logCall(ctx context.Context, endpoint string, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("endpoint", endpoint),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "fail"),
			logger.Err(err),
		)
		logger.Warn(ctx, "tg", "api.call", attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "ok"))
	logger.Debug(ctx, "tg", "api.call", attrs...)
}
