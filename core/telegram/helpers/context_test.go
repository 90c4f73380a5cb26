package helpers

import (
	"testing"

	"github.com/m3rciful/gallerybot/core/logger"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type updateStub struct {
	tele.Context
	upd   tele.Update
	store map[string]interface{}
}

func newUpdateStub(updateID int, chatID, userID int64) *updateStub {
	msg := &tele.Message{Chat: &tele.Chat{ID: chatID, Type: tele.ChatPrivate}, Sender: &tele.User{ID: userID}}
	return &updateStub{upd: tele.Update{ID: updateID, Message: msg}, store: map[string]interface{}{}}
}

func (s *updateStub) Update() tele.Update             { return s.upd }
func (s *updateStub) Chat() *tele.Chat                { return s.upd.Message.Chat }
func (s *updateStub) Sender() *tele.User              { return s.upd.Message.Sender }
func (s *updateStub) Get(key string) interface{}      { return s.store[key] }
func (s *updateStub) Set(key string, val interface{}) { s.store[key] = val }

func TestUpdateContextSeedsOnce(t *testing.T) {
	c := newUpdateStub(10, -5, 7)
	require.False(t, Seeded(c))

	ctx := UpdateContext(c)
	require.True(t, Seeded(c))
	meta := logger.MetaFrom(ctx)
	require.Equal(t, logger.BuildRID(10, -5, 7), meta.RID)
	require.Equal(t, 10, meta.UpdateID)
	require.EqualValues(t, -5, meta.ChatID)
	require.EqualValues(t, 7, meta.UserID)

	require.Equal(t, ctx, UpdateContext(c))
}

func TestForHandlerCachesTaggedContext(t *testing.T) {
	c := newUpdateStub(1, 2, 3)
	ctx := ForHandler(c, "start")
	require.Equal(t, "start", logger.HandlerFrom(ctx))
	require.Equal(t, "start", logger.HandlerFrom(UpdateContext(c)))
	require.Equal(t, ctx, ForHandler(c, "start"))
	require.Equal(t, ctx, ForHandler(c, ""))
}

func TestUpdateContextWithoutTelegramContext(t *testing.T) {
	require.Equal(t, logger.UpdateMeta{}, logger.MetaFrom(UpdateContext(nil)))
	require.False(t, Seeded(nil))
}
