package bot

import (
	"github.com/m3rciful/gallerybot/app/gallery"
	tg "github.com/m3rciful/gallerybot/core/telegram"
	tghelpers "github.com/m3rciful/gallerybot/core/telegram/helpers"
	"github.com/m3rciful/gallerybot/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

// contentEndpoints lists every message kind the coordinator sees.
var contentEndpoints = []string{
	tele.OnText,
	tele.OnPhoto,
	tele.OnAudio,
	tele.OnDocument,
	tele.OnAnimation,
	tele.OnSticker,
	tele.OnVideo,
	tele.OnVideoNote,
	tele.OnVoice,
	tele.OnContact,
	tele.OnLocation,
	tele.OnVenue,
	tele.OnPoll,
	tele.OnDice,
}

func (a *App) commands() (*tg.Registry, error) {
	return tg.NewRegistry(
		tg.Command{Name: "/start", Handler: a.onStartCommand, Description: "Start the bot"},
		tg.Command{Name: "/help", Handler: a.command(gallery.CommandHelp), Description: "How to publish a photo"},
		tg.Command{Name: "/rules", Handler: a.command(gallery.CommandRules), Description: "Publishing rules"},
	)
}

func (a *App) onStartCommand(c tele.Context) error {
	if !private(c) {
		router.SetOutcome(c, "skip", "")
		return nil
	}
	ctx := tghelpers.UpdateContext(c)
	return deliver(c, []gallery.Reply{a.coord.Welcome(ctx)})
}

func (a *App) command(cmd gallery.Command) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !private(c) {
			router.SetOutcome(c, "skip", "")
			return nil
		}
		ev := EventFromMessage(c.Message())
		ev.Command = cmd
		return a.handle(c, ev)
	}
}

func (a *App) onMessage(c tele.Context) error {
	if !private(c) {
		router.SetOutcome(c, "skip", "")
		return nil
	}
	return a.handle(c, EventFromMessage(c.Message()))
}

func (a *App) handle(c tele.Context, ev gallery.Event) error {
	ctx := tghelpers.UpdateContext(c)
	replies, err := a.coord.Handle(ctx, ev)
	if sendErr := deliver(c, replies); sendErr != nil && err == nil {
		err = sendErr
	}
	return err
}

// private reports whether the update came from a one-to-one chat with the bot.
func private(c tele.Context) bool {
	m := c.Message()
	return m != nil && m.Sender != nil && m.Private()
}
