package bot

import (
	"github.com/m3rciful/gallerybot/app/gallery"
	"github.com/m3rciful/gallerybot/app/texts"
	tghelpers "github.com/m3rciful/gallerybot/core/telegram/helpers"
	"github.com/m3rciful/gallerybot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// deliver sends replies in order as one dispatcher job.
func deliver(c tele.Context, replies []gallery.Reply) error {
	if len(replies) == 0 {
		return nil
	}
	steps := make([]func() error, 0, len(replies))
	for _, r := range replies {
		opts := sendOptions(r, c.Message())
		text := r.Text
		steps = append(steps, func() error {
			return c.Send(text, opts)
		})
	}
	return tghelpers.SendSteps(c, "gallery.reply", steps...)
}

func sendOptions(r gallery.Reply, inbound *tele.Message) *tele.SendOptions {
	opts := &tele.SendOptions{ReplyMarkup: markupFor(r.Menu)}
	if r.HTML {
		opts.ParseMode = tele.ModeHTML
	}
	if r.Quote && inbound != nil {
		opts.ReplyTo = inbound
	}
	return opts
}

func markupFor(m gallery.Menu) *tele.ReplyMarkup {
	switch m {
	case gallery.MenuMain:
		return mainMenu
	case gallery.MenuCancel:
		return cancelMenu
	default:
		return nil
	}
}

var (
	mainMenu   = keyboard.OneTimeMenu(texts.LabelSubmit, texts.LabelDelete, texts.LabelRules)
	cancelMenu = keyboard.OneTimeMenu(texts.LabelCancel)
)
