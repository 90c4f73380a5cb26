package bot

import (
	"strings"

	"github.com/m3rciful/gallerybot/app/gallery"

	tele "gopkg.in/telebot.v4"
)

// EventFromMessage converts a Telegram message into a coordinator event.
func EventFromMessage(m *tele.Message) gallery.Event {
	if m == nil {
		return gallery.Event{}
	}
	ev := gallery.Event{From: conversant(m.Sender)}

	if kind := disallowedKind(m); kind != "" {
		ev.Kind = gallery.ContentDisallowed
		ev.Content = kind
		return ev
	}

	switch {
	case m.Photo != nil:
		ev.Kind = gallery.ContentPhoto
		ev.PhotoRef = m.Photo.FileID
		if strings.TrimSpace(m.Caption) != "" {
			caption := m.Caption
			ev.Caption = &caption
		}
	case m.Text != "":
		ev.Kind = gallery.ContentText
		ev.Text = m.Text
	default:
		ev.Kind = gallery.ContentOther
	}
	return ev
}

// disallowedKind names media that can never be published, or returns "".
func disallowedKind(m *tele.Message) string {
	switch {
	case m.Animation != nil:
		return "animation"
	case m.Audio != nil:
		return "audio"
	case m.Document != nil:
		return "document"
	case m.Sticker != nil:
		return "sticker"
	case m.Video != nil:
		return "video"
	case m.VideoNote != nil:
		return "video_note"
	case m.Voice != nil:
		return "voice"
	case m.Contact != nil:
		return "contact"
	case m.Venue != nil:
		return "venue"
	case m.Location != nil:
		return "location"
	case m.Poll != nil:
		return "poll"
	case m.Dice != nil:
		return "dice"
	default:
		return ""
	}
}

// conversant builds the attribution identity: @username when set, else the full name.
func conversant(u *tele.User) gallery.Conversant {
	if u == nil {
		return gallery.Conversant{}
	}
	mention := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if u.Username != "" {
		mention = "@" + u.Username
	}
	if mention == "" {
		mention = "user"
	}
	return gallery.Conversant{ID: u.ID, Mention: mention}
}
