package gallery

import (
	"context"

	"github.com/m3rciful/gallerybot/app/codes"
)

// ContentKind classifies an inbound message.
type ContentKind int

const (
	// ContentOther is anything that is neither text, a photo nor explicitly disallowed.
	ContentOther ContentKind = iota
	ContentText
	ContentPhoto
	// ContentDisallowed covers media that can never be published (audio, video, stickers...).
	ContentDisallowed
)

func (k ContentKind) String() string {
	switch k {
	case ContentText:
		return "text"
	case ContentPhoto:
		return "photo"
	case ContentDisallowed:
		return "disallowed"
	default:
		return "other"
	}
}

// Command is a slash command routed through the coordinator.
type Command string

const (
	CommandHelp  Command = "help"
	CommandRules Command = "rules"
)

// Conversant identifies who sent a message.
type Conversant struct {
	ID int64
	// Mention is the display name used in the attribution line.
	Mention string
}

// Event is one inbound message from a conversant.
type Event struct {
	From    Conversant
	Kind    ContentKind
	Command Command
	Text    string
	// PhotoRef is the platform file reference of the largest photo size.
	PhotoRef string
	// Caption is nil when the photo came without one.
	Caption *string
	// Content names the concrete media type for logs, e.g. "sticker".
	Content string
}

// Menu selects the quick-reply keyboard attached to a reply.
type Menu int

const (
	MenuNone Menu = iota
	MenuMain
	MenuCancel
)

// Reply is one outbound message to the conversant.
type Reply struct {
	Text string
	// HTML selects HTML parse mode.
	HTML bool
	Menu Menu
	// Quote replies to the inbound message instead of sending a plain message.
	Quote bool
}

// ChatInfo is the public metadata of a chat.
type ChatInfo struct {
	Title    string
	Username string
}

// Gateway is the messaging platform as seen by the coordinator.
type Gateway interface {
	// Membership reports whether userID currently belongs to groupID.
	Membership(ctx context.Context, groupID, userID int64) (bool, error)
	// SendPhoto posts a photo with an HTML caption and returns the new message id.
	SendPhoto(ctx context.Context, chatID int64, photoRef, caption string) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	ChatInfo(ctx context.Context, chatID int64) (ChatInfo, error)
	// SendText sends a plain direct message, used for admin alerts.
	SendText(ctx context.Context, chatID int64, text string) error
}

// Registry is the deletion code registry.
type Registry interface {
	Issue(ctx context.Context, messageID int) (codes.Code, error)
	Resolve(ctx context.Context, code codes.Code) (int, error)
	Revoke(ctx context.Context, code codes.Code) error
}
