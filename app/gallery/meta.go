package gallery

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/gallerybot/core/logger"
	"github.com/m3rciful/gallerybot/core/telegram/format"

	"golang.org/x/sync/errgroup"
)

// Meta holds the titles and links of the gated group and the channel.
type Meta struct {
	Group   ChatInfo
	Channel ChatInfo
}

// Meta fetches group and channel info concurrently. Failed lookups fall back to
// the configured titles so replies can always be rendered.
func (c *Coordinator) Meta(ctx context.Context) Meta {
	meta := Meta{
		Group:   ChatInfo{Title: c.opts.GroupTitle},
		Channel: ChatInfo{Title: c.opts.ChannelTitle},
	}
	var g errgroup.Group
	fetch := func(chatID int64, dst *ChatInfo) func() error {
		return func() error {
			info, err := c.gw.ChatInfo(ctx, chatID)
			if err != nil {
				logger.Warn(ctx, "gallery", "meta.fetch",
					slog.String("status", "fail"),
					slog.Int64("chat_id", chatID),
					logger.Err(err),
				)
				return nil
			}
			if strings.TrimSpace(info.Title) != "" {
				dst.Title = info.Title
			}
			dst.Username = info.Username
			return nil
		}
	}
	g.Go(fetch(c.opts.GroupID, &meta.Group))
	g.Go(fetch(c.opts.ChannelID, &meta.Channel))
	_ = g.Wait()
	return meta
}

// groupLink renders the group as an HTML link: public username first, then the
// configured invite link, else the bare title.
func (c *Coordinator) groupLink(group ChatInfo) string {
	href := format.PublicLink(group.Username)
	if href == "" {
		href = c.opts.GroupInviteLink
	}
	if href == "" {
		return format.EscapeHTML(group.Title)
	}
	return format.Link(href, group.Title)
}
