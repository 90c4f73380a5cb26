// Package gallery coordinates photo submissions and deletions for conversants
// of the gallery bot.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/gallerybot/app/codes"
	"github.com/m3rciful/gallerybot/app/dialog"
	"github.com/m3rciful/gallerybot/app/texts"
	"github.com/m3rciful/gallerybot/core/logger"
	"github.com/m3rciful/gallerybot/core/telegram/format"
	"github.com/m3rciful/gallerybot/core/telegram/state"
)

// Outcomes reported in logs and metrics.
const (
	OutcomeOK          = "ok"
	OutcomeFail        = "fail"
	OutcomeCancelled   = "cancelled"
	OutcomePublished   = "published"
	OutcomeDeleted     = "deleted"
	OutcomeNotFound    = "not_found"
	OutcomeOrphaned    = "orphaned"
	OutcomeNotMember   = "not_member"
	OutcomeUnsupported = "unsupported"
)

// Options configures a Coordinator.
type Options struct {
	GroupID   int64
	ChannelID int64
	// AdminID receives orphaned publication alerts; 0 disables them.
	AdminID         int64
	GroupInviteLink string
	GroupTitle      string
	ChannelTitle    string
}

// Coordinator turns inbound events into dialog transitions, gateway calls and replies.
type Coordinator struct {
	gw      Gateway
	reg     Registry
	machine *dialog.Machine
	opts    Options
}

// New returns a Coordinator.
func New(gw Gateway, reg Registry, machine *dialog.Machine, opts Options) *Coordinator {
	if machine == nil {
		machine = dialog.New(nil)
	}
	return &Coordinator{gw: gw, reg: reg, machine: machine, opts: opts}
}

// Machine exposes the dialog machine, mainly for inspection in tests and tools.
func (c *Coordinator) Machine() *dialog.Machine { return c.machine }

// Welcome renders the /start greeting. It is not gated by membership.
func (c *Coordinator) Welcome(ctx context.Context) Reply {
	meta := c.Meta(ctx)
	return Reply{Text: texts.Welcome(meta.Channel.Title, meta.Group.Title), Menu: MenuMain, Quote: true}
}

// Handle processes one event. User-caused failures are answered with replies;
// an error is returned only when the dialog machine rejects a transition the
// coordinator routed, which indicates a bug.
func (c *Coordinator) Handle(ctx context.Context, ev Event) ([]Reply, error) {
	id := ev.From.ID
	ctx = logger.WithLogger(ctx, logger.Component("gallery"))

	member, err := c.gw.Membership(ctx, c.opts.GroupID, id)
	if err != nil {
		logger.Error(ctx, "gallery", "membership.check",
			slog.String("status", "fail"),
			logger.Err(err),
		)
		c.record(ctx, ev, state.StateIdle, state.StateIdle, OutcomeFail)
		return []Reply{{Text: texts.TryAgain}}, nil
	}
	if !member {
		meta := c.Meta(ctx)
		cur := c.machine.State(id)
		c.record(ctx, ev, cur, cur, OutcomeNotMember)
		return []Reply{{Text: texts.NotMember(c.groupLink(meta.Group)), HTML: true}}, nil
	}

	unlock := c.machine.Lock(id)
	defer unlock()

	from := c.machine.State(id)
	replies, outcome, err := c.dispatch(ctx, ev, from)
	c.record(ctx, ev, from, c.machine.State(id), outcome)
	if err != nil {
		logger.Error(ctx, "gallery", "dialog.transition",
			slog.String("status", "fail"),
			slog.String("from_state", string(from)),
			logger.Err(err),
		)
		c.machine.ResetOnInvalidInput(id)
		return []Reply{{Text: texts.TryAgain, Menu: MenuMain}}, err
	}
	return replies, nil
}

func (c *Coordinator) dispatch(ctx context.Context, ev Event, cur state.State) ([]Reply, string, error) {
	id := ev.From.ID

	if ev.Kind == ContentDisallowed {
		c.machine.ResetOnInvalidInput(id)
		return []Reply{{Text: texts.Unsupported, Menu: MenuMain}}, OutcomeUnsupported, nil
	}

	if ev.Kind == ContentText && texts.IsCancel(ev.Text) {
		if !c.machine.Cancel(id) {
			return nil, OutcomeOK, nil
		}
		return []Reply{{Text: texts.Cancelled, Menu: MenuMain, Quote: true}}, OutcomeCancelled, nil
	}

	switch ev.Command {
	case CommandRules:
		return []Reply{c.rules(ctx, cur)}, OutcomeOK, nil
	case CommandHelp:
		return []Reply{{Text: texts.UseMenu, Menu: menuFor(cur), Quote: true}}, OutcomeOK, nil
	}

	switch cur {
	case dialog.Idle:
		return c.handleIdle(ctx, ev)
	case dialog.AwaitingPhoto:
		if ev.Kind != ContentPhoto {
			return []Reply{{Text: texts.PromptPhoto, Menu: MenuCancel, Quote: true}}, OutcomeOK, nil
		}
		ready, err := c.machine.AttachPhoto(id, ev.PhotoRef, ev.Caption)
		if err != nil {
			return nil, OutcomeFail, err
		}
		if ready == nil {
			return []Reply{{Text: texts.PromptCaption, Menu: MenuCancel, Quote: true}}, OutcomeOK, nil
		}
		replies, outcome := c.publish(ctx, ev.From, *ready)
		return replies, outcome, nil
	case dialog.AwaitingCaption:
		if ev.Kind != ContentText {
			return []Reply{{Text: texts.PromptCaption, Menu: MenuCancel, Quote: true}}, OutcomeOK, nil
		}
		ready, err := c.machine.AttachCaption(id, ev.Text)
		if err != nil {
			return nil, OutcomeFail, err
		}
		replies, outcome := c.publish(ctx, ev.From, ready)
		return replies, outcome, nil
	case dialog.AwaitingDeletionCode:
		if ev.Kind != ContentText {
			return []Reply{{Text: texts.PromptDeletionCode, Menu: MenuCancel, Quote: true}}, OutcomeOK, nil
		}
		replies, outcome := c.delete(ctx, id, ev.Text)
		return replies, outcome, nil
	default:
		c.machine.ResetOnInvalidInput(id)
		return nil, OutcomeFail, fmt.Errorf("gallery: unknown dialog state %q", cur)
	}
}

func (c *Coordinator) handleIdle(ctx context.Context, ev Event) ([]Reply, string, error) {
	id := ev.From.ID
	if ev.Kind != ContentText {
		return []Reply{{Text: texts.UseMenu, Menu: MenuMain, Quote: true}}, OutcomeOK, nil
	}
	switch ev.Text {
	case texts.LabelSubmit:
		if err := c.machine.BeginSubmission(id); err != nil {
			return nil, OutcomeFail, err
		}
		return []Reply{{Text: texts.PromptPhoto, Menu: MenuCancel, Quote: true}}, OutcomeOK, nil
	case texts.LabelDelete:
		if err := c.machine.BeginDeletion(id); err != nil {
			return nil, OutcomeFail, err
		}
		return []Reply{{Text: texts.PromptDeletionCode, Menu: MenuCancel, Quote: true}}, OutcomeOK, nil
	case texts.LabelRules:
		return []Reply{c.rules(ctx, dialog.Idle)}, OutcomeOK, nil
	default:
		return []Reply{{Text: texts.UseMenu, Menu: MenuMain, Quote: true}}, OutcomeOK, nil
	}
}

func (c *Coordinator) rules(ctx context.Context, cur state.State) Reply {
	meta := c.Meta(ctx)
	return Reply{Text: texts.Rules(meta.Group.Title), Menu: menuFor(cur), Quote: true}
}

// publish posts the photo and issues its deletion code. The dialog always ends in Idle.
func (c *Coordinator) publish(ctx context.Context, from Conversant, ready dialog.Ready) ([]Reply, string) {
	defer c.machine.Finish(from.ID)

	caption := format.EscapeHTML(ready.Caption) + "\n" +
		fmt.Sprintf(texts.AuthorLine, format.UserLink(from.ID, from.Mention))

	messageID, err := c.gw.SendPhoto(ctx, c.opts.ChannelID, ready.PhotoRef, caption)
	if err != nil {
		logger.Error(ctx, "gallery", "publish.send",
			slog.String("status", "fail"),
			slog.Int64("channel_id", c.opts.ChannelID),
			logger.Err(err),
		)
		return []Reply{{Text: texts.TryAgain, Menu: MenuMain}}, OutcomeFail
	}

	code, err := c.reg.Issue(ctx, messageID)
	if err != nil {
		c.alertOrphan(ctx, from, messageID, err)
		return []Reply{{Text: texts.TryAgain, Menu: MenuMain}}, OutcomeOrphaned
	}

	logger.Info(ctx, "gallery", "publish",
		slog.String("status", "ok"),
		slog.Int64("channel_id", c.opts.ChannelID),
		slog.Int("message_id", messageID),
	)
	return []Reply{
		{Text: texts.Published},
		{Text: texts.CodeHeader},
		{Text: code.String(), Menu: MenuMain},
	}, OutcomePublished
}

// alertOrphan reports a published photo that has no deletion code.
func (c *Coordinator) alertOrphan(ctx context.Context, from Conversant, messageID int, cause error) {
	OrphanedPublicationsTotal.Inc()
	logger.Error(ctx, "gallery", "publish.orphaned",
		slog.String("status", "fail"),
		slog.Int64("channel_id", c.opts.ChannelID),
		slog.Int("message_id", messageID),
		logger.Err(cause),
	)
	if c.opts.AdminID == 0 {
		return
	}
	if err := c.gw.SendText(ctx, c.opts.AdminID, texts.OrphanAlert(c.opts.ChannelID, messageID, from.ID)); err != nil {
		logger.Error(ctx, "gallery", "publish.orphaned.alert",
			slog.String("status", "fail"),
			logger.Err(err),
		)
	}
}

// delete resolves the code and removes the channel message. The dialog always ends in Idle.
func (c *Coordinator) delete(ctx context.Context, id int64, text string) ([]Reply, string) {
	defer c.machine.Finish(id)

	code, err := codes.ParseCode(text)
	if err != nil {
		return []Reply{{Text: texts.CodeNotFound, Menu: MenuMain}}, OutcomeNotFound
	}

	messageID, err := c.reg.Resolve(ctx, code)
	switch {
	case errors.Is(err, codes.ErrNotFound):
		return []Reply{{Text: texts.CodeNotFound, Menu: MenuMain}}, OutcomeNotFound
	case err != nil:
		return []Reply{{Text: texts.TryAgain, Menu: MenuMain}}, OutcomeFail
	}

	if err := c.gw.DeleteMessage(ctx, c.opts.ChannelID, messageID); err != nil {
		logger.Warn(ctx, "gallery", "delete.send",
			slog.String("status", "fail"),
			slog.Int64("channel_id", c.opts.ChannelID),
			slog.Int("message_id", messageID),
			logger.Err(err),
		)
		return []Reply{{Text: texts.DeleteFailed, Menu: MenuMain}}, OutcomeFail
	}

	if err := c.reg.Revoke(ctx, code); err != nil {
		logger.Warn(ctx, "gallery", "delete.revoke",
			slog.String("status", "fail"),
			slog.Int("message_id", messageID),
			logger.Err(err),
		)
	}
	logger.Info(ctx, "gallery", "delete",
		slog.String("status", "ok"),
		slog.Int64("channel_id", c.opts.ChannelID),
		slog.Int("message_id", messageID),
	)
	return []Reply{{Text: texts.Deleted, Menu: MenuMain}}, OutcomeDeleted
}

func (c *Coordinator) record(ctx context.Context, ev Event, from, to state.State, outcome string) {
	OutcomesTotal.WithLabelValues(outcome).Inc()
	attrs := []slog.Attr{
		slog.String("outcome", outcome),
		slog.String("content", contentName(ev)),
		slog.String("from_state", string(from)),
		slog.String("state", string(to)),
	}
	if ev.Command != "" {
		attrs = append(attrs, slog.String("dialog", string(ev.Command)))
	}
	logger.Debug(ctx, "gallery", "event.handled", attrs...)
}

func contentName(ev Event) string {
	if ev.Content != "" {
		return ev.Content
	}
	return ev.Kind.String()
}

// menuFor keeps the cancel keyboard while a dialog is active.
func menuFor(cur state.State) Menu {
	if cur == dialog.Idle {
		return MenuMain
	}
	return MenuCancel
}
