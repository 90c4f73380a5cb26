package gallery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/gallerybot/app/codes"
	"github.com/m3rciful/gallerybot/app/dialog"
	"github.com/m3rciful/gallerybot/app/texts"
	"github.com/m3rciful/gallerybot/core/telegram/state"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	groupID   = int64(-1001)
	channelID = int64(-1002)
	adminID   = int64(99)
	member    = int64(42)
	stranger  = int64(13)
)

type sentPhoto struct {
	chatID  int64
	ref     string
	caption string
}

type fakeGateway struct {
	mu sync.Mutex

	members       map[int64]bool
	membershipErr error
	sendErr       error
	deleteErr     error
	infoErr       error

	nextID   int
	photos   []sentPhoto
	deleted  []int
	texts    map[int64][]string
	infoByID map[int64]ChatInfo
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		members: map[int64]bool{member: true},
		nextID:  500,
		texts:   make(map[int64][]string),
		infoByID: map[int64]ChatInfo{
			groupID:   {Title: "Darkroom", Username: "darkroom_chat"},
			channelID: {Title: "Silver Prints", Username: "silver_prints"},
		},
	}
}

func (g *fakeGateway) Membership(_ context.Context, gid, uid int64) (bool, error) {
	if g.membershipErr != nil {
		return false, g.membershipErr
	}
	if gid != groupID {
		return false, errors.New("unexpected group")
	}
	return g.members[uid], nil
}

func (g *fakeGateway) SendPhoto(_ context.Context, chatID int64, ref, caption string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return 0, g.sendErr
	}
	g.nextID++
	g.photos = append(g.photos, sentPhoto{chatID: chatID, ref: ref, caption: caption})
	return g.nextID, nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, messageID)
	return nil
}

func (g *fakeGateway) ChatInfo(_ context.Context, chatID int64) (ChatInfo, error) {
	if g.infoErr != nil {
		return ChatInfo{}, g.infoErr
	}
	return g.infoByID[chatID], nil
}

func (g *fakeGateway) SendText(_ context.Context, chatID int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts[chatID] = append(g.texts[chatID], text)
	return nil
}

type harness struct {
	coord *Coordinator
	gw    *fakeGateway
	reg   *codes.Registry
	mr    *miniredis.Miniredis
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gw := newFakeGateway()
	reg := codes.NewRegistry(codes.NewRedisStore(client, "gallery:code:"))
	coord := New(gw, reg, dialog.New(nil), Options{
		GroupID:      groupID,
		ChannelID:    channelID,
		AdminID:      adminID,
		GroupTitle:   "the group",
		ChannelTitle: "the gallery",
	})
	return &harness{coord: coord, gw: gw, reg: reg, mr: mr}
}

func (h *harness) send(t *testing.T, ev Event) []Reply {
	t.Helper()
	replies, err := h.coord.Handle(context.Background(), ev)
	require.NoError(t, err)
	return replies
}

func textEvent(from int64, text string) Event {
	return Event{From: Conversant{ID: from, Mention: "Ann"}, Kind: ContentText, Text: text}
}

func photoEvent(from int64, ref string, caption *string) Event {
	return Event{From: Conversant{ID: from, Mention: "Ann"}, Kind: ContentPhoto, PhotoRef: ref, Caption: caption}
}

func strPtr(s string) *string { return &s }

func (h *harness) state() string { return string(h.coord.Machine().State(member)) }

func TestSingleStepSubmission(t *testing.T) {
	h := newHarness(t)

	replies := h.send(t, textEvent(member, texts.LabelSubmit))
	require.Equal(t, []Reply{{Text: texts.PromptPhoto, Menu: MenuCancel, Quote: true}}, replies)
	require.Equal(t, string(dialog.AwaitingPhoto), h.state())

	replies = h.send(t, photoEvent(member, "AgAD-1", strPtr("Ilford FP4 <pushed>")))
	require.Len(t, replies, 3)
	require.Equal(t, texts.Published, replies[0].Text)
	require.Equal(t, texts.CodeHeader, replies[1].Text)
	require.Equal(t, MenuMain, replies[2].Menu)
	require.Equal(t, string(dialog.Idle), h.state())

	require.Len(t, h.gw.photos, 1)
	p := h.gw.photos[0]
	require.Equal(t, channelID, p.chatID)
	require.Equal(t, "AgAD-1", p.ref)
	require.Equal(t, "Ilford FP4 &lt;pushed&gt;\nAuthor: <a href=\"tg://user?id=42\">Ann</a>", p.caption)

	code, err := codes.ParseCode(replies[2].Text)
	require.NoError(t, err)
	id, err := h.reg.Resolve(context.Background(), code)
	require.NoError(t, err)
	require.Equal(t, h.gw.nextID, id)
}

func TestTwoStepSubmission(t *testing.T) {
	h := newHarness(t)
	h.send(t, textEvent(member, texts.LabelSubmit))

	replies := h.send(t, photoEvent(member, "AgAD-2", nil))
	require.Equal(t, []Reply{{Text: texts.PromptCaption, Menu: MenuCancel, Quote: true}}, replies)
	require.Equal(t, string(dialog.AwaitingCaption), h.state())
	ref, ok := h.coord.Machine().PendingPhoto(member)
	require.True(t, ok)
	require.Equal(t, "AgAD-2", ref)

	replies = h.send(t, textEvent(member, "HP5+, Rodinal"))
	require.Len(t, replies, 3)
	require.Equal(t, string(dialog.Idle), h.state())
	require.Len(t, h.gw.photos, 1)
	require.True(t, strings.HasPrefix(h.gw.photos[0].caption, "HP5+, Rodinal\nAuthor: "))
	_, ok = h.coord.Machine().PendingPhoto(member)
	require.False(t, ok)
}

func TestDeletionWithValidCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code, err := h.reg.Issue(ctx, 777)
	require.NoError(t, err)

	replies := h.send(t, textEvent(member, texts.LabelDelete))
	require.Equal(t, []Reply{{Text: texts.PromptDeletionCode, Menu: MenuCancel, Quote: true}}, replies)
	require.Equal(t, string(dialog.AwaitingDeletionCode), h.state())

	replies = h.send(t, textEvent(member, " "+strings.ToUpper(code.String())+" "))
	require.Equal(t, []Reply{{Text: texts.Deleted, Menu: MenuMain}}, replies)
	require.Equal(t, []int{777}, h.gw.deleted)
	require.Equal(t, string(dialog.Idle), h.state())

	_, err = h.reg.Resolve(ctx, code)
	require.ErrorIs(t, err, codes.ErrNotFound)
}

func TestDeletionWithUnknownCode(t *testing.T) {
	h := newHarness(t)
	h.send(t, textEvent(member, texts.LabelDelete))

	replies := h.send(t, textEvent(member, "12345"))
	require.Equal(t, []Reply{{Text: texts.CodeNotFound, Menu: MenuMain}}, replies)
	require.Empty(t, h.gw.deleted)
	require.Equal(t, string(dialog.Idle), h.state())
}

func TestDeletionWithMalformedCode(t *testing.T) {
	h := newHarness(t)
	h.send(t, textEvent(member, texts.LabelDelete))

	replies := h.send(t, textEvent(member, "not a code!"))
	require.Equal(t, []Reply{{Text: texts.CodeNotFound, Menu: MenuMain}}, replies)
	require.Empty(t, h.gw.deleted)
	require.Equal(t, string(dialog.Idle), h.state())
}

func TestDeletionFailureKeepsRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	code, err := h.reg.Issue(ctx, 31)
	require.NoError(t, err)
	h.gw.deleteErr = errors.New("telegram: message can't be deleted (400)")

	h.send(t, textEvent(member, texts.LabelDelete))
	replies := h.send(t, textEvent(member, code.String()))
	require.Equal(t, []Reply{{Text: texts.DeleteFailed, Menu: MenuMain}}, replies)
	require.Equal(t, string(dialog.Idle), h.state())

	id, err := h.reg.Resolve(ctx, code)
	require.NoError(t, err)
	require.Equal(t, 31, id)
}

func TestDeletionStoreUnavailable(t *testing.T) {
	h := newHarness(t)
	h.send(t, textEvent(member, texts.LabelDelete))
	h.mr.SetError("ERR store offline")

	replies := h.send(t, textEvent(member, "abc"))
	require.Equal(t, []Reply{{Text: texts.TryAgain, Menu: MenuMain}}, replies)
	require.Empty(t, h.gw.deleted)
	require.Equal(t, string(dialog.Idle), h.state())
}

func TestNonMemberIsTurnedAway(t *testing.T) {
	h := newHarness(t)

	replies, err := h.coord.Handle(context.Background(), textEvent(stranger, texts.LabelSubmit))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.True(t, replies[0].HTML)
	require.Contains(t, replies[0].Text, `<a href="https://t.me/darkroom_chat">Darkroom</a>`)
	require.Equal(t, dialog.Idle, h.coord.Machine().State(stranger))

	replies, err = h.coord.Handle(context.Background(), photoEvent(stranger, "ref", strPtr("caption")))
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Empty(t, h.gw.photos)
}

func TestNonMemberLinkFallsBackToInvite(t *testing.T) {
	h := newHarness(t)
	h.gw.infoErr = errors.New("chat not found")
	h.coord.opts.GroupInviteLink = "https://t.me/+abcdef"

	replies, err := h.coord.Handle(context.Background(), textEvent(stranger, "hi"))
	require.NoError(t, err)
	require.Contains(t, replies[0].Text, `<a href="https://t.me/+abcdef">the group</a>`)

	h.coord.opts.GroupInviteLink = ""
	replies, err = h.coord.Handle(context.Background(), textEvent(stranger, "hi"))
	require.NoError(t, err)
	require.Contains(t, replies[0].Text, "the group")
	require.NotContains(t, replies[0].Text, "<a ")
}

func TestMembershipErrorKeepsState(t *testing.T) {
	h := newHarness(t)
	h.send(t, textEvent(member, texts.LabelSubmit))
	h.gw.membershipErr = errors.New("timeout")

	replies := h.send(t, photoEvent(member, "ref", strPtr("caption")))
	require.Equal(t, []Reply{{Text: texts.TryAgain}}, replies)
	require.Equal(t, string(dialog.AwaitingPhoto), h.state())
	require.Empty(t, h.gw.photos)
}

func TestDisallowedContentResetsAnyState(t *testing.T) {
	cases := map[string]struct {
		steps []Event
		want  state.State
	}{
		"idle":             {want: dialog.Idle},
		"awaiting photo":   {steps: []Event{textEvent(member, texts.LabelSubmit)}, want: dialog.AwaitingPhoto},
		"awaiting caption": {steps: []Event{textEvent(member, texts.LabelSubmit), photoEvent(member, "ref", nil)}, want: dialog.AwaitingCaption},
		"awaiting code":    {steps: []Event{textEvent(member, texts.LabelDelete)}, want: dialog.AwaitingDeletionCode},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			for _, ev := range tc.steps {
				h.send(t, ev)
			}
			require.Equal(t, string(tc.want), h.state())

			replies := h.send(t, Event{From: Conversant{ID: member}, Kind: ContentDisallowed, Content: "video"})
			require.Equal(t, []Reply{{Text: texts.Unsupported, Menu: MenuMain}}, replies)
			require.Equal(t, string(dialog.Idle), h.state())
			_, ok := h.coord.Machine().PendingPhoto(member)
			require.False(t, ok)
			require.Empty(t, h.gw.photos)
			require.Empty(t, h.gw.deleted)
		})
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t)

	require.Empty(t, h.send(t, textEvent(member, "cancel")))
	require.Equal(t, string(dialog.Idle), h.state())

	h.send(t, textEvent(member, texts.LabelSubmit))
	h.send(t, photoEvent(member, "ref", nil))
	replies := h.send(t, textEvent(member, "  CANCEL "))
	require.Equal(t, []Reply{{Text: texts.Cancelled, Menu: MenuMain, Quote: true}}, replies)
	require.Equal(t, string(dialog.Idle), h.state())
	require.Empty(t, h.gw.photos)
}

func TestCancelDuringDeletion(t *testing.T) {
	h := newHarness(t)
	h.send(t, textEvent(member, texts.LabelDelete))
	replies := h.send(t, textEvent(member, texts.LabelCancel))
	require.Len(t, replies, 1)
	require.Equal(t, string(dialog.Idle), h.state())
	require.Empty(t, h.gw.deleted)
}

func TestIdleFallbacks(t *testing.T) {
	h := newHarness(t)

	replies := h.send(t, textEvent(member, "hello"))
	require.Equal(t, []Reply{{Text: texts.UseMenu, Menu: MenuMain, Quote: true}}, replies)

	replies = h.send(t, photoEvent(member, "ref", strPtr("unsolicited")))
	require.Equal(t, []Reply{{Text: texts.UseMenu, Menu: MenuMain, Quote: true}}, replies)
	require.Empty(t, h.gw.photos)
	require.Equal(t, string(dialog.Idle), h.state())

	replies = h.send(t, textEvent(member, texts.LabelRules))
	require.Len(t, replies, 1)
	require.Contains(t, replies[0].Text, `"Darkroom"`)
	require.Equal(t, MenuMain, replies[0].Menu)
}

func TestMismatchedInputRepromptsWithoutStateChange(t *testing.T) {
	h := newHarness(t)
	h.send(t, textEvent(member, texts.LabelSubmit))

	replies := h.send(t, textEvent(member, "where do I send it?"))
	require.Equal(t, []Reply{{Text: texts.PromptPhoto, Menu: MenuCancel, Quote: true}}, replies)
	require.Equal(t, string(dialog.AwaitingPhoto), h.state())

	h.send(t, photoEvent(member, "first", nil))
	replies = h.send(t, photoEvent(member, "second", nil))
	require.Equal(t, []Reply{{Text: texts.PromptCaption, Menu: MenuCancel, Quote: true}}, replies)
	ref, _ := h.coord.Machine().PendingPhoto(member)
	require.Equal(t, "first", ref)
}

func TestCommandsKeepDialog(t *testing.T) {
	h := newHarness(t)
	h.send(t, textEvent(member, texts.LabelDelete))

	ev := textEvent(member, "/rules")
	ev.Command = CommandRules
	replies := h.send(t, ev)
	require.Len(t, replies, 1)
	require.Equal(t, MenuCancel, replies[0].Menu)
	require.Equal(t, string(dialog.AwaitingDeletionCode), h.state())

	ev = textEvent(member, "/help")
	ev.Command = CommandHelp
	replies = h.send(t, ev)
	require.Equal(t, texts.UseMenu, replies[0].Text)
	require.Equal(t, string(dialog.AwaitingDeletionCode), h.state())
}

func TestPublishFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.gw.sendErr = errors.New("telegram: wrong file identifier (400)")
	h.send(t, textEvent(member, texts.LabelSubmit))

	replies := h.send(t, photoEvent(member, "bad", strPtr("caption")))
	require.Equal(t, []Reply{{Text: texts.TryAgain, Menu: MenuMain}}, replies)
	require.Equal(t, string(dialog.Idle), h.state())
	require.Empty(t, h.mr.Keys())
}

func TestOrphanedPublicationAlertsAdmin(t *testing.T) {
	h := newHarness(t)
	before := testutil.ToFloat64(OrphanedPublicationsTotal)
	h.send(t, textEvent(member, texts.LabelSubmit))
	h.mr.SetError("ERR store offline")

	replies := h.send(t, photoEvent(member, "ref", strPtr("caption")))
	require.Equal(t, []Reply{{Text: texts.TryAgain, Menu: MenuMain}}, replies)
	require.Len(t, h.gw.photos, 1)
	require.Equal(t, string(dialog.Idle), h.state())
	require.Equal(t, before+1, testutil.ToFloat64(OrphanedPublicationsTotal))

	alerts := h.gw.texts[adminID]
	require.Len(t, alerts, 1)
	require.Contains(t, alerts[0], "501")
}

func TestWelcomeUsesChatTitles(t *testing.T) {
	h := newHarness(t)
	r := h.coord.Welcome(context.Background())
	require.Contains(t, r.Text, `"Silver Prints"`)
	require.Contains(t, r.Text, `"Darkroom"`)
	require.Equal(t, MenuMain, r.Menu)

	h.gw.infoErr = errors.New("boom")
	r = h.coord.Welcome(context.Background())
	require.Contains(t, r.Text, `"the gallery"`)
}

func TestConcurrentEventsForOneConversant(t *testing.T) {
	h := newHarness(t)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.coord.Handle(context.Background(), textEvent(member, texts.LabelSubmit))
		}()
	}
	wg.Wait()
	require.Equal(t, string(dialog.AwaitingPhoto), h.state())
}
