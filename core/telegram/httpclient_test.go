package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/gallerybot/core/config"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type stubTransport struct {
	calls atomic.Int32
	fail  int32
	err   error
}

func (s *stubTransport) RoundTrip(*http.Request) (*http.Response, error) {
	if s.calls.Add(1) <= s.fail {
		return nil, s.err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
}

func TestBuildHTTPClientStretchesTimeoutsPastLongPoll(t *testing.T) {
	c := BuildHTTPClient(25 * time.Second)
	require.Equal(t, 45*time.Second, c.Timeout)
	rt, ok := c.Transport.(*retryTransport)
	require.True(t, ok)
	base, ok := rt.base.(*http.Transport)
	require.True(t, ok)
	require.Equal(t, 30*time.Second, base.ResponseHeaderTimeout)

	require.Equal(t, DefaultLongPollTimeout+defaultClientSlack, BuildHTTPClient(0).Timeout)
}

func TestRetryTransportRetriesTransientErrors(t *testing.T) {
	stub := &stubTransport{fail: 2, err: timeoutErr{}}
	rt := &retryTransport{base: stub, maxRetries: 3, backoff: time.Millisecond}
	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/getMe", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.EqualValues(t, 3, stub.calls.Load())
}

func TestRetryTransportStopsOnPermanentErrors(t *testing.T) {
	stub := &stubTransport{fail: 5, err: errors.New("tls: bad certificate")}
	rt := &retryTransport{base: stub, maxRetries: 3, backoff: time.Millisecond}
	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/getMe", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	require.EqualValues(t, 1, stub.calls.Load())
}

func TestRetryTransportDoesNotRepeatSends(t *testing.T) {
	stub := &stubTransport{fail: 5, err: timeoutErr{}}
	rt := &retryTransport{base: stub, maxRetries: 3, backoff: time.Millisecond}
	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendPhoto", strings.NewReader(`{"chat_id":"-100"}`))
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	require.EqualValues(t, 1, stub.calls.Load())
}

func TestRetryTransportRepeatsSendsThatNeverLeft(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: timeoutErr{}}
	stub := &stubTransport{fail: 1, err: dialErr}
	rt := &retryTransport{base: stub, maxRetries: 3, backoff: time.Millisecond}
	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendPhoto", strings.NewReader(`{"chat_id":"-100"}`))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.EqualValues(t, 2, stub.calls.Load())
}

func TestNewPoller(t *testing.T) {
	lp, ok := NewPoller(coreconfig.TelegramConfig{RunMode: "LONGPOLL"}, coreconfig.WebhookConfig{}).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, DefaultLongPollTimeout, lp.Timeout)

	tc := coreconfig.TelegramConfig{RunMode: "longpoll", LongPollTimeoutSeconds: 30}
	lp, ok = NewPoller(tc, coreconfig.WebhookConfig{}).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, 30*time.Second, lp.Timeout)
	require.Equal(t, 30*time.Second, LongPollTimeout(tc))

	wh, ok := NewPoller(
		coreconfig.TelegramConfig{RunMode: "webhook"},
		coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.org/hook"},
	).(*tele.Webhook)
	require.True(t, ok)
	require.Equal(t, "0.0.0.0:8443", wh.Listen)
	require.Equal(t, "https://bot.example.org/hook", wh.Endpoint.PublicURL)
}
