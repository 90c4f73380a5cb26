package telegram

import (
	"errors"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/m3rciful/gallerybot/core/telegram/netutil"
)

const (
	dialTimeout      = 5 * time.Second
	handshakeTimeout = 5 * time.Second
	keepAlive        = 30 * time.Second
	idleConnTimeout  = 90 * time.Second
	// A reply may take up to the long poll timeout; the slacks are added on top.
	defaultResponseSlack = 5 * time.Second
	defaultClientSlack   = 20 * time.Second

	transportRetries = 3
	transportBackoff = 2 * time.Second
)

// BuildHTTPClient returns the Bot API client. longPoll is the getUpdates
// timeout; response deadlines are stretched past it so an idle poll does not
// count as a failed request.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	if longPoll <= 0 {
		longPoll = DefaultLongPollTimeout
	}
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   handshakeTimeout,
		ResponseHeaderTimeout: longPoll + defaultResponseSlack,
	}
	return &http.Client{
		Timeout:   longPoll + defaultClientSlack,
		Transport: &retryTransport{base: base, maxRetries: transportRetries, backoff: transportBackoff},
	}
}

// idempotentMethods are Bot API methods that may be repeated even when the
// first request could have reached Telegram. sendPhoto and sendMessage are
// absent: a repeat would publish twice.
var idempotentMethods = map[string]struct{}{
	"getUpdates":     {},
	"getMe":          {},
	"getChat":        {},
	"getChatMember":  {},
	"deleteMessage":  {},
	"deleteWebhook":  {},
	"setMyCommands":  {},
	"getMyCommands":  {},
	"getWebhookInfo": {},
}

// retryTransport repeats Bot API requests that failed in transit.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	_, idempotent := idempotentMethods[path.Base(req.URL.Path)]

	cur := req
	for attempt := 1; ; attempt++ {
		resp, err := base.RoundTrip(cur)
		if err == nil {
			return resp, nil
		}
		if attempt > t.maxRetries || !netutil.ShouldRetry(err) || !(idempotent || neverSent(err)) {
			return nil, err
		}
		if cur, err = rewind(req); err != nil {
			return nil, err
		}
		if delay := t.backoff * time.Duration(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}
	}
}

// neverSent reports failures that happen before any byte reaches Telegram.
func neverSent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// rewind clones req with a fresh body for another attempt.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("telegram: request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}
