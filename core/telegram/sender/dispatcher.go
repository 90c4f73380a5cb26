// Package sender runs outbound Bot API calls on a bounded worker pool so
// handlers return before Telegram answers.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/gallerybot/core/logger"
	"github.com/m3rciful/gallerybot/core/metrics"
	"github.com/m3rciful/gallerybot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job did not fit into the queue.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the dispatcher. Zero values take the defaults below.
type Options struct {
	QueueSize    int           // 256
	Workers      int           // 4
	MaxRetries   int           // 0
	RetryBackoff time.Duration // 2s, multiplied by the attempt number
	// MaxDuration bounds the time spent on one job including flood waits.
	MaxDuration time.Duration // 12s
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes queued Bot API calls with retries on transport errors
// and on Telegram flood control.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool

	wg   sync.WaitGroup
	errs atomic.Uint64
}

// NewDispatcher starts opts.Workers workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.handle(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run. It never blocks: a full queue yields ErrQueueFull.
// run may be called more than once, so it must tolerate repetition.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close rejects new jobs and waits until queued ones are done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) handle(j job) {
	start := time.Now()
	logger.Debug(j.ctx, "tg.sender", "send.start", jobAttrs(j)...)

	attempts, err := d.attempt(j)
	elapsed := time.Since(start)
	if err != nil {
		d.errs.Add(1)
		logSendFailure(j, err, attempts, elapsed)
		return
	}

	attrs := append(jobAttrs(j), slog.Duration("elapsed", elapsed))
	if attempts > 1 {
		attrs = append(attrs, slog.Int("attempts", attempts))
		logger.Info(j.ctx, "tg.sender", "send.retry.success", attrs...)
		return
	}
	logger.Debug(j.ctx, "tg.sender", "send.success", attrs...)
}

// attempt runs j until it succeeds, fails permanently, runs out of attempts
// or exceeds MaxDuration. It returns the number of calls made.
func (d *Dispatcher) attempt(j job) (int, error) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	limit := d.opts.MaxRetries + 1
	for n := 1; ; n++ {
		err := j.run()
		if err == nil {
			return n, nil
		}
		delay, retryable := d.retryDelay(err, n)
		if !retryable || n == limit {
			return n, err
		}

		logger.Debug(j.ctx, "tg.sender", "send.retry.backoff",
			append(jobAttrs(j),
				slog.Int("attempt", n),
				slog.Duration("backoff", delay),
				slog.String("cause", classifyError(err)),
			)...,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return n, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

// retryDelay reports how long to wait before the next call. Flood control
// dictates its own wait; transport errors back off linearly.
func (d *Dispatcher) retryDelay(err error, attempt int) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return time.Duration(max(flood.RetryAfter, 1)) * time.Second, true
	}
	if netutil.ShouldRetry(err) {
		return d.opts.RetryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

func jobAttrs(j job) []slog.Attr {
	attrs := make([]slog.Attr, 0, 2)
	attrs = append(attrs, slog.String("action", j.action))
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

func logSendFailure(j job, err error, attempts int, elapsed time.Duration) {
	kind := classifyError(err)
	metrics.IncSendFailure(j.endpoint, kind)
	logger.Error(j.ctx, "tg.sender", "send.fail",
		append(jobAttrs(j),
			slog.String("err", sanitizeErrorMessage(err)),
			slog.String("err_code", kind),
			slog.Int("attempts", attempts),
			slog.Duration("elapsed", elapsed),
		)...,
	)
}

// classifyError buckets err for the send failure metric.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return "dns"
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	switch status := httpStatusFromError(err); {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// sanitizeErrorMessage redacts bot tokens that net/http puts into request URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// httpStatusFromError extracts the Bot API status from telebot errors or
// from a trailing "(code)" in the message.
func httpStatusFromError(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	msg := strings.TrimSpace(err.Error())
	open := strings.LastIndexByte(msg, '(')
	if open < 0 || !strings.HasSuffix(msg, ")") {
		return 0
	}
	code, convErr := strconv.Atoi(msg[open+1 : len(msg)-1])
	if convErr != nil {
		return 0
	}
	return code
}
