package sender

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2})
	var runs atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Enqueue(context.Background(), "send", "sendMessage", func() error {
			runs.Add(1)
			return nil
		}))
	}
	d.Close()
	require.EqualValues(t, 10, runs.Load())
	require.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var attempts atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send", "sendMessage", func() error {
		if attempts.Add(1) < 3 {
			return timeoutErr{}
		}
		return nil
	}))
	d.Close()
	require.EqualValues(t, 3, attempts.Load())
	require.Zero(t, d.ErrorCount())
}

func TestDispatcherDoesNotRetryPermanentErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var attempts atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send", "sendMessage", func() error {
		attempts.Add(1)
		return errors.New("telegram: chat not found (400)")
	}))
	d.Close()
	require.EqualValues(t, 1, attempts.Load())
	require.EqualValues(t, 1, d.ErrorCount())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	err := d.Enqueue(context.Background(), "send", "sendMessage", func() error { return nil })
	require.ErrorIs(t, err, ErrQueueClosed)
	require.Error(t, d.Enqueue(context.Background(), "send", "sendMessage", nil))
}

func TestClassifyError(t *testing.T) {
	require.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	require.Equal(t, "timeout", classifyError(timeoutErr{}))
	require.Equal(t, "http_4xx", classifyError(errors.New("telegram: bad request (400)")))
	require.Equal(t, "http_5xx", classifyError(errors.New("telegram: internal (502)")))
	require.Equal(t, "unknown", classifyError(errors.New("boom")))
}

func TestSanitizeErrorMessageRedactsToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": EOF`)
	require.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF`, sanitizeErrorMessage(err))
}
