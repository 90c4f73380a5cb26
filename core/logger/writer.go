package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

const writerQueueSize = 256

// writeReq carries a log line, or a flush barrier when ack is set.
type writeReq struct {
	line []byte
	ack  chan error
}

// asyncWriter copies lines to its sinks from a single goroutine.
// The first sink error is sticky and returned by every later call.
type asyncWriter struct {
	reqs      chan writeReq
	done      chan struct{}
	closeOnce sync.Once
	sinks     []*bufio.Writer

	mu  sync.Mutex
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		reqs: make(chan writeReq, writerQueueSize),
		done: make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for req := range w.reqs {
		if req.ack != nil {
			req.ack <- w.flush()
			continue
		}
		w.fail(w.write(req.line))
	}
	w.fail(w.flush())
}

// Write queues a copy of p. It blocks when the queue is full rather than drop lines.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.sticky(); err != nil || len(p) == 0 {
		return err
	}
	w.reqs <- writeReq{line: append([]byte(nil), p...)}
	return nil
}

// Flush returns once every line queued before it reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.sticky(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.reqs <- writeReq{ack: ack}
	return <-ack
}

// Close drains the queue and flushes. Write and Flush must not be called after Close.
func (w *asyncWriter) Close() error {
	w.closeOnce.Do(func() { close(w.reqs) })
	<-w.done
	return w.sticky()
}

func (w *asyncWriter) write(p []byte) error {
	for _, sink := range w.sinks {
		if _, err := sink.Write(p); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, sink := range w.sinks {
		errs = append(errs, sink.Flush())
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) sticky() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
