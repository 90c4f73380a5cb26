// Package metrics exposes Prometheus collectors shared by bots built on the core
// and the optional /metrics listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/gallerybot/core/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HandlerTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_handler_total",
		Help: "Telegram updates handled, by handler and status",
	}, []string{"handler", "status"})

	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tg_handler_duration_seconds",
		Help:    "Time spent in Telegram handlers",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"handler"})

	RepliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_replies_total",
		Help: "Replies accepted by Telegram, by payload kind and keyboard presence",
	}, []string{"kind", "keyboard"})

	SendFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_sender_failures_total",
		Help: "Outbound Telegram calls that failed after all retries",
	}, []string{"endpoint", "kind"})
)

// ObserveHandler records a finished handler invocation.
func ObserveHandler(handler, status string, elapsed time.Duration) {
	if handler == "" {
		handler = "unknown"
	}
	if status == "" {
		status = "ok"
	}
	HandlerTotal.WithLabelValues(handler, status).Inc()
	HandlerDuration.WithLabelValues(handler).Observe(elapsed.Seconds())
}

// IncReply records a reply Telegram accepted.
func IncReply(kind, keyboard string) {
	RepliesTotal.WithLabelValues(kind, keyboard).Inc()
}

// IncSendFailure records an outbound call that was given up on.
func IncSendFailure(endpoint, kind string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if kind == "" {
		kind = "unknown"
	}
	SendFailuresTotal.WithLabelValues(endpoint, kind).Inc()
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve listens on addr and serves /metrics until ctx is done.
func Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, ln)
}

// ServeListener serves /metrics on ln until ctx is done.
func ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info(ctx, "metrics", "listen", slog.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
