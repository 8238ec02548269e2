package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	invocations = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bridge_invocations_total", Help: "Agent invocations by outcome"}, []string{"agent", "status"})
	durations   = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bridge_invocation_duration_seconds",
		Help:    "Agent invocation latency",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
	}, []string{"agent"})
	rejected      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bridge_rejected_total", Help: "Invoke requests rejected before reaching an agent"}, []string{"reason"})
	upstreamCalls = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bridge_upstream_responses_total", Help: "Upstream HTTP replies by status code"}, []string{"code"})
	tokenRefresh  = prometheus.NewCounter(prometheus.CounterOpts{Name: "bridge_token_refresh_total", Help: "Bearer token fetches"})
)

func init() {
	prometheus.MustRegister(invocations, durations, rejected, upstreamCalls, tokenRefresh)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Start runs a Prometheus handler on the given listen addr until ctx is done.
func Start(ctx context.Context, listen string, log *slog.Logger) error {
	if listen == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if log != nil {
				log.Error("metrics server failed", slog.String("err", err.Error()))
			}
		}
	}()
	return nil
}

func ObserveInvocation(agent string, ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	invocations.WithLabelValues(agent, status).Inc()
	durations.WithLabelValues(agent).Observe(d.Seconds())
}

func IncRejected(reason string) { rejected.WithLabelValues(reason).Inc() }

func ObserveUpstream(code int) { upstreamCalls.WithLabelValues(strconv.Itoa(code)).Inc() }

func IncTokenRefresh() { tokenRefresh.Inc() }
