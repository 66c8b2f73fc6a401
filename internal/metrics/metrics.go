package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - счетчики жизненного цикла заявок и HTTP-запросов.
type Metrics struct {
	BidsCreated     prometheus.Counter
	BidsAccepted    prometheus.Counter
	RequestsExpired prometheus.Counter
	LifecycleErrors *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New создает счетчики и регистрирует их в собственном реестре.
func New() *Metrics {
	m := &Metrics{
		BidsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_bids_created_total",
			Help: "bids placed by providers",
		}),
		BidsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_bids_accepted_total",
			Help: "bids accepted by clients",
		}),
		RequestsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_requests_expired_total",
			Help: "service requests cancelled by the expiry sweeper",
		}),
		LifecycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_lifecycle_errors_total",
			Help: "failed lifecycle operations by error kind",
		}, []string{"kind"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_http_requests_total",
			Help: "served HTTP requests by method and status code",
		}, []string{"method", "code"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.BidsCreated,
		m.BidsAccepted,
		m.RequestsExpired,
		m.LifecycleErrors,
		m.HTTPRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Error учитывает ошибку операции по ее виду.
func (m *Metrics) Error(kind string) {
	if kind == "" {
		return
	}
	m.LifecycleErrors.WithLabelValues(kind).Inc()
}

type HealthFunc func(ctx context.Context) error

// Handler отдает /metrics и /healthz.
func (m *Metrics) Handler(healthFn HealthFunc) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}
