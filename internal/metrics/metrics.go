package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"tiffin-api/internal/models"
	"tiffin-api/internal/services"
)

// Metrics exposes Prometheus collectors for order batches and expiry sweeps.
// It plugs into the engine as a BatchObserver and SweepObserver.
type Metrics struct {
	batches       *prometheus.CounterVec
	items         *prometheus.CounterVec
	batchDuration prometheus.Histogram
	batchesActive prometheus.Gauge
	expirations   *prometheus.CounterVec
}

// New registers the collectors with reg; nil uses the default registerer.
// A registration error other than an identical collector panics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tiffin",
			Subsystem: "orders",
			Name:      "batches_total",
			Help:      "Order creation batches by final log status.",
		}, []string{"status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tiffin",
			Subsystem: "orders",
			Name:      "items_total",
			Help:      "Processed (subscription, meal type) items by outcome and failure code.",
		}, []string{"outcome", "failure_code", "retry"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tiffin",
			Subsystem: "orders",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of order creation batches.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		batchesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tiffin",
			Subsystem: "orders",
			Name:      "batches_active",
			Help:      "Order creation batches currently running.",
		}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tiffin",
			Subsystem: "subscriptions",
			Name:      "expired_total",
			Help:      "Subscriptions handled by the expiry sweep by result.",
		}, []string{"result"}),
	}

	m.batches = register(reg, m.batches)
	m.items = register(reg, m.items)
	m.batchDuration = register(reg, m.batchDuration)
	m.batchesActive = register(reg, m.batchesActive)
	m.expirations = register(reg, m.expirations)

	// export every batch item series from the first scrape
	m.items.WithLabelValues("created", "", "false")
	for _, code := range models.FailureCodes() {
		m.items.WithLabelValues("failed", string(code), "false")
	}
	return m
}

// register reuses an identical collector that is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) OnBatchStart(context.Context, services.BatchStartEvent) {
	m.batchesActive.Inc()
}

func (m *Metrics) OnItem(_ context.Context, e services.ItemEvent) {
	retry := "false"
	if e.Retry {
		retry = "true"
	}
	if e.Failure != nil {
		m.items.WithLabelValues("failed", string(e.Failure.Code), retry).Inc()
		return
	}
	m.items.WithLabelValues("created", "", retry).Inc()
}

func (m *Metrics) OnBatchEnd(_ context.Context, e services.BatchEndEvent) {
	m.batchesActive.Dec()
	m.batches.WithLabelValues(string(e.Log.Status)).Inc()
	m.batchDuration.Observe(e.Duration.Seconds())
}

func (m *Metrics) OnSweep(_ context.Context, r services.SweepResult) {
	m.expirations.WithLabelValues("expired").Add(float64(r.Expired))
	m.expirations.WithLabelValues("failed").Add(float64(r.Failed))
}

var (
	_ services.BatchObserver = (*Metrics)(nil)
	_ services.SweepObserver = (*Metrics)(nil)
)
