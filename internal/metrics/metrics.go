package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics bundles the Prometheus collectors for the storefront.
type StorefrontMetrics struct {
	cartMutations   *prometheus.CounterVec
	cartValue       prometheus.Histogram
	catalogLoads    prometheus.Counter
	catalogFailures prometheus.Counter
	activeSessions  prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

// NewStorefrontMetrics registers the collectors on the default registerer.
// Registration tolerates duplicates so tests can construct metrics repeatedly.
func NewStorefrontMetrics() *StorefrontMetrics {
	return newStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		cartMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Total number of cart mutations by operation",
		}, []string{"op"}),
		cartValue: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_cart_value",
			Help:    "Cart grand total observed after each change",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		catalogLoads: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_catalog_loads_total",
			Help: "Total number of successful catalog loads",
		}),
		catalogFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_catalog_load_failures_total",
			Help: "Total number of failed catalog fetches",
		}),
		activeSessions: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_active_sessions",
			Help: "Number of sessions with an instantiated cart engine",
		}),
		requestDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// CartMutation counts one cart operation (add, change_qty, remove, clear,
// checkout).
func (m *StorefrontMetrics) CartMutation(op string) {
	m.cartMutations.WithLabelValues(op).Inc()
}

// CartChanged observes the cart value after a change signal.
func (m *StorefrontMetrics) CartChanged(grandTotal float64) {
	m.cartValue.Observe(grandTotal)
}

// CatalogLoad counts the outcome of a catalog fetch.
func (m *StorefrontMetrics) CatalogLoad(ok bool) {
	if ok {
		m.catalogLoads.Inc()
	} else {
		m.catalogFailures.Inc()
	}
}

// SetActiveSessions records the current cart engine count.
func (m *StorefrontMetrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// ObserveRequest records one HTTP request duration.
func (m *StorefrontMetrics) ObserveRequest(method, route string, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector.(prometheus.Counter)
		}
		panic(err)
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector.(prometheus.Histogram)
		}
		panic(err)
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector.(*prometheus.HistogramVec)
		}
		panic(err)
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector.(prometheus.Gauge)
		}
		panic(err)
	}
	return collector
}
