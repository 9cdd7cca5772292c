package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the ledger's Prometheus instruments. A nil *Collector is valid
// and records nothing.
type Collector struct {
	Checkouts        *prometheus.CounterVec
	SalesRecorded    *prometheus.CounterVec
	UnitsSold        prometheus.Counter
	StockAdjustments *prometheus.CounterVec
	LowStockProducts *prometheus.GaugeVec
	RequestCounter   *prometheus.CounterVec
	RequestLatency   *prometheus.HistogramVec
}

// NewCollector creates the instruments and registers them on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_checkouts_total",
				Help: "Cart checkouts by outcome",
			},
			[]string{"outcome"},
		),
		SalesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_sales_recorded_total",
				Help: "Sold-item records created",
			},
			[]string{"source"},
		),
		UnitsSold: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_units_sold_total",
				Help: "Stock units moved out of inventory by sales",
			},
		),
		StockAdjustments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_stock_adjustments_total",
				Help: "Units added to or removed from stock by reason",
			},
			[]string{"reason", "direction"},
		),
		LowStockProducts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ledger_low_stock_products",
				Help: "Products below the low-stock threshold at last listing",
			},
			[]string{"user"},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}

	reg.MustRegister(
		c.Checkouts,
		c.SalesRecorded,
		c.UnitsSold,
		c.StockAdjustments,
		c.LowStockProducts,
		c.RequestCounter,
		c.RequestLatency,
	)
	return c
}

// Checkout counts a checkout outcome (committed, rejected, failed, partial)
func (c *Collector) Checkout(outcome string) {
	if c == nil {
		return
	}
	c.Checkouts.WithLabelValues(outcome).Inc()
}

// Sale counts a sold-item record and its units
func (c *Collector) Sale(source string, units int) {
	if c == nil {
		return
	}
	c.SalesRecorded.WithLabelValues(source).Inc()
	c.UnitsSold.Add(float64(units))
}

// Adjustment counts a stock change
func (c *Collector) Adjustment(reason string, delta int) {
	if c == nil || delta == 0 {
		return
	}
	direction := "in"
	if delta < 0 {
		direction = "out"
		delta = -delta
	}
	c.StockAdjustments.WithLabelValues(reason, direction).Add(float64(delta))
}

// LowStock records the number of low-stock products for user
func (c *Collector) LowStock(user string, count int) {
	if c == nil {
		return
	}
	c.LowStockProducts.WithLabelValues(user).Set(float64(count))
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware wraps a handler with request count and latency instruments
func (c *Collector) Middleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	if c == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		c.RequestLatency.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		c.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
	}
}
