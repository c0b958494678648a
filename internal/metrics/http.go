package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Route labels. Every path that reaches the lookup handler shares one label
// so arbitrary request paths cannot grow the series count.
const (
	RouteLookup    = "lookup"
	RouteUnmatched = "unmatched"
)

// HTTPMetrics counts requests to the daemon by route and status
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	InFlight prometheus.Gauge

	skip map[string]bool
}

// NewHTTPMetrics registers the request collectors on reg. Requests to the
// skip routes (registered echo paths) are not recorded.
func NewHTTPMetrics(reg prometheus.Registerer, skip ...string) *HTTPMetrics {
	m := &HTTPMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests answered by the dictfocus server, by route and status code.",
		}, []string{"method", "route", "status_code"}),
		// A lookup request holds the connection for the whole sequence,
		// so the buckets cover the settle and in-app search waits.
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time from request to response, including queueing behind a running lookup.",
			Buckets:   []float64{.005, .05, .25, 1, 1.5, 8, 9, 15, 30},
		}, []string{"method", "route", "status_code"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently waiting for or running a lookup.",
		}),
		skip: make(map[string]bool, len(skip)),
	}
	for _, route := range skip {
		m.skip[route] = true
	}

	reg.MustRegister(m.Requests, m.Latency, m.InFlight)
	return m
}

// RouteLabel maps an echo route path onto the route label
func RouteLabel(path string) string {
	switch path {
	case "":
		return RouteUnmatched
	case "/", "/*":
		return RouteLookup
	default:
		return path
	}
}

// Middleware records every request not on a skipped route
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.skip[c.Path()] {
				return next(c)
			}

			m.InFlight.Inc()
			start := time.Now()
			err := next(c)
			if err != nil {
				// Commit the error response so the status label is final
				c.Error(err)
			}
			m.InFlight.Dec()

			labels := prometheus.Labels{
				"method":      c.Request().Method,
				"route":       RouteLabel(c.Path()),
				"status_code": strconv.Itoa(c.Response().Status),
			}
			m.Requests.With(labels).Inc()
			m.Latency.With(labels).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
