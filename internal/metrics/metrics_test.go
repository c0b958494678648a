package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/dictfocus/internal/sequencer"
)

func TestLookupMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLookupMetrics(reg)

	m.Observe("hello", time.Second, nil)
	m.Observe("good morning", 8*time.Second, nil)
	m.Observe("hello", 10*time.Millisecond, &sequencer.AutomationError{Step: sequencer.StepOpenLookup, Err: errors.New("exit status 1")})
	m.Observe("hello", 0, fmt.Errorf("%w: context deadline exceeded", sequencer.ErrBusy))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("simple", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("special", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("simple", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues("simple", OutcomeBusy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepFailures.WithLabelValues(string(sequencer.StepOpenLookup))))

	// One histogram per mode
	assert.Equal(t, 2, testutil.CollectAndCount(m.LookupDuration))
}

func TestMode(t *testing.T) {
	assert.Equal(t, "simple", Mode("hello"))
	assert.Equal(t, "special", Mode("hello world"))
}

func TestHTTPMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "/healthz")

	e := echo.New()
	e.Use(m.Middleware())
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/", ok)
	e.GET("/*", ok)
	e.GET("/healthz", ok)

	for _, path := range []string{"/", "/some/word", "/healthz"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, RouteLookup, "200")), "lookup paths share one label")
	assert.Equal(t, 1, testutil.CollectAndCount(m.Requests), "skipped routes are not counted")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}

func TestHTTPMiddlewareErrorStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "lookup queue busy")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, RouteLookup, "503")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Requests), "error responses are not counted as 200")
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, RouteLookup, RouteLabel("/"))
	assert.Equal(t, RouteLookup, RouteLabel("/*"))
	assert.Equal(t, RouteUnmatched, RouteLabel(""))
	assert.Equal(t, "/history", RouteLabel("/history"))
}

func TestRegistryServesMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewLookupMetrics(reg)
	m.Observe("hello", time.Second, nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dictfocus_lookup_total{mode="simple",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), "go_build_info")
	assert.Contains(t, rec.Body.String(), "promhttp_metric_handler_requests_total")
}
