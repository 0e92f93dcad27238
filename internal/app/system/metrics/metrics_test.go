package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/wastehub/wastehub/internal/app/system/metrics"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.Assignment(metrics.ResultOK)
	m.Transition("resolved", metrics.ResultFailed)
	m.SortFallback("by_org")
	m.RosterOpened()
	m.RosterClosed()
}

func TestHandlerExposesCounters(t *testing.T) {
	m := metrics.New()
	m.Assignment(metrics.Result(nil))
	m.Assignment(metrics.Result(errors.New("x")))
	m.SortFallback("by_org")
	m.RosterOpened()

	n, err := testutil.GatherAndCount(m.Registry(), "wastehub_assignments_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `wastehub_report_sort_fallback_total{query="by_org"} 1`), body)
	require.Contains(t, body, "wastehub_roster_subscriptions 1")
}
