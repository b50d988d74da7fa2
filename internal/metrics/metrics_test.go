package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveCycle(t *testing.T) {
	m := New(prometheus.NewRegistry())
	start := time.Unix(1700000000, 0)
	m.ObserveCycle(start, start.Add(3*time.Second))
	m.PairScans.WithLabelValues("ok").Add(3)
	m.AlertsFired.WithLabelValues("BULLISH").Inc()

	assert.Equal(t, testutil.ToFloat64(m.CyclesTotal), 1.0)
	assert.Equal(t, testutil.ToFloat64(m.LastCycleUnix), float64(start.Add(3*time.Second).Unix()))
	assert.Equal(t, testutil.ToFloat64(m.PairScans.WithLabelValues("ok")), 3.0)
	assert.Equal(t, testutil.CollectAndCount(m.AlertsFired), 1)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.AlertsSuppressed.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	assert.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "heikinsentinel_alerts_suppressed_total 1"))
}

func TestHealth(t *testing.T) {
	h := NewHealth(time.Minute)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, rec.Code, http.StatusServiceUnavailable)

	h.CycleDone(time.Now(), 400)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.True(t, strings.Contains(rec.Body.String(), `"pairs":400`))
}
