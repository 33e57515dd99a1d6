package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RecordsUpstream(t *testing.T) {
	m := NewManager(WithNamespace("test"))

	m.RecordUpstream("stats", "ok", 20*time.Millisecond)
	m.RecordUpstream("stats", "ok", 30*time.Millisecond)
	m.RecordUpstream("stats", "no_data", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("stats", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("stats", "no_data")))
}

func TestManager_ActivityAndDiscovery(t *testing.T) {
	m := NewManager()

	m.RecordActivityBatch(time.Second)
	m.RecordActivityEvents("kept", 3)
	m.RecordActivityEvents("unparseable", 0)
	m.SetDiscoverySize(7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activityBatches))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activityEvents.WithLabelValues("kept")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.discoverySize))
}

func TestManager_NilIsNoop(t *testing.T) {
	var m *Manager

	assert.NotPanics(t, func() {
		m.RecordUpstream("x", "ok", time.Second)
		m.RecordStatsFetch("ok")
		m.RecordHTTPRequest("GET", "/", 200, time.Second)
		m.SetDiscoverySize(1)
	})
	assert.Nil(t, m.Registry())
}

func TestManager_Handler(t *testing.T) {
	m := NewManager()
	m.RecordHTTPRequest(http.MethodGet, "/api/hiscores", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "stormlight_http_requests_total"))
}
