package monitoring

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()

	m.RecordAliasTransition(TransitionCreated, 2)
	m.RecordAliasTransition(TransitionCreated, 0)
	m.RecordQuotaRejection("aliases")
	m.RecordLogin("success")
	m.RecordSessionsRevoked(3)
	m.RecordHTTPRequest("GET", "/v1/aliases", "200", 10*time.Millisecond, 0, 128)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.AliasTransitions.WithLabelValues(TransitionCreated)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QuotaRejections.WithLabelValues("aliases")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LoginsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SessionsRevoked))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/aliases", "200")))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	// 每个实例使用独立的注册表，重复创建不会 panic
	a := NewMetrics()
	b := NewMetrics()

	a.RecordUserRegistered()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.UsersRegistered))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.UsersRegistered))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAliasTransition(TransitionDeleted, 1)
		m.RecordPanic()
		m.UpdateSystemMetrics()
	})
}

func TestMetrics_HTTPHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordUserRegistered()
	m.UpdateSystemMetrics()

	rec := httptest.NewRecorder()
	m.HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "k9aliases_users_registered_total 1")
	assert.Contains(t, string(body), "k9aliases_system_uptime_seconds")
}
