package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Idempotent(t *testing.T) {
	require.NotPanics(t, Init)
	require.NotPanics(t, Init)
}

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	WebhookEventsTotal.WithLabelValues("completed").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("completed")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `webhook_events_total{outcome="completed"} 1`)
}
