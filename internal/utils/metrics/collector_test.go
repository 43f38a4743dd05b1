package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordQuote(t *testing.T) {
	c := NewCollector()
	c.RecordQuote("get_price_output", OutcomeOK)
	c.RecordQuote("get_price_output", OutcomeOK)
	c.RecordQuote("get_price_input", OutcomePassthrough)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Quotes().WithLabelValues("get_price_output", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Quotes().WithLabelValues("get_price_input", OutcomePassthrough)))

	c.Reset()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Quotes().WithLabelValues("get_price_output", OutcomeOK)))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.RecordQuote("get_price_input", OutcomeOK)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.Quotes().WithLabelValues("get_price_input", OutcomeOK)))
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordQuote("get_price_input", OutcomeOK)
		c.RecordBackendCall("get_price_input", time.Millisecond, true)
		c.SetPumpAmount("0xabc", 1)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.SetPumpAmount("0xabc", 500)
	c.RecordBackendCall("get_price_output", 3*time.Millisecond, false)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pumpsim_pump_amount{token="0xabc"} 500`)
	assert.Contains(t, string(body), `pumpsim_backend_duration_seconds_count{direction="get_price_output",status="failure"} 1`)
}

func TestCollector_RegistryAcceptsRuntimeCollectors(t *testing.T) {
	c := NewCollector()
	c.Registry().MustRegister(collectors.NewGoCollector())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
