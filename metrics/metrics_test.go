package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m Meter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestDisabledReturnsNoop(t *testing.T) {
	m, err := New(&Config{Enabled: false})
	require.NoError(t, err)

	c, err := m.Counter("noop_total", "noop")
	require.NoError(t, err)
	c.Inc(context.Background())

	rec := httptest.NewRecorder()
	Handler(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestCounterExported(t *testing.T) {
	m, err := New(NewDevDefaultConfig("metrics-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ctx := context.Background()
	c, err := m.Counter("autoid_test_events_total", "test events")
	require.NoError(t, err)
	c.Inc(ctx, L("source", "fallback"))
	c.Add(ctx, 2, L("source", "fallback"))
	c.Add(ctx, -5, L("source", "fallback"))

	body := scrape(t, m)
	assert.Contains(t, body, "autoid_test_events_total")
	assert.Contains(t, body, `source="fallback"`)
	assert.Contains(t, body, "} 3")
}

func TestGaugeAndHistogram(t *testing.T) {
	m, err := New(NewDevDefaultConfig("metrics-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ctx := context.Background()
	g, err := m.Gauge("autoid_test_leases", "held leases")
	require.NoError(t, err)
	g.Set(ctx, 5)
	g.Inc(ctx)
	g.Dec(ctx)
	g.Dec(ctx)

	h, err := m.Histogram("autoid_test_wait_seconds", "wait", WithUnit("s"))
	require.NoError(t, err)
	h.Record(ctx, 0.004)

	body := scrape(t, m)
	assert.Contains(t, body, "autoid_test_leases")
	assert.Contains(t, body, "autoid_test_wait_seconds")
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "", labelKey(nil))
	assert.Equal(t, "a=1|b=2", labelKey([]Label{L("a", "1"), L("b", "2")}))
	assert.Nil(t, toAttributes(nil))
}
