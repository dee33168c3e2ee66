package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
)

func TestSetupMetricsExposesCounters(t *testing.T) {
	m, err := SetupMetrics("test-service")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	counter, err := m.Provider.Meter("test").Int64Counter("tts_fallback_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tts_fallback_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSetupTracingWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupTracing("test-service", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "speak")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name": "speak"`)
}

func TestServiceResourceMergesWithSDKDefault(t *testing.T) {
	res, err := serviceResource("voice-dialogue")
	require.NoError(t, err)

	name, ok := res.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "voice-dialogue", name.AsString())
	assert.Equal(t, resource.Default().SchemaURL(), res.SchemaURL())
}
