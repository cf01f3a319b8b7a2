package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/autoid/xerrors"
)

func TestInitValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"missing service", &Config{Endpoint: "localhost:4317"}},
		{"sampler out of range", &Config{ServiceName: "svc", Sampler: 1.5}},
		{"unknown batcher", &Config{ServiceName: "svc", Batcher: "async"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Init(tt.cfg)
			require.Error(t, err)
			assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))
		})
	}
}

func TestInitWithoutEndpointDiscards(t *testing.T) {
	shutdown, err := Init(&Config{ServiceName: "autoid-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestInitCreatesExporterLazily(t *testing.T) {
	cfg := DefaultConfig("autoid-test")
	cfg.Endpoint = "127.0.0.1:1"
	shutdown, err := Init(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestGinMiddlewareStartsSpan(t *testing.T) {
	shutdown, err := Discard("autoid-test")
	require.NoError(t, err)
	defer shutdown(context.Background())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware("autoid-test"))

	var sc oteltrace.SpanContext
	r.GET("/ids", func(c *gin.Context) {
		sc = oteltrace.SpanContextFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ids", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, sc.IsValid())
	assert.True(t, sc.IsSampled())
}
