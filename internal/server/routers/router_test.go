package routers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"azpoc/backendapi/internal/server/handlers/health"
	"azpoc/backendapi/internal/server/middlewares"
	"azpoc/backendapi/pkg/logger"
	"azpoc/backendapi/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newRouter(development bool, checks ...health.Checker) *gin.Engine {
	log := logger.NewFromZap(zap.NewNop())
	return SetupRoutes(Options{
		Logger:      log,
		Health:      health.NewHandler(log, checks...),
		Metrics:     metrics.New().Handler(),
		Development: development,
	})
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth_Healthy(t *testing.T) {
	w := get(newRouter(false, health.SampleCheck{}), "/health")

	require.Equal(t, http.StatusOK, w.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, health.StatusHealthy, report.Status)
	assert.Equal(t, health.StatusHealthy, report.Entries["Sample"].Status)
	assert.Equal(t, "A healthy result.", report.Entries["Sample"].Description)
	assert.NotEmpty(t, w.Header().Get(middlewares.RequestIDHeader))
}

func TestHealth_Unhealthy(t *testing.T) {
	redisDown := health.NewPingCheck("redis", pingFunc(func(ctx context.Context) error {
		return errors.New("dial tcp: connection refused")
	}))

	w := get(newRouter(false, health.SampleCheck{}, redisDown), "/health")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, health.StatusUnhealthy, report.Status)
	assert.Equal(t, health.StatusHealthy, report.Entries["Sample"].Status)
	assert.Equal(t, health.StatusUnhealthy, report.Entries["redis"].Status)
	assert.Contains(t, report.Entries["redis"].Description, "connection refused")
}

func TestHealth_NoChecks(t *testing.T) {
	w := get(newRouter(false), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSwagger_OnlyInDevelopment(t *testing.T) {
	w := get(newRouter(true, health.SampleCheck{}), "/swagger/doc.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/health"`)

	w = get(newRouter(false, health.SampleCheck{}), "/swagger/doc.json")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	w := get(newRouter(false), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "backendapi_messages_received_total")
}

func TestNoRoute(t *testing.T) {
	w := get(newRouter(false), "/api/unknown")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"meta":{"code":404,"message":"route not found"}}`, w.Body.String())
}

func TestRecovery(t *testing.T) {
	r := newRouter(false)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := get(r, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestErrorHandler(t *testing.T) {
	r := newRouter(false)
	r.GET("/fail", func(c *gin.Context) { _ = c.Error(errors.New("downstream failed")) })

	w := get(r, "/fail")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"meta":{"code":500,"message":"downstream failed"}}`, w.Body.String())
}
