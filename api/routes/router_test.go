package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carretedigital/carrete-backend/api/controllers"
	"github.com/carretedigital/carrete-backend/internal/rollupapi"
	"github.com/carretedigital/carrete-backend/pkg/config"
	"github.com/carretedigital/carrete-backend/pkg/db/models"
	apperrors "github.com/carretedigital/carrete-backend/pkg/errors"
	"github.com/carretedigital/carrete-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticReader struct{}

func (staticReader) Get(context.Context, string, rollupapi.Filter) (*models.EventRollup, error) {
	return nil, apperrors.New(apperrors.CodeNotFound, "rollup document not found")
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestRouter() http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})
	deps := map[string]controllers.Pinger{"db": okPinger{}}
	return NewRouter(cfg, logg, staticReader{}, deps, prometheus.NewRegistry())
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/health/live", "/health/ready", "/healthz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "test", rec.Header().Get("X-Carrete-Env"), path)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRollupRouteWired(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rollups/E1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}
