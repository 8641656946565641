package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel zapcore.Level
	}{
		{name: "ok", path: "/api/v1/graph", status: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "health check", path: "/health", status: http.StatusOK, wantLevel: zapcore.DebugLevel},
		{name: "failing health check", path: "/ready", status: http.StatusServiceUnavailable, wantLevel: zapcore.ErrorLevel},
		{name: "client error", path: "/api/v1/graph/local", status: http.StatusBadRequest, wantLevel: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			handler := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)
			assert.Equal(t, int64(tt.status), entries[0].ContextMap()["status"])
		})
	}
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeHTTPMetrics struct {
	requests []recordedRequest
}

func (m *fakeHTTPMetrics) RecordHTTPRequest(method, route string, statusCode int, _ time.Duration) {
	m.requests = append(m.requests, recordedRequest{method: method, route: route, status: statusCode})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	metrics := &fakeHTTPMetrics{}
	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/nodes/{nodeID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nodes/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nodes/43", nil))

	assert.Equal(t, []recordedRequest{
		{method: http.MethodGet, route: "/nodes/{nodeID}", status: http.StatusNotFound},
		{method: http.MethodGet, route: "/nodes/{nodeID}", status: http.StatusNotFound},
	}, metrics.requests)
}
