package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vaultgraph/application/commands"
	commandbus "vaultgraph/application/commands/bus"
	"vaultgraph/application/ports"
	querybus "vaultgraph/application/queries/bus"
	"vaultgraph/application/queries/handlers"
	"vaultgraph/application/services"
	"vaultgraph/domain/core/entities"
	domainservices "vaultgraph/domain/services"
	"vaultgraph/infrastructure/observability"
	"vaultgraph/pkg/auth"
)

var vaults = map[string][]entities.DocumentRecord{
	"notes": {
		{Path: "A.md", Tags: []string{"x"}, Links: []entities.LinkRef{{Path: "B.md"}}},
		{Path: "B.md", Links: []entities.LinkRef{{Path: "C.md"}}},
		{Path: "C.md"},
		{Path: "Lonely.md"},
		{Path: "Projects/Plan.md", Tags: []string{"project/alpha"}},
	},
	"work": {
		{Path: "Todo.md"},
	},
}

type testServer struct {
	handler http.Handler
	graphs  *services.GraphService
}

func newTestServer(t *testing.T, options RouterOptions) *testServer {
	t.Helper()

	provider := ports.MetadataProviderFunc(func(ctx context.Context, vaultID string) ([]entities.DocumentRecord, error) {
		if vaultID == "broken" {
			return nil, errors.New("metadata offline")
		}
		return vaults[vaultID], nil
	})
	graphs := services.NewGraphService(provider, nil, nil, nil, zap.NewNop(), services.GraphServiceConfig{
		DefaultVault:   "notes",
		DefaultOptions: domainservices.DefaultBuildOptions(),
	})

	qb := querybus.NewQueryBus()
	require.NoError(t, handlers.NewGraphQueryHandler(graphs, zap.NewNop()).Register(qb))
	cb := commandbus.NewCommandBus()
	require.NoError(t, commands.RegisterGraphCommands(cb, graphs))

	options.DefaultOptions = domainservices.DefaultBuildOptions()
	options.CurrentVault = graphs.CurrentVault

	return &testServer{
		handler: NewRouter(cb, qb, options, zap.NewNop()).Setup(),
		graphs:  graphs,
	}
}

func (s *testServer) do(t *testing.T, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func nodeCount(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	return len(decode(t, rec)["nodes"].([]interface{}))
}

func TestRouter_GraphEndpoints(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantNodes  int
	}{
		{name: "global", target: "/api/v1/graph", wantStatus: http.StatusOK, wantNodes: 7},
		{name: "global without tags", target: "/api/v1/graph?includeTags=false", wantStatus: http.StatusOK, wantNodes: 5},
		{name: "global capped", target: "/api/v1/graph?maxNodes=2", wantStatus: http.StatusOK, wantNodes: 2},
		{name: "local default depth", target: "/api/v1/graph/local?id=C", wantStatus: http.StatusOK, wantNodes: 2},
		{name: "local depth 2", target: "/api/v1/graph/local?id=C&depth=2", wantStatus: http.StatusOK, wantNodes: 3},
		{name: "local unknown", target: "/api/v1/graph/local?id=Nope", wantStatus: http.StatusOK, wantNodes: 0},
		{name: "nested tag", target: "/api/v1/graph/tags/project/alpha", wantStatus: http.StatusOK, wantNodes: 2},
		{name: "hash tag", target: "/api/v1/graph/tags/%23x", wantStatus: http.StatusOK, wantNodes: 2},
		{name: "negative depth", target: "/api/v1/graph/local?id=C&depth=-1", wantStatus: http.StatusBadRequest},
		{name: "bad bool", target: "/api/v1/graph?includeTags=maybe", wantStatus: http.StatusBadRequest},
		{name: "missing id", target: "/api/v1/graph/local", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.target, "", nil)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantNodes, nodeCount(t, rec))
			} else {
				assert.Equal(t, "VALIDATION", decode(t, rec)["type"])
			}
		})
	}
}

func TestRouter_AnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodGet, "/api/v1/graph/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.Equal(t, float64(7), stats["totalNodes"])
	assert.Equal(t, float64(2), stats["totalTags"])

	rec = s.do(t, http.MethodGet, "/api/v1/graph/nodes/find?q=A", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	a := decode(t, rec)
	assert.Equal(t, "A", a["title"])
	aID := a["id"].(string)

	rec = s.do(t, http.MethodGet, "/api/v1/graph/nodes/find?q=Nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/graph/nodes/find?q=C", "", nil)
	cID := decode(t, rec)["id"].(string)

	rec = s.do(t, http.MethodGet, "/api/v1/graph/path?from="+aID+"&to="+cID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	path := decode(t, rec)
	assert.Equal(t, true, path["found"])
	assert.Equal(t, float64(2), path["length"])

	rec = s.do(t, http.MethodGet, "/api/v1/graph/nodes/"+aID+"/neighbors", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["count"]) // B and #x

	rec = s.do(t, http.MethodGet, "/api/v1/graph/nodes/"+aID+"/connectivity", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"#x"}, decode(t, rec)["connectedTags"])

	rec = s.do(t, http.MethodGet, "/api/v1/graph/nodes/999/connectivity", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/graph/hubs?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = s.do(t, http.MethodGet, "/api/v1/graph/hubs?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/graph/orphans", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
}

func TestRouter_Vault(t *testing.T) {
	s := newTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodGet, "/api/v1/vault", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "notes", decode(t, rec)["vaultId"])

	rec = s.do(t, http.MethodPut, "/api/v1/vault", `{"vaultId": " work "}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "work", s.graphs.CurrentVault())

	rec = s.do(t, http.MethodGet, "/api/v1/graph", "", nil)
	assert.Equal(t, 1, nodeCount(t, rec))

	rec = s.do(t, http.MethodPut, "/api/v1/vault", `{"vaultId": ""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/vault", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/graph/refresh", "", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRouter_UnavailableMetadataIsEmptyGraph(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	require.NoError(t, s.graphs.SwitchVault(context.Background(), "broken"))

	rec := s.do(t, http.MethodGet, "/api/v1/graph", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, nodeCount(t, rec))
}

func TestRouter_Authentication(t *testing.T) {
	config := auth.JWTConfig{SecretKey: "0123456789abcdef0123456789abcdef", Issuer: "vaultgraph", Audience: []string{auth.DefaultAudience}}
	validator, err := auth.NewJWTValidator(config)
	require.NoError(t, err)
	s := newTestServer(t, RouterOptions{Validator: validator})

	notesOnly, err := auth.GenerateToken(config, "alice", []string{"notes"}, time.Hour)
	require.NoError(t, err)
	bearer := http.Header{"Authorization": {"Bearer " + notesOnly}}

	rec := s.do(t, http.MethodGet, "/api/v1/graph/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/graph/stats", "", http.Header{"Authorization": {"Bearer garbage"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/graph/stats", "", bearer)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/vault", `{"vaultId": "work"}`, bearer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "notes", s.graphs.CurrentVault())

	// health stays public
	rec = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	collector := observability.NewCollector("vaultgraph")

	failing := errors.New("table missing")
	s := newTestServer(t, RouterOptions{
		Metrics:  collector,
		Registry: collector.Registry(),
		Readiness: map[string]ReadinessCheck{
			"metadata": func(context.Context) error { return failing },
		},
	})

	rec := s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", decode(t, rec)["status"])

	s.do(t, http.MethodGet, "/api/v1/graph/stats", "", nil)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vaultgraph_http_requests_total{method="GET",route="/api/v1/graph/stats",status="200"} 1`)
}

func TestRouter_CORS(t *testing.T) {
	s := newTestServer(t, RouterOptions{AllowedOrigins: []string{"https://app.example.com"}})

	rec := s.do(t, http.MethodOptions, "/api/v1/graph", "", http.Header{
		"Origin":                        {"https://app.example.com"},
		"Access-Control-Request-Method": {"GET"},
	})
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
