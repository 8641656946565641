package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vaultgraph/application/commands/bus"
	querybus "vaultgraph/application/queries/bus"
	domainservices "vaultgraph/domain/services"
	"vaultgraph/interfaces/http/rest/handlers"
	"vaultgraph/interfaces/http/rest/middleware"
	"vaultgraph/pkg/auth"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// RouterOptions carries the optional parts of the HTTP surface
type RouterOptions struct {
	DefaultOptions domainservices.BuildOptions

	// CORS is disabled when empty
	AllowedOrigins []string

	// Authentication is disabled when Validator is nil
	Validator    *auth.JWTValidator
	CurrentVault func() string

	// Request metrics and /metrics are disabled when nil
	Metrics  middleware.HTTPMetrics
	Registry *prometheus.Registry

	Readiness map[string]ReadinessCheck
}

// Router assembles the chi mux for the graph API
type Router struct {
	commands *bus.CommandBus
	queries  *querybus.QueryBus
	opts     RouterOptions
	logger   *zap.Logger
}

func NewRouter(commands *bus.CommandBus, queries *querybus.QueryBus, opts RouterOptions, logger *zap.Logger) *Router {
	return &Router{commands: commands, queries: queries, opts: opts, logger: logger}
}

// Setup returns a fresh *chi.Mux; the Lambda entrypoint relies on that type.
func (rt *Router) Setup() http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer, middleware.Logger(rt.logger))
	if rt.opts.Metrics != nil {
		mux.Use(middleware.Metrics(rt.opts.Metrics))
	}
	if len(rt.opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", liveness)
	mux.Get("/ready", rt.readiness)
	if rt.opts.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(rt.opts.Registry, promhttp.HandlerOpts{}))
	}

	h := handlers.NewGraphHandler(rt.commands, rt.queries, rt.opts.DefaultOptions, rt.logger)
	mux.Route("/api/v1", func(api chi.Router) {
		if rt.opts.Validator != nil {
			api.Use(middleware.Authenticate(rt.opts.Validator, rt.opts.CurrentVault, rt.logger))
		}

		api.Route("/graph", func(g chi.Router) {
			g.Get("/", h.GetGraph)
			g.Get("/local", h.GetLocalGraph)
			g.Get("/tags/*", h.FilterByTag)
			g.Get("/stats", h.GetStats)
			g.Get("/path", h.FindPath)
			g.Get("/hubs", h.GetHubs)
			g.Get("/orphans", h.GetOrphans)
			g.Post("/refresh", h.Refresh)

			g.Get("/nodes/find", h.FindNode)
			g.Get("/nodes/{nodeID}/neighbors", h.GetNeighbors)
			g.Get("/nodes/{nodeID}/connectivity", h.GetConnectivity)
		})

		api.Get("/vault", h.GetVault)
		api.Put("/vault", h.SwitchVault)
	})
	return mux
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readiness runs every registered check under a shared two second deadline
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ready := true
	results := make(map[string]string, len(rt.opts.Readiness))
	for name, check := range rt.opts.Readiness {
		results[name] = "ok"
		if err := check(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			ready = false
		}
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "checks": results})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "checks": results})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
