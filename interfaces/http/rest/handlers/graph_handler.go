package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vaultgraph/application/commands"
	commandbus "vaultgraph/application/commands/bus"
	"vaultgraph/application/queries"
	querybus "vaultgraph/application/queries/bus"
	"vaultgraph/domain/core/valueobjects"
	domainservices "vaultgraph/domain/services"
	"vaultgraph/pkg/auth"
	pkgerrors "vaultgraph/pkg/errors"
)

const (
	defaultLocalDepth = 1
	defaultHubLimit   = 10
)

// GraphHandler handles graph-related HTTP requests
type GraphHandler struct {
	commandBus *commandbus.CommandBus
	queryBus   *querybus.QueryBus
	defaults   domainservices.BuildOptions
	logger     *zap.Logger
}

// NewGraphHandler creates a new graph handler. defaults are the build
// options applied when a request does not override them.
func NewGraphHandler(
	commandBus *commandbus.CommandBus,
	queryBus *querybus.QueryBus,
	defaults domainservices.BuildOptions,
	logger *zap.Logger,
) *GraphHandler {
	return &GraphHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		defaults:   defaults,
		logger:     logger,
	}
}

// GetGraph handles GET /graph
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	opts, err := h.buildOptions(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.ask(w, r, queries.GetGlobalGraphQuery{Options: opts})
}

// GetLocalGraph handles GET /graph/local?id=&depth=
func (h *GraphHandler) GetLocalGraph(w http.ResponseWriter, r *http.Request) {
	depth, err := intParam(r, "depth", defaultLocalDepth)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	opts, err := h.buildOptions(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.ask(w, r, queries.GetLocalGraphQuery{
		Identifier: r.URL.Query().Get("id"),
		Depth:      depth,
		Options:    opts,
	})
}

// FilterByTag handles GET /graph/tags/{tag}. Nested tags keep their slashes.
func (h *GraphHandler) FilterByTag(w http.ResponseWriter, r *http.Request) {
	opts, err := h.buildOptions(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.ask(w, r, queries.FilterByTagQuery{
		Tag:     valueobjects.Decode(chi.URLParam(r, "*")),
		Options: opts,
	})
}

// GetStats handles GET /graph/stats
func (h *GraphHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetGraphStatsQuery{})
}

// FindNode handles GET /graph/nodes/find?q=
func (h *GraphHandler) FindNode(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.FindNodeQuery{Identifier: r.URL.Query().Get("q")})
}

// GetNeighbors handles GET /graph/nodes/{nodeID}/neighbors?depth=
func (h *GraphHandler) GetNeighbors(w http.ResponseWriter, r *http.Request) {
	depth, err := intParam(r, "depth", defaultLocalDepth)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.ask(w, r, queries.GetNeighborsQuery{
		NodeID: chi.URLParam(r, "nodeID"),
		Depth:  depth,
	})
}

// GetConnectivity handles GET /graph/nodes/{nodeID}/connectivity
func (h *GraphHandler) GetConnectivity(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetConnectivityQuery{NodeID: chi.URLParam(r, "nodeID")})
}

// FindPath handles GET /graph/path?from=&to=
func (h *GraphHandler) FindPath(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.FindPathQuery{
		FromID: r.URL.Query().Get("from"),
		ToID:   r.URL.Query().Get("to"),
	})
}

// GetHubs handles GET /graph/hubs?limit=
func (h *GraphHandler) GetHubs(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultHubLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.ask(w, r, queries.GetHubsQuery{Limit: limit})
}

// GetOrphans handles GET /graph/orphans
func (h *GraphHandler) GetOrphans(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetOrphansQuery{})
}

// Refresh handles POST /graph/refresh
func (h *GraphHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.commandBus.Send(r.Context(), commands.RefreshGraphCommand{}); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetVault handles GET /vault
func (h *GraphHandler) GetVault(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, queries.GetCurrentVaultQuery{})
}

// SwitchVault handles PUT /vault
func (h *GraphHandler) SwitchVault(w http.ResponseWriter, r *http.Request) {
	var cmd commands.SwitchVaultCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.respondError(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	cmd.VaultID = strings.TrimSpace(cmd.VaultID)

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && !claims.CanRead(cmd.VaultID) {
		h.respondError(w, r, pkgerrors.NewForbiddenError("token does not grant access to vault "+cmd.VaultID))
		return
	}

	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, queries.VaultResult{VaultID: cmd.VaultID})
}

// ask dispatches a query and writes its result
func (h *GraphHandler) ask(w http.ResponseWriter, r *http.Request, query querybus.Query) {
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// buildOptions overlays request parameters on the default build options
func (h *GraphHandler) buildOptions(r *http.Request) (domainservices.BuildOptions, error) {
	opts := h.defaults
	q := r.URL.Query()

	var err error
	if opts.IncludeTags, err = boolParam(r, "includeTags", opts.IncludeTags); err != nil {
		return opts, err
	}
	if opts.IncludeOrphanNodes, err = boolParam(r, "includeOrphans", opts.IncludeOrphanNodes); err != nil {
		return opts, err
	}
	if opts.MaxNodes, err = intParam(r, "maxNodes", opts.MaxNodes); err != nil {
		return opts, err
	}
	if raw := q.Get("fileTypes"); raw != "" {
		opts.FileTypeFilter = strings.Split(raw, ",")
	}
	return opts, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.NewValidationErrorf("%s must be an integer", name)
	}
	return v, nil
}

func boolParam(r *http.Request, name string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.NewValidationErrorf("%s must be a boolean", name)
	}
	return v, nil
}

// Helper methods

func (h *GraphHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *GraphHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := pkgerrors.HTTPStatusOf(err)
	message := http.StatusText(status)
	errType := string(pkgerrors.ErrorTypeInternal)

	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		errType = string(appErr.Type)
		if status < http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"type":    errType,
		"message": message,
		"code":    status,
	})
}
