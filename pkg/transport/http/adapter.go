// Package http serves the vector-view HTML views and JSON API.
package http

import (
	"net/http"

	"github.com/NikolayKlyatishev/vector-view/pkg/transport"
)

// Services are the core components the adapter dispatches to.
// Preferences may be nil, which disables /api/preferences.
type Services struct {
	Connections transport.ConnectionService
	Queries     transport.QueryService
	Settings    transport.SettingsService
	Preferences transport.PreferenceService
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// MetricsHandler is mounted on MetricsPath when non-nil.
	MetricsPath    string
	MetricsHandler http.Handler

	// MCPHandler is mounted on MCPPath when non-nil.
	MCPPath    string
	MCPHandler http.Handler
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20,
		MetricsPath: "/metrics",
		MCPPath:     "/mcp",
	}
}

// Adapter routes HTTP requests to the core services.
type Adapter struct {
	svc    Services
	config Config
	mux    *http.ServeMux
	views  *views
}

// NewAdapter registers every route on a fresh ServeMux.
func NewAdapter(svc Services, cfg Config) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	a := &Adapter{
		svc:    svc,
		config: cfg,
		mux:    http.NewServeMux(),
		views:  mustLoadViews(),
	}

	// HTML views.
	a.mux.HandleFunc("GET /{$}", a.handleIndex)
	a.mux.HandleFunc("GET /collections", a.handleCollectionsView)
	a.mux.HandleFunc("GET /chunks", a.handleChunksView)
	a.mux.HandleFunc("GET /search", a.staticView("search"))
	a.mux.HandleFunc("GET /vectors", a.staticView("vectors"))
	a.mux.HandleFunc("GET /settings", a.handleSettingsView)
	a.mux.HandleFunc("GET /connections", a.handleConnectionsView)

	// Queries.
	a.mux.HandleFunc("GET /api/collections", a.handleListCollections)
	a.mux.HandleFunc("GET /api/chunks", a.handleChunks)
	a.mux.HandleFunc("POST /api/search", a.handleSearch)
	a.mux.HandleFunc("GET /api/vectors", a.handleVectors)
	a.mux.HandleFunc("POST /api/validate-folder", a.handleValidateFolder)

	// Settings and preferences.
	a.mux.HandleFunc("GET /api/settings", a.handleGetSettings)
	a.mux.HandleFunc("POST /api/settings", a.handleUpdateSettings)
	if svc.Preferences != nil {
		a.mux.HandleFunc("GET /api/preferences", a.handleGetPreferences)
		a.mux.HandleFunc("POST /api/preferences", a.handleUpdatePreferences)
	}

	// Connections and session.
	a.mux.HandleFunc("GET /api/db-status", a.handleDBStatus)
	a.mux.HandleFunc("GET /api/connections", a.handleConnectionStatus)
	a.mux.HandleFunc("POST /api/connections", a.handleAddConnection)
	a.mux.HandleFunc("PUT /api/connections/{id}", a.handleUpdateConnection)
	a.mux.HandleFunc("DELETE /api/connections/{id}", a.handleDeleteConnection)
	a.mux.HandleFunc("POST /api/connections/{id}/connect", a.handleConnect)
	a.mux.HandleFunc("POST /api/connections/disconnect", a.handleDisconnect)
	a.mux.HandleFunc("POST /api/connections/validate", a.handleValidateConnection)
	a.mux.HandleFunc("POST /api/connections/create-collection", a.handleCreateCollection)

	// Operations.
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)
	if cfg.MetricsHandler != nil && cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, cfg.MetricsHandler)
	}
	if cfg.MCPHandler != nil && cfg.MCPPath != "" {
		a.mux.Handle(cfg.MCPPath, cfg.MCPHandler)
	}

	return a
}

// Handler returns the routing handler without middleware.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// Route returns the pattern that serves r, or "" when none matches. It
// labels request metrics.
func (a *Adapter) Route(r *http.Request) string {
	_, pattern := a.mux.Handler(r)
	return pattern
}

func (a *Adapter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports 503 until a database session is open.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !a.svc.Connections.IsConnected() {
		body := map[string]any{"status": "not ready"}
		if st := a.svc.Connections.DBStatus(); st.Error != nil {
			body["error"] = *st.Error
		}
		transport.WriteJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
