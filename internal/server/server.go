package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pulseplatform/pulse/internal/bus"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// Store is the narrow slice of storage.Store the HTTP/WebSocket layer
// needs: resolving the tenant and user behind a connect-time token.
type Store interface {
	GetTenant(tenantID string) (*types.Tenant, error)
	GetUser(ctx tenantctx.Context, userID string) (*types.User, error)
}

// Server is the HTTP+WebSocket API process (cmd/pulse): a health endpoint
// plus the two WebSocket routes, built on a mux.Router + Hub/Client pump.
type Server struct {
	httpServer *http.Server
	router     *mux.Router

	store    Store
	bus      *bus.Bus
	adminBus *bus.AdminBus
	auth     Authenticator

	startTime time.Time
}

// New builds a Server. progressBus fans out tenant telemetry, adminBus
// fans out platform-admin health/activity events.
func New(store Store, progressBus *bus.Bus, adminBus *bus.AdminBus, auth Authenticator) *Server {
	s := &Server{
		store:     store,
		bus:       progressBus,
		adminBus:  adminBus,
		auth:      auth,
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.Use(SecurityHeadersMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealthCheck).Methods(http.MethodGet)

	s.router.HandleFunc("/ws/telemetry/{tenant_id}", s.handleTelemetryWS)
	s.router.HandleFunc("/ws/admin/health/", s.handleAdminWS)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}

// Handler exposes the underlying router, mainly so tests can drive it
// with httptest without a real listening socket.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP on addr until the listener fails or Shutdown
// is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	log.Printf("[server] listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, letting in-flight requests
// and WebSocket pumps drain within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
