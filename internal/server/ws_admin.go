package server

import (
	"net/http"

	"github.com/pulseplatform/pulse/internal/tenantctx"
)

// handleAdminWS serves ws(s)://…/ws/admin/health/?token=<jwt>. Unlike the
// tenant telemetry socket, access is gated on the authenticated user's
// IsPlatformAdmin flag rather than a tenant match, since admin_health
// carries cross-tenant operational data.
func (s *Server) handleAdminWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := s.auth.Authenticate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	tenant, err := s.store.GetTenant(claims.TenantID)
	if err != nil {
		http.Error(w, "unknown tenant", http.StatusUnauthorized)
		return
	}
	userCtx, err := tenantctx.New(tenant.ID, tenant.Slug)
	if err != nil {
		http.Error(w, "invalid tenant", http.StatusInternalServerError)
		return
	}
	user, err := s.store.GetUser(userCtx, claims.UserID)
	if err != nil || !user.IsPlatformAdmin {
		http.Error(w, "admin access required", http.StatusForbidden)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := s.adminBus.Subscribe()
	client := &adminClient{conn: conn, sub: sub, bus: s.adminBus}
	go client.readPump()
	go client.writePump()
}
