package server

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/pulseplatform/pulse/internal/bus"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

var errNotFound = errors.New("not found")

type fakeStore struct {
	tenants map[string]*types.Tenant
	users   map[string]*types.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{tenants: map[string]*types.Tenant{}, users: map[string]*types.User{}}
}

func (f *fakeStore) GetTenant(tenantID string) (*types.Tenant, error) {
	if t, ok := f.tenants[tenantID]; ok {
		return t, nil
	}
	return nil, errNotFound
}

func (f *fakeStore) GetUser(ctx tenantctx.Context, userID string) (*types.User, error) {
	if u, ok := f.users[userID]; ok && u.TenantID == ctx.TenantID {
		return u, nil
	}
	return nil, errNotFound
}

func newTestServer() (*Server, *fakeStore, *HMACAuthenticator) {
	store := newFakeStore()
	store.tenants["t1"] = &types.Tenant{ID: "t1", Slug: "acme", Status: types.TenantActive}
	store.users["u1"] = &types.User{ID: "u1", TenantID: "t1", IsPlatformAdmin: false}
	store.users["admin1"] = &types.User{ID: "admin1", TenantID: "t1", IsPlatformAdmin: true}

	auth := NewHMACAuthenticator("test-secret")
	s := New(store, bus.New(nil), bus.NewAdminBus(nil), auth)
	return s, store, auth
}

func TestHMACAuthenticatorRoundTrips(t *testing.T) {
	auth := NewHMACAuthenticator("s3cr3t")
	token := auth.Sign("t1", "u1")

	claims, err := auth.Authenticate(token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.TenantID != "t1" || claims.UserID != "u1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestHMACAuthenticatorRejectsTamperedToken(t *testing.T) {
	auth := NewHMACAuthenticator("s3cr3t")
	token := auth.Sign("t1", "u1")

	other := NewHMACAuthenticator("different-secret")
	if _, err := other.Authenticate(token); err == nil {
		t.Fatal("expected signature verification to fail with wrong secret")
	}
}

func TestTelemetryWSRejectsMissingToken(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest("GET", "/ws/telemetry/t1", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 401 {
		t.Fatalf("expected 401 missing token, got %d", rec.Code)
	}
}

func TestTelemetryWSRejectsTenantMismatch(t *testing.T) {
	s, _, auth := newTestServer()
	token := auth.Sign("t1", "u1")

	req := httptest.NewRequest("GET", "/ws/telemetry/other-tenant?token="+token, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 403 {
		t.Fatalf("expected 403 tenant mismatch, got %d", rec.Code)
	}
}

func TestTelemetryWSRejectsUnknownUser(t *testing.T) {
	s, _, auth := newTestServer()
	token := auth.Sign("t1", "ghost")

	req := httptest.NewRequest("GET", "/ws/telemetry/t1?token="+token, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 401 {
		t.Fatalf("expected 401 unknown user, got %d", rec.Code)
	}
}

func TestAdminWSRejectsNonAdmin(t *testing.T) {
	s, _, auth := newTestServer()
	token := auth.Sign("t1", "u1")

	req := httptest.NewRequest("GET", "/ws/admin/health/?token="+token, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 403 {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
}

func TestHealthCheckReturnsOK(t *testing.T) {
	s, _, _ := newTestServer()

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
