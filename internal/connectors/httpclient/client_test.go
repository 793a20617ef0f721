package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	pulseerrors "github.com/pulseplatform/pulse/internal/errors"
)

func TestGetSuccessDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"acme"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", "tok", AuthBearer)
	var out struct {
		Name string `json:"name"`
	}
	if err := c.Get(context.Background(), "/whoami", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "acme" {
		t.Errorf("expected decoded name acme, got %s", out.Name)
	}
}

func TestGetClassifiesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "bad-token", AuthBearer)
	err := c.Get(context.Background(), "/whoami", nil)
	if pulseerrors.KindOf(err) != pulseerrors.AuthError {
		t.Errorf("expected AuthError, got %v", pulseerrors.KindOf(err))
	}
}

func TestGetClassifiesTransientOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "tok", AuthBearer)
	err := c.Get(context.Background(), "/whoami", nil)
	if pulseerrors.KindOf(err) != pulseerrors.TransientVendorError {
		t.Errorf("expected TransientVendorError, got %v", pulseerrors.KindOf(err))
	}
	if !pulseerrors.IsRetryable(err) {
		t.Error("expected 5xx to be retryable")
	}
}

func TestGetClassifiesPermanentOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "tok", AuthBearer)
	err := c.Get(context.Background(), "/missing", nil)
	if pulseerrors.KindOf(err) != pulseerrors.PermanentVendorError {
		t.Errorf("expected PermanentVendorError, got %v", pulseerrors.KindOf(err))
	}
	if pulseerrors.IsRetryable(err) {
		t.Error("expected 4xx to not be retryable")
	}
}

func TestApplyAuthBasic(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", "my-pat", AuthBasic)
	if err := c.Get(context.Background(), "/projects", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != "" || gotPass != "my-pat" {
		t.Errorf("expected PAT as basic-auth password, got user=%q pass=%q", gotUser, gotPass)
	}
}
