package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// Claims identifies the tenant and user behind a WebSocket connect-time
// token. JWT issuance is an external collaborator (out of scope per the
// platform's auth boundary); Authenticator only verifies a token that was
// minted elsewhere.
type Claims struct {
	TenantID string
	UserID   string
}

// Authenticator verifies the short-lived `token` query-string parameter
// clients present when opening a WebSocket.
type Authenticator interface {
	Authenticate(token string) (Claims, error)
}

// HMACAuthenticator is the minimal concrete Authenticator this repo ships:
// a token is base64url(tenantID+"."+userID) + "." + base64url(hmac-sha256
// of that payload). A production deployment swaps this for whatever issues
// its real session tokens; the WebSocket handlers only depend on the
// Authenticator interface.
type HMACAuthenticator struct {
	secret []byte
}

// NewHMACAuthenticator builds an Authenticator keyed on secret.
func NewHMACAuthenticator(secret string) *HMACAuthenticator {
	return &HMACAuthenticator{secret: []byte(secret)}
}

// Sign mints a token for (tenantID, userID). Exists mainly so tests can
// produce tokens without a real login flow.
func (a *HMACAuthenticator) Sign(tenantID, userID string) string {
	payload := tenantID + "." + userID
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payload))
	sig := mac.Sum(nil)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func (a *HMACAuthenticator) Authenticate(token string) (Claims, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return Claims{}, errors.New("server: malformed token")
	}

	payloadRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, errors.New("server: malformed token payload")
	}
	sigRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, errors.New("server: malformed token signature")
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write(payloadRaw)
	if !hmac.Equal(mac.Sum(nil), sigRaw) {
		return Claims{}, errors.New("server: invalid token signature")
	}

	claimParts := strings.SplitN(string(payloadRaw), ".", 2)
	if len(claimParts) != 2 || claimParts[0] == "" || claimParts[1] == "" {
		return Claims{}, errors.New("server: malformed token claims")
	}
	return Claims{TenantID: claimParts[0], UserID: claimParts[1]}, nil
}
