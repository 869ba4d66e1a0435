package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/undergnarly/odoo-mcp-chat/internal/config"
)

func authConfig() config.AuthConfig {
	return config.AuthConfig{
		APIKeys: []config.APIKeyConfig{
			{ID: "ops", KeyEnv: "TEST_OPS_KEY", SubjectID: "ops-bot"},
			{ID: "viewer", KeyEnv: "TEST_VIEWER_KEY", SubjectID: "viewer-bot", ReadOnly: true},
			{ID: "unset", KeyEnv: "TEST_UNSET_KEY", SubjectID: "ghost"},
		},
		JWTSecretEnv: "TEST_JWT_SECRET",
		JWTIssuer:    "odoo-chat",
	}
}

func callAuth(t *testing.T, a *Authenticator, prepare func(*http.Request)) (*httptest.ResponseRecorder, Identity, bool) {
	t.Helper()
	var id Identity
	reached := false
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = IdentityFrom(r.Context())
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	prepare(req)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, id, reached
}

func TestAuthAPIKey(t *testing.T) {
	t.Setenv("TEST_OPS_KEY", "sekret-ops")
	t.Setenv("TEST_VIEWER_KEY", "sekret-viewer")
	a := NewAuthenticator(authConfig())

	rec, id, reached := callAuth(t, a, func(r *http.Request) {
		r.Header.Set("X-API-Key", "sekret-ops")
	})
	if !reached || rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if id.SubjectID != "ops-bot" || id.APIKeyID != "ops" || id.ReadOnly {
		t.Errorf("identity = %+v", id)
	}

	// Read-only key carries the flag.
	_, id, _ = callAuth(t, a, func(r *http.Request) {
		r.Header.Set("X-API-Key", "sekret-viewer")
	})
	if !id.ReadOnly {
		t.Error("viewer key should be read-only")
	}
}

func TestAuthRejectsUnknownAPIKey(t *testing.T) {
	t.Setenv("TEST_OPS_KEY", "sekret-ops")
	a := NewAuthenticator(authConfig())

	rec, _, reached := callAuth(t, a, func(r *http.Request) {
		r.Header.Set("X-API-Key", "wrong")
	})
	if reached || rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, reached = %v", rec.Code, reached)
	}
}

func TestAuthSkipsKeysWithUnsetEnv(t *testing.T) {
	// No env set at all: even a correct-looking key fails.
	a := NewAuthenticator(config.AuthConfig{
		APIKeys: []config.APIKeyConfig{{ID: "unset", KeyEnv: "TEST_NEVER_SET", SubjectID: "ghost"}},
	})

	rec, _, reached := callAuth(t, a, func(r *http.Request) {
		r.Header.Set("X-API-Key", "")
	})
	if reached {
		t.Error("request without credentials must not pass")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAuthMissingCredentials(t *testing.T) {
	a := NewAuthenticator(authConfig())

	rec, _, reached := callAuth(t, a, func(*http.Request) {})
	if reached || rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAuthBadAuthorizationFormat(t *testing.T) {
	a := NewAuthenticator(authConfig())

	rec, _, _ := callAuth(t, a, func(r *http.Request) {
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAuthBearerWithoutConfiguredSecret(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{})

	rec, _, reached := callAuth(t, a, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer whatever")
	})
	if reached || rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestAuthValidJWT(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "hmac-secret")
	a := NewAuthenticator(authConfig())

	token := signToken(t, "hmac-secret", jwt.MapClaims{
		"sub":       "jane@example.com",
		"iss":       "odoo-chat",
		"exp":       time.Now().Add(time.Hour).Unix(),
		"read_only": true,
	})

	rec, id, reached := callAuth(t, a, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	if !reached || rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if id.SubjectID != "jane@example.com" || !id.ReadOnly {
		t.Errorf("identity = %+v", id)
	}
}

func TestAuthRejectsBadJWTs(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "hmac-secret")
	a := NewAuthenticator(authConfig())

	tests := []struct {
		name  string
		token string
	}{
		{"expired", signToken(t, "hmac-secret", jwt.MapClaims{
			"sub": "x", "iss": "odoo-chat", "exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"wrong signature", signToken(t, "other-secret", jwt.MapClaims{
			"sub": "x", "iss": "odoo-chat", "exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"wrong issuer", signToken(t, "hmac-secret", jwt.MapClaims{
			"sub": "x", "iss": "someone-else", "exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"no expiry", signToken(t, "hmac-secret", jwt.MapClaims{
			"sub": "x", "iss": "odoo-chat",
		})},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _, reached := callAuth(t, a, func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			})
			if reached || rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, reached = %v", rec.Code, reached)
			}
		})
	}
}
