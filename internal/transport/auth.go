package transport

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/undergnarly/odoo-mcp-chat/internal/config"
	"github.com/undergnarly/odoo-mcp-chat/model"
)

// apiKey is one resolved static API key.
type apiKey struct {
	id        string
	secret    string
	subjectID string
	readOnly  bool
}

// Authenticator verifies callers by static API key or HMAC-signed JWT and
// stores the resulting Identity in the request context.
type Authenticator struct {
	keys      []apiKey
	jwtSecret []byte
	jwtIssuer string
}

// NewAuthenticator builds an Authenticator from configuration. Key secrets
// and the JWT secret are read from the environment; keys whose environment
// variable is unset are skipped.
func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	a := &Authenticator{jwtIssuer: cfg.JWTIssuer}
	for _, k := range cfg.APIKeys {
		secret := os.Getenv(k.KeyEnv)
		if secret == "" {
			continue
		}
		a.keys = append(a.keys, apiKey{
			id:        k.ID,
			secret:    secret,
			subjectID: k.SubjectID,
			readOnly:  k.ReadOnly,
		})
	}
	if cfg.JWTSecretEnv != "" {
		if s := os.Getenv(cfg.JWTSecretEnv); s != "" {
			a.jwtSecret = []byte(s)
		}
	}
	return a
}

// Middleware authenticates the request. X-API-Key is checked first; when a
// JWT secret is configured, a Bearer token is accepted as well.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-Key"); key != "" {
			for _, k := range a.keys {
				if subtle.ConstantTimeCompare([]byte(k.secret), []byte(key)) == 1 {
					ctx := WithIdentity(r.Context(), Identity{
						SubjectID: k.subjectID,
						APIKeyID:  k.id,
						ReadOnly:  k.readOnly,
					})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			WriteError(w, model.NewUnauthorizedError("Unknown API key"))
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			WriteError(w, model.NewUnauthorizedError("Missing credentials"))
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			WriteError(w, model.NewUnauthorizedError("Invalid authorization header format"))
			return
		}
		if len(a.jwtSecret) == 0 {
			WriteError(w, model.NewUnauthorizedError("Bearer tokens are not accepted"))
			return
		}

		id, err := a.verifyToken(auth[7:])
		if err != nil {
			WriteError(w, model.NewUnauthorizedError(classifyJWTError(err)))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (a *Authenticator) verifyToken(tokenStr string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
	}
	if a.jwtIssuer != "" {
		opts = append(opts, jwt.WithIssuer(a.jwtIssuer))
	}

	token, err := jwt.Parse(tokenStr,
		func(*jwt.Token) (any, error) { return a.jwtSecret, nil },
		opts...,
	)
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, jwt.ErrTokenUnverifiable
	}

	sub, _ := claims["sub"].(string)
	readOnly, _ := claims["read_only"].(bool)
	return Identity{SubjectID: sub, ReadOnly: readOnly}, nil
}

func classifyJWTError(err error) string {
	s := err.Error()
	switch {
	case strings.Contains(s, "expired"):
		return "Token expired"
	case strings.Contains(s, "issuer"):
		return "Invalid token issuer"
	case strings.Contains(s, "signing method"):
		return "Disallowed signing algorithm"
	case strings.Contains(s, "signature"):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}
