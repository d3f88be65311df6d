package v1handler

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"

	"driveaudit/internal/config"
	"driveaudit/pkg/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey string

// orgIDKey is the context key under which the authenticated organization id
// is stored.
const orgIDKey ctxKey = "orgID"

// SecHandlerOptions configures bearer token verification for v1 endpoints.
type SecHandlerOptions struct {
	// PublicKey is the PEM encoded RSA public key matching the key that
	// signed the tokens.
	PublicKey string
}

// NewSecHandlerOptions maps the JWT section of the application configuration
// to SecHandlerOptions.
func NewSecHandlerOptions(cfg *config.Config) *SecHandlerOptions {
	return &SecHandlerOptions{
		PublicKey: cfg.JWT.PublicKey,
	}
}

// SecHandler authenticates requests using RS256 bearer tokens whose subject
// is the caller's organization id.
type SecHandler struct {
	key *rsa.PublicKey
}

// NewSecHandler parses the configured public key and returns a SecHandler.
func NewSecHandler(opts *SecHandlerOptions) (*SecHandler, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(opts.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("could not parse RSA public key: %w", err)
	}

	return &SecHandler{key: key}, nil
}

// Middleware wraps next with bearer token verification. On success the
// organization id from the token subject is stored on the request context.
func (s *SecHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")

			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}

			return s.key, nil
		})
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid bearer token")

			return
		}

		orgID, err := uuid.Parse(claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token subject")

			return
		}

		ctx := context.WithValue(r.Context(), orgIDKey, domain.OrgID(orgID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOrgIDFromContext returns the authenticated organization id previously
// stored by the security middleware. The zero OrgID is returned when the
// request was not authenticated.
func GetOrgIDFromContext(ctx context.Context) domain.OrgID {
	id, _ := ctx.Value(orgIDKey).(domain.OrgID)

	return id
}

// ContextWithOrgID stores an organization id the way the security middleware
// does. It exists so handlers can be exercised without real tokens.
func ContextWithOrgID(ctx context.Context, orgID domain.OrgID) context.Context {
	return context.WithValue(ctx, orgIDKey, orgID)
}
