package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

type ctxKey string

const UserCtxKey ctxKey = "user"

// TokenCookie is read when no Authorization header is present.
const TokenCookie = "token"

func deny(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// bearerToken looks at the Authorization header first, then the cookie.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	// Browsers cannot set headers on websocket upgrades.
	if websocketUpgrade(r) {
		return r.URL.Query().Get("token")
	}
	return ""
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// UserLookup resolves the token subject to a live account.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticate verifies the access token, checks the account still exists
// with the same role, and stores the claims in the request context. A nil
// users skips the account check.
func Authenticate(issuer *utils.TokenIssuer, users UserLookup, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				deny(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			claims, err := issuer.Parse(token)
			if err != nil {
				logger.Debug("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				deny(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			if users != nil {
				u, err := users.GetUserByID(r.Context(), claims.UserID())
				switch {
				case errors.Is(err, store.ErrNotFound):
					logger.Info("token for removed account", zap.String("user_id", claims.UserID()))
					deny(w, http.StatusUnauthorized, "Could not validate credentials")
					return
				case err != nil:
					logger.Error("look up token subject", zap.String("user_id", claims.UserID()), zap.Error(err))
					deny(w, http.StatusInternalServerError, "Internal server error")
					return
				case u.Role != claims.Role:
					deny(w, http.StatusUnauthorized, "Could not validate credentials")
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserCtxKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through when the caller holds one of roles.
// It must run after Authenticate.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				deny(w, http.StatusForbidden, "Access denied: "+string(roles[0])+" role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFrom returns the claims Authenticate stored, if any.
func ClaimsFrom(ctx context.Context) (*utils.Claims, bool) {
	c, ok := ctx.Value(UserCtxKey).(*utils.Claims)
	return c, ok && c != nil
}

// WithClaims is used by handlers tests that bypass token parsing.
func WithClaims(ctx context.Context, c *utils.Claims) context.Context {
	return context.WithValue(ctx, UserCtxKey, c)
}
