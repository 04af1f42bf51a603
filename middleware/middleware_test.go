package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vgnam/Library-Management-System-sub000/config"
	"github.com/vgnam/Library-Management-System-sub000/models"
	"github.com/vgnam/Library-Management-System-sub000/store"
	"github.com/vgnam/Library-Management-System-sub000/utils"
)

func newIssuer() *utils.TokenIssuer {
	return utils.NewTokenIssuer(config.AuthConfig{JWTSecret: "mw-secret", TokenTTL: time.Hour, Issuer: "test"})
}

func whoami(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(c.UserID() + ":" + string(c.Role)))
}

func TestAuthenticate(t *testing.T) {
	issuer := newIssuer()
	h := Authenticate(issuer, nil, zaptest.NewLogger(t))(http.HandlerFunc(whoami))
	token, err := issuer.Generate("u1", "alice", models.RoleReader)
	require.NoError(t, err)

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1:reader", rec.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail":"Not authenticated"}`, rec.Body.String())
	})

	t.Run("garbage", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("query token only on websocket upgrade", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
		req.Header.Set("Upgrade", "websocket")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

type userMap map[string]*models.User

func (m userMap) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if id == "broken" {
		return nil, errors.New("connection reset")
	}
	u, ok := m[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func TestAuthenticateChecksAccount(t *testing.T) {
	issuer := newIssuer()
	users := userMap{
		"u1": {ID: "u1", Role: models.RoleLibrarian},
		"u2": {ID: "u2", Role: models.RoleReader},
	}
	h := Authenticate(issuer, users, zaptest.NewLogger(t))(http.HandlerFunc(whoami))

	for _, tc := range []struct {
		name   string
		userID string
		role   models.Role
		want   int
	}{
		{"live account", "u1", models.RoleLibrarian, http.StatusOK},
		{"deleted account", "gone", models.RoleLibrarian, http.StatusUnauthorized},
		{"role changed", "u2", models.RoleLibrarian, http.StatusUnauthorized},
		{"lookup failure", "broken", models.RoleReader, http.StatusInternalServerError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			token, err := issuer.Generate(tc.userID, "someone", tc.role)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleLibrarian, models.RoleManager)(http.HandlerFunc(whoami))

	for role, want := range map[models.Role]int{
		models.RoleReader:    http.StatusForbidden,
		models.RoleLibrarian: http.StatusOK,
		models.RoleManager:   http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithClaims(req.Context(), &utils.Claims{Role: role}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"http://app.local"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://app.local")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.local")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverAndLogging(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := Logging(logger)(Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal server error"}`, rec.Body.String())
}
