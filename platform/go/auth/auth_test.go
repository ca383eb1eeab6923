package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(TokenConfig{Secret: []byte(testSecret), Issuer: "taskhub"})
	require.NoError(t, err)
	return m
}

func TestNewTokenManagerRejectsShortSecret(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{Secret: []byte("short")})
	require.Error(t, err)
}

func TestTokenRoundTripTenantUser(t *testing.T) {
	m := newTestManager(t)
	userID := uuid.New()
	tenantID := uuid.New()

	token, expiresAt, err := m.Issue(Claims{UserID: userID, TenantID: &tenantID, Role: RoleTenantAdmin})
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, 5*time.Second)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.NotNil(t, claims.TenantID)
	require.Equal(t, tenantID, *claims.TenantID)
	require.Equal(t, RoleTenantAdmin, claims.Role)
}

func TestTokenSuperAdminHasNoTenant(t *testing.T) {
	m := newTestManager(t)

	token, _, err := m.Issue(Claims{UserID: uuid.New(), Role: RoleSuperAdmin})
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	require.Nil(t, claims.TenantID)
}

func TestVerifyRejects(t *testing.T) {
	m := newTestManager(t)
	tenantID := uuid.New()
	valid, _, err := m.Issue(Claims{UserID: uuid.New(), TenantID: &tenantID, Role: RoleUser})
	require.NoError(t, err)

	expired := newTestManager(t)
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expiredToken, _, err := expired.Issue(Claims{UserID: uuid.New(), TenantID: &tenantID, Role: RoleUser})
	require.NoError(t, err)

	other, err := NewTokenManager(TokenConfig{Secret: []byte(strings.Repeat("z", 32)), Issuer: "taskhub"})
	require.NoError(t, err)
	foreign, _, err := other.Issue(Claims{UserID: uuid.New(), TenantID: &tenantID, Role: RoleUser})
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": uuid.NewString(),
		"role":   "super_admin",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tenantless, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": uuid.NewString(),
		"role":   "user",
		"iss":    "taskhub",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	testCases := []struct {
		name  string
		token string
	}{
		{"malformed", "not-a-token"},
		{"tampered", valid[:len(valid)-2] + "xx"},
		{"expired", expiredToken},
		{"wrong secret", foreign},
		{"alg none", noneToken},
		{"tenant role without tenant", tenantless},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Verify(tc.token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestHasherCompare(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("Secret123!")
	require.NoError(t, err)
	require.NotEqual(t, "Secret123!", hash)

	require.NoError(t, h.Compare(hash, "Secret123!"))
	require.ErrorIs(t, h.Compare(hash, "secret123!"), ErrInvalidCredentials)
	require.ErrorIs(t, h.Compare("not-a-hash", "Secret123!"), ErrInvalidCredentials)
}

func TestNewHasherClampsCost(t *testing.T) {
	require.Equal(t, 10, NewHasher(0).Cost)
	require.Equal(t, 4, NewHasher(1).Cost)
	require.Equal(t, 31, NewHasher(99).Cost)
}

func envelopeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	return body.Message
}

func TestJWTMiddleware(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	verify := func(_ context.Context, token string) (Claims, error) {
		if token != "good" {
			return Claims{}, ErrInvalidToken
		}
		return Claims{UserID: userID, TenantID: &tenantID, Role: RoleUser}, nil
	}

	r := chi.NewRouter()
	r.Use(JWT(verify))
	r.Get("/open", func(w http.ResponseWriter, req *http.Request) {
		_, ok := UserFromContext(req.Context())
		require.False(t, ok)
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(RequireAuthenticated).Get("/me", func(w http.ResponseWriter, req *http.Request) {
		creds, ok := UserFromContext(req.Context())
		require.True(t, ok)
		require.Equal(t, userID, creds.UserID)
		require.Equal(t, tenantID, *creds.TenantID)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("no token passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing token on protected route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Missing token", envelopeMessage(t, rec))
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "Invalid token", envelopeMessage(t, rec))
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleSuperAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tenantID := uuid.New()
	testCases := []struct {
		name   string
		creds  *UserCredentials
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"tenant admin", &UserCredentials{UserID: uuid.New(), TenantID: &tenantID, Role: RoleTenantAdmin}, http.StatusForbidden},
		{"super admin", &UserCredentials{UserID: uuid.New(), Role: RoleSuperAdmin}, http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.creds != nil {
				req = req.WithContext(WithCredentials(req.Context(), tc.creds))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestVerifierAdapter(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Verifier()(context.Background(), "garbage")
	require.True(t, errors.Is(err, ErrInvalidToken))
}

func TestValidatePassword(t *testing.T) {
	require.Error(t, ValidatePassword("short"))
	require.NoError(t, ValidatePassword("longenough"))
	require.Error(t, ValidatePassword(strings.Repeat("x", MaxPasswordLength+1)))
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Admin@Acme.Test ")
	require.NoError(t, err)
	require.Equal(t, "admin@acme.test", got)

	for _, bad := range []string{"", "   ", "no-at-sign", "a@b", "Name <a@b.test>", "a@@b.test"} {
		_, err := NormalizeEmail(bad)
		require.Error(t, err, bad)
	}
}
