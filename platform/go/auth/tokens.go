package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the session lifetime handed out at login.
const DefaultTokenTTL = 24 * time.Hour

const minSecretBytes = 32

// ErrInvalidToken is returned for any malformed, tampered or expired token.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity carried by a session token.
type Claims struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     Role
}

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId,omitempty"`
	Role     string `json:"role"`
}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager validates cfg and returns a manager.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minSecretBytes)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: append([]byte(nil), cfg.Secret...),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the lifetime applied to issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the given identity and returns it with its expiry.
func (m *TokenManager) Issue(claims Claims) (string, time.Time, error) {
	if claims.UserID == uuid.Nil {
		return "", time.Time{}, errors.New("user id is required")
	}
	if !claims.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown role %q", claims.Role)
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	sc := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.UserID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: claims.UserID.String(),
		Role:   string(claims.Role),
	}
	if claims.TenantID != nil {
		sc.TenantID = claims.TenantID.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sc).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return token, expiresAt, nil
}

// Verify checks signature, algorithm, issuer and expiry, and decodes the identity.
func (m *TokenManager) Verify(token string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var sc sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &sc, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(sc.UserID)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{UserID: userID, Role: Role(sc.Role)}
	if !claims.Role.Valid() {
		return Claims{}, ErrInvalidToken
	}

	if sc.TenantID != "" {
		tenantID, err := uuid.Parse(sc.TenantID)
		if err != nil {
			return Claims{}, ErrInvalidToken
		}
		claims.TenantID = &tenantID
	}

	if claims.Role != RoleSuperAdmin && claims.TenantID == nil {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// Verifier adapts the manager to the JWT middleware.
func (m *TokenManager) Verifier() VerifyFunc {
	return func(_ context.Context, token string) (Claims, error) {
		return m.Verify(token)
	}
}
