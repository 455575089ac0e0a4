package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nordlane/cloudcrm/internal/common"
	"github.com/nordlane/cloudcrm/internal/models"
)

// DefaultSessionTTL is the lifetime of a browser session token and cookie.
const DefaultSessionTTL = 24 * time.Hour

type Claims struct {
	UserID string      `json:"uid"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() models.Principal {
	return models.Principal{ID: c.UserID, Email: c.Email, Role: c.Role}
}

// TokenManager issues and verifies HS256 session tokens. The secret is
// captured at construction; nothing is read from the environment later.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	cp := *tm
	cp.now = now
	return &cp
}

func (tm *TokenManager) TTL() time.Duration { return tm.ttl }

// Issue signs a session token for p with the default TTL.
func (tm *TokenManager) Issue(p models.Principal) (string, time.Time, error) {
	return tm.IssueWithTTL(p, tm.ttl)
}

// IssueWithTTL signs a token whose expiry is exactly issuedAt + ttl.
func (tm *TokenManager) IssueWithTTL(p models.Principal, ttl time.Duration) (string, time.Time, error) {
	// NumericDate has second precision; truncate first so exp-iat == ttl.
	now := tm.now().Truncate(time.Second)
	exp := now.Add(ttl)

	claims := Claims{
		UserID: p.ID,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the signature before any claim is trusted, then checks
// expiry against the manager's clock.
func (tm *TokenManager) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, common.ErrTokenMalformed
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tm.issuer),
		jwt.WithTimeFunc(tm.now),
		// the library rejects now == exp; the explicit check below is the
		// one that decides
		jwt.WithLeeway(time.Second),
	)
	if err != nil {
		return nil, classify(err)
	}

	// valid through exp inclusive
	if tm.now().After(claims.ExpiresAt.Time) {
		return nil, common.ErrTokenExpired
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, common.ErrTokenMalformed
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return common.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return common.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	default:
		return common.ErrTokenMalformed
	}
}
