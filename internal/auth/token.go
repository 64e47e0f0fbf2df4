package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 15 * time.Minute

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims embedded in a session token. Downstream
// authorization middleware trusts the embedded subject and role without a
// store round-trip, so a token stays valid until expiry regardless of later
// account changes.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies signed, self-contained session tokens using
// HS256. The signing secret is process-wide configuration injected at
// construction.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenTTL overrides the default token lifetime.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(ti *TokenIssuer) {
		if ttl > 0 {
			ti.ttl = ttl
		}
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(ti *TokenIssuer) {
		if fn != nil {
			ti.now = fn
		}
	}
}

// NewTokenIssuer constructs a TokenIssuer for the given signing secret.
func NewTokenIssuer(secret, issuer string, opts ...TokenOption) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth secret is not configured")
	}
	ti := &TokenIssuer{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ti)
	}
	return ti, nil
}

// Issue signs a session token carrying the account id and role.
func (ti *TokenIssuer) Issue(accountID string, role Role) (string, time.Time, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", time.Time{}, errors.New("account id is required")
	}
	now := ti.now().UTC()
	exp := now.Add(ti.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseAndValidate verifies the token signature and required claims.
func (ti *TokenIssuer) ParseAndValidate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return ti.now().UTC() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := ti.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (ti *TokenIssuer) validateClaims(claims *Claims) error {
	if ti.issuer != "" && claims.Issuer != ti.issuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if !ValidRole(claims.Role) {
		return errors.New("unknown role claim")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(ti.now().UTC().Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	return nil
}
