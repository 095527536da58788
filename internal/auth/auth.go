package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredentials = errors.New("no upstream credentials configured")
)

const (
	// tokenLifetime is how long a minted service token is valid
	tokenLifetime = 5 * time.Minute
	// renewBefore is how long before expiry a cached token is replaced
	renewBefore = time.Minute
)

// TokenSource produces bearer tokens for the upstream stats API. It either
// hands out a fixed token or mints short-lived HS256 service tokens.
type TokenSource struct {
	static    string
	jwtSecret []byte
	issuer    string
	now       func() time.Time

	mu      sync.Mutex
	cached  string
	expires time.Time
}

// NewTokenSource creates a token source. A static token takes precedence over
// a JWT secret; with neither, Token returns ErrNoCredentials.
func NewTokenSource(static, jwtSecret, issuer string) *TokenSource {
	return &TokenSource{
		static:    static,
		jwtSecret: []byte(jwtSecret),
		issuer:    issuer,
		now:       time.Now,
	}
}

// Enabled reports whether requests should carry an Authorization header
func (s *TokenSource) Enabled() bool {
	return s != nil && (s.static != "" || len(s.jwtSecret) > 0)
}

// Token returns a bearer token, reusing a minted one until shortly before it expires
func (s *TokenSource) Token() (string, error) {
	if !s.Enabled() {
		return "", ErrNoCredentials
	}
	if s.static != "" {
		return s.static, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cached != "" && now.Add(renewBefore).Before(s.expires) {
		return s.cached, nil
	}

	expires := now.Add(tokenLifetime)
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}

	s.cached = token
	s.expires = expires
	return token, nil
}

// ValidateToken parses a token minted by a TokenSource with the same secret.
// The dashboard never receives tokens itself; this is the check an upstream
// API applies, and it is what the tests verify minted tokens against.
func ValidateToken(tokenString, jwtSecret string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}
