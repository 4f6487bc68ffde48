package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashendes/order-edit/internal/config"
	"github.com/golang-jwt/jwt"
)

// ErrNoCredentials is returned when no way of authenticating is configured
var ErrNoCredentials = errors.New("no backend credentials configured")

// TokenProvider supplies the bearer token attached to backend requests
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed pre-issued bearer token
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}

// Anonymous sends requests without credentials, for backends that do not
// authenticate callers
type Anonymous struct{}

func (Anonymous) Token(context.Context) (string, error) { return "", nil }

// JWTSigner mints HS256 service tokens and reuses them until shortly before expiry
type JWTSigner struct {
	secret  []byte
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewJWTSigner creates a signer for the given shared secret
func NewJWTSigner(secret, subject string, ttl time.Duration) *JWTSigner {
	return &JWTSigner{
		secret:  []byte(secret),
		subject: subject,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *JWTSigner) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(time.Minute).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.ttl)
	claims := jwt.StandardClaims{
		Subject:   s.subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: expires.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}

	s.token = signed
	s.expires = expires
	return signed, nil
}

// Verify parses a token signed with secret and returns its claims
func Verify(secret, token string) (*jwt.StandardClaims, error) {
	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// FromConfig picks the token provider described by cfg. Requests go out
// unauthenticated when no credentials are configured.
func FromConfig(cfg config.AuthConfig) TokenProvider {
	if cfg.StaticToken != "" {
		return StaticToken(cfg.StaticToken)
	}
	if cfg.JWTSecret != "" {
		return NewJWTSigner(cfg.JWTSecret, cfg.JWTSubject, cfg.JWTTTL)
	}
	return Anonymous{}
}
