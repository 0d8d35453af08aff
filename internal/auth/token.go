package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "rollbook"
	defaultTokenTTL = 30 * time.Minute
)

// Claims is the signed claim set carried by a bearer token: the principal's
// email as subject plus the role tag. Tokens are stateless; nothing here is
// persisted or revocable.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed, time-limited bearer tokens. The
// signing secret is injected at construction and never read from ambient
// process state.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService) error

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) error {
		if strings.TrimSpace(issuer) == "" {
			return errors.New("issuer is empty")
		}
		s.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl <= 0 {
			return errors.New("ttl must be greater than zero")
		}
		s.ttl = ttl
		return nil
	}
}

// WithClock overrides the time source. Issue and Validate share it, so expiry
// checks cannot skew between the two. Useful for tests.
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewTokenService constructs a TokenService around a symmetric secret.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth secret is not configured")
	}
	svc := &TokenService{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    defaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs an HS256 token for the given subject (the principal's email)
// and role, expiring at issue time plus the configured TTL.
func (s *TokenService) Issue(subject string, role Role) (string, time.Time, error) {
	subject = strings.TrimSpace(strings.ToLower(subject))
	if subject == "" {
		return "", time.Time{}, errors.New("subject is required")
	}
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate verifies the signature, issuer and expiry of a presented token and
// returns its claims. Every rejection path returns ErrInvalidToken: the
// caller cannot distinguish expired from forged from malformed.
func (s *TokenService) Validate(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
