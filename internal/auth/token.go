package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("could not validate credentials")
	// ErrInvalidScope is returned when a token carries the wrong scope,
	// e.g. an access token presented on the refresh path.
	ErrInvalidScope = errors.New("invalid scope for token")
	// ErrUnprocessableToken is the 422-class failure reserved for
	// email-verification tokens.
	ErrUnprocessableToken = errors.New("invalid token for email verification")
)

// Scope values distinguishing access from refresh tokens so one cannot be
// used in place of the other.
const (
	ScopeAccessToken  = "access_token"
	ScopeRefreshToken = "refresh_token"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	emailTokenTTL          = 7 * 24 * time.Hour
)

// Claims is the signed claims bundle carried by every token. The subject
// is the user's email. Email-verification tokens carry no scope.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies tokens with a server secret and a
// configured HMAC algorithm.
type JWTService struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

func NewJWTService(secret, algorithm string) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}

	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", algorithm)
	}

	return &JWTService{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}, nil
}

// CreateAccessToken issues an access-scoped token for the given subject.
// A non-positive ttl falls back to the 15-minute default.
func (s *JWTService) CreateAccessToken(email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	return s.sign(email, ScopeAccessToken, ttl)
}

// CreateRefreshToken issues a refresh-scoped token for the given subject.
// A non-positive ttl falls back to the 7-day default.
func (s *JWTService) CreateRefreshToken(email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultRefreshTokenTTL
	}
	return s.sign(email, ScopeRefreshToken, ttl)
}

// CreateEmailToken issues a 7-day verification token without a scope tag.
func (s *JWTService) CreateEmailToken(email string) (string, error) {
	return s.sign(email, "", emailTokenTTL)
}

func (s *JWTService) sign(email, scope string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// decode verifies signature and expiry; any failure surfaces as ErrInvalidToken.
func (s *JWTService) decode(tokenStr string) (*Claims, error) {
	claims := new(Claims)

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// AccessSubject decodes an access token and returns its subject email.
// Tokens carrying any other scope fail with ErrInvalidScope.
func (s *JWTService) AccessSubject(tokenStr string) (string, error) {
	claims, err := s.decode(tokenStr)
	if err != nil {
		return "", err
	}

	if claims.Scope != ScopeAccessToken {
		return "", ErrInvalidScope
	}

	return claims.Subject, nil
}

// RefreshSubject decodes a refresh token and returns its subject email.
func (s *JWTService) RefreshSubject(tokenStr string) (string, error) {
	claims, err := s.decode(tokenStr)
	if err != nil {
		return "", err
	}

	if claims.Scope != ScopeRefreshToken {
		return "", ErrInvalidScope
	}

	return claims.Subject, nil
}

// EmailSubject decodes an email-verification token. Any decode failure is
// reported as ErrUnprocessableToken, distinct from access/refresh failures.
func (s *JWTService) EmailSubject(tokenStr string) (string, error) {
	claims, err := s.decode(tokenStr)
	if err != nil {
		return "", ErrUnprocessableToken
	}

	return claims.Subject, nil
}
