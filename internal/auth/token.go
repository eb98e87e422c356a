package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nawrec86/school-management-backend/internal/model"
)

// TokenHeader carries the bearer token on every protected request.
const TokenHeader = "X-Access-Token"

// Claims is the signed token payload. Subject holds the user id. The role
// claim is informational for clients; authorization always re-reads the
// live role from the store.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenFailure tags why a token was rejected. The distinction is kept for
// logs and metrics only; the HTTP boundary collapses every failure into
// the same invalid_token response.
type TokenFailure string

const (
	TokenMalformed        TokenFailure = "malformed"
	TokenSignatureInvalid TokenFailure = "signature_invalid"
	TokenExpired          TokenFailure = "expired"
	TokenInvalid          TokenFailure = "invalid"
)

type TokenError struct {
	Failure TokenFailure
	cause   error
}

func (e *TokenError) Error() string {
	return "token " + string(e.Failure)
}

func (e *TokenError) Unwrap() error {
	return e.cause
}

// NewAccessToken mints an HS256-signed token for the given user.
// Service.Login is the only production caller.
func NewAccessToken(secret []byte, issuer string, ttl time.Duration, userID string, role model.Role) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates structure, then signature, then expiry, and returns
// a *TokenError describing the first check that failed. No claim is
// trusted before the signature verifies.
func ParseToken(secret []byte, issuer, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, classifyTokenError(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &TokenError{Failure: TokenInvalid, cause: jwt.ErrTokenInvalidClaims}
	}
	return claims, nil
}

func classifyTokenError(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &TokenError{Failure: TokenMalformed, cause: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &TokenError{Failure: TokenSignatureInvalid, cause: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenError{Failure: TokenExpired, cause: err}
	default:
		return &TokenError{Failure: TokenInvalid, cause: err}
	}
}
