package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL matches the week-long sessions users expect from the web client.
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	ErrSecretRequired = errors.New("security: jwt secret is required")
	ErrInvalidToken   = errors.New("security: invalid token")
)

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 bearer tokens.
type JWTIssuer struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

func (j JWTIssuer) Issue(userID string, now time.Time) (string, time.Time, error) {
	if len(j.Secret) == 0 {
		return "", time.Time{}, ErrSecretRequired
	}
	if now.IsZero() {
		now = time.Now()
	}
	expires := now.Add(j.ttl()).UTC()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// Parse returns the user id carried by a valid, unexpired token.
func (j JWTIssuer) Parse(raw string) (string, error) {
	if len(j.Secret) == 0 {
		return "", ErrSecretRequired
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

func (j JWTIssuer) ttl() time.Duration {
	if j.TTL > 0 {
		return j.TTL
	}
	return DefaultTokenTTL
}
