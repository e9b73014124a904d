/*
Package identity maps bearer tokens to user ids.

Tokens are HS256 JWTs. The user id is the "sub" claim, or the "user_id"
claim when sub is empty. A missing, malformed, expired or unverifiable token
resolves to the guest user; identity never fails a request.
*/
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/khanglvm/persona-search/internal/storage"
)

// ErrNoSecret is returned when issuing a token without a signing secret.
var ErrNoSecret = errors.New("jwt secret is not configured")

// Resolver turns an Authorization header value into a user id.
type Resolver interface {
	Resolve(authorization string) string
}

// Claims are the token claims.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 tokens.
type JWTResolver struct {
	secret []byte
	now    func() time.Time
}

// NewJWTResolver creates a resolver. An empty secret resolves every request
// to the guest user.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), now: time.Now}
}

// Resolve returns the token's user id or the guest user.
func (r *JWTResolver) Resolve(authorization string) string {
	if len(r.secret) == 0 {
		return storage.GuestUserID
	}

	parts := strings.Fields(authorization)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return storage.GuestUserID
	}

	claims, err := r.Validate(parts[1])
	if err != nil {
		return storage.GuestUserID
	}
	if claims.Subject != "" {
		return claims.Subject
	}
	if claims.UserID != "" {
		return claims.UserID
	}
	return storage.GuestUserID
}

// Validate parses and verifies a token.
func (r *JWTResolver) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithTimeFunc(r.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Issue signs a token for userID valid for ttl.
func (r *JWTResolver) Issue(userID string, ttl time.Duration) (string, error) {
	if len(r.secret) == 0 {
		return "", ErrNoSecret
	}
	now := r.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// EffectiveUser picks the authenticated user when there is one, else the
// user id supplied in the request, else the guest user.
func EffectiveUser(authUser, requested string) string {
	if authUser != "" && authUser != storage.GuestUserID {
		return authUser
	}
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested
	}
	return storage.GuestUserID
}
