// Package auth verifies the HS256 bearer tokens buyers present when they
// start a checkout. Webhook and status routes do not use it.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-reconciler/pkg/config"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the buyer token body. Older tokens carry the buyer only in sub.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Buyer returns user_id, falling back to sub.
func (c *Claims) Buyer() string {
	if id := strings.TrimSpace(c.UserID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Subject)
}

// MintAccessToken signs a buyer token. Production tokens come from the
// identity service sharing the secret; this backs local tooling and tests.
func MintAccessToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, userID string) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case ttl <= 0:
		return "", errors.New("jwt ttl must be positive")
	case strings.TrimSpace(userID) == "":
		return "", errors.New("user id is required")
	}

	token := jwt.NewWithClaims(signingMethod, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString([]byte(cfg.Secret))
}

// ParseAccessToken checks signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*Claims, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

// Verify resolves an Authorization header value to the buyer id. The
// "Bearer " prefix is optional and case-insensitive.
func Verify(cfg config.JWTConfig, header string) (string, error) {
	raw := strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	}
	if raw == "" || strings.EqualFold(raw, "bearer") {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := ParseAccessToken(cfg, raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	buyer := claims.Buyer()
	if buyer == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "token carries no user")
	}
	return buyer, nil
}
