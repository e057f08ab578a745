// Package auth turns identity-provider ID tokens into signed-in identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"neargrid/internal/domain"
)

// idClaims are the claims read from an ID token.
type idClaims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Verifier validates HS256 ID tokens issued by the configured issuer.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// SignIn validates token and returns the identity it carries. Every failure
// wraps domain.ErrAuth.
func (v *Verifier) SignIn(ctx context.Context, token string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}
	if strings.TrimSpace(token) == "" {
		return domain.Identity{}, fmt.Errorf("%w: token is empty", domain.ErrAuth)
	}
	if len(v.secret) == 0 {
		return domain.Identity{}, fmt.Errorf("%w: identity provider is not configured", domain.ErrAuth)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &idClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, fmt.Errorf("%w: token expired", domain.ErrAuth)
		}
		return domain.Identity{}, fmt.Errorf("%w: parse token: %w", domain.ErrAuth, err)
	}

	claims, ok := parsed.Claims.(*idClaims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, fmt.Errorf("%w: invalid token claims", domain.ErrAuth)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: token has no subject", domain.ErrAuth)
	}

	identity := domain.Identity{
		Subject:     claims.Subject,
		DisplayName: claims.Name,
	}
	if claims.Picture != "" {
		picture := claims.Picture
		identity.AvatarURL = &picture
	}
	return identity, nil
}
