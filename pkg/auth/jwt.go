// Package auth validates and mints the HS256 bearer tokens that guard the
// graph API. A token's "vaults" claim limits which vaults its holder may read.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken     = errors.New("no bearer token")
	ErrInvalidToken     = errors.New("malformed bearer token")
	ErrExpiredToken     = errors.New("bearer token expired")
	ErrInvalidSignature = errors.New("bearer token signature rejected")
	ErrInvalidClaims    = errors.New("bearer token claims rejected")
)

// DefaultAudience is the audience of tokens accepted by the graph API
const DefaultAudience = "vaultgraph-api"

const wildcardVault = "*"

type Claims struct {
	Scope  string   `json:"scope,omitempty"`
	Vaults []string `json:"vaults,omitempty"`
	jwt.RegisteredClaims
}

// CanRead reports whether the token grants access to the vault. An empty
// vault list grants every vault.
func (c *Claims) CanRead(vaultID string) bool {
	if len(c.Vaults) == 0 {
		return true
	}
	return slices.ContainsFunc(c.Vaults, func(v string) bool {
		return v == vaultID || v == wildcardVault
	})
}

// JWTConfig is shared by the validator and GenerateToken. Issuer and
// Audience are only enforced when set.
type JWTConfig struct {
	SecretKey string
	Issuer    string
	Audience  []string
}

type JWTValidator struct {
	key    []byte
	parser *jwt.Parser
	aud    []string
}

func NewJWTValidator(cfg JWTConfig) (*JWTValidator, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("auth: empty HS256 secret")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTValidator{
		key:    []byte(cfg.SecretKey),
		parser: jwt.NewParser(opts...),
		aud:    cfg.Audience,
	}, nil
}

// ValidateToken accepts a raw token or an Authorization header value and
// returns its claims. Errors wrap one of the Err* sentinels.
func (v *JWTValidator) ValidateToken(raw string) (*Claims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, v.keyFunc); err != nil {
		return nil, classify(err)
	}

	if len(v.aud) > 0 && !slices.ContainsFunc(v.aud, func(a string) bool { return slices.Contains(claims.Audience, a) }) {
		return nil, fmt.Errorf("%w: audience %v", ErrInvalidClaims, claims.Audience)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidClaims)
	}
	return claims, nil
}

func (v *JWTValidator) keyFunc(*jwt.Token) (interface{}, error) { return v.key, nil }

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: issuer", ErrInvalidClaims)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

// GenerateToken mints a read token for subject. graphctl uses it to hand
// out tokens for local deployments.
func GenerateToken(cfg JWTConfig, subject string, vaults []string, ttl time.Duration) (string, error) {
	if cfg.SecretKey == "" {
		return "", errors.New("auth: empty HS256 secret")
	}

	issued := jwt.NewNumericDate(time.Now())
	claims := Claims{
		Scope:  "graph:read",
		Vaults: vaults,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   subject,
			Audience:  cfg.Audience,
			IssuedAt:  issued,
			NotBefore: issued,
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
}

type claimsKey struct{}

// WithClaims stores the caller's claims on ctx
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}
