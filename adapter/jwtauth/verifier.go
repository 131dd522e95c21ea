// Package jwtauth verifies bearer tokens issued by the identity provider.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// ActorType tags actors resolved from bearer tokens.
const ActorType = "user"

// Config holds the HMAC verification settings.
type Config struct {
	SigningKey string
	Issuer     string
	Audience   string
	Leeway     time.Duration
	Now        func() time.Time
}

// Claims is the token payload. Subject carries the identity id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Verifier implements types.TokenVerifier for HS256 tokens.
type Verifier struct {
	key     []byte
	options []jwt.ParserOption
}

// NewVerifier builds the verifier. Issuer and audience are checked only when
// configured.
func NewVerifier(cfg Config) (*Verifier, error) {
	key := strings.TrimSpace(cfg.SigningKey)
	if key == "" {
		return nil, errors.New("jwtauth: signing key required")
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Now != nil {
		options = append(options, jwt.WithTimeFunc(cfg.Now))
	}
	return &Verifier{key: []byte(key), options: options}, nil
}

var _ types.TokenVerifier = (*Verifier)(nil)

// VerifyToken validates the token and resolves its subject. Every failure
// wraps types.ErrInvalidToken.
func (v *Verifier) VerifyToken(_ context.Context, token string) (types.ActorRef, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.ActorRef{}, types.ErrInvalidToken
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, v.options...)
	if err != nil {
		return types.ActorRef{}, fmt.Errorf("%w: %s", types.ErrInvalidToken, describe(err))
	}
	id, err := uuid.Parse(strings.TrimSpace(claims.Subject))
	if err != nil || id == uuid.Nil {
		return types.ActorRef{}, fmt.Errorf("%w: subject is not an identity id", types.ErrInvalidToken)
	}
	return types.ActorRef{ID: id, Type: ActorType}, nil
}

// Sign issues a token for subject. Used by tooling and tests.
func Sign(key string, claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

func describe(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature invalid"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "issuer or audience mismatch"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "algorithm not allowed"
	default:
		return "malformed token"
	}
}
