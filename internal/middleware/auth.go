// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const identityKey contextKey = "identity"

// ErrInvalidToken is returned for malformed, expired or mis-signed
// bearer tokens.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	UserID string
	Plan   string
}

// Claims is the JWT payload Shelfscout issues and accepts.
type Claims struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens and injects the caller identity
// into the request context.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	logger zerolog.Logger
}

// NewAuthenticator creates an authenticator over an HMAC secret.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAuthenticator(secret string, ttl time.Duration, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// IssueToken creates a signed token for a user. Used by provisioning
// tooling and tests.
func (a *Authenticator) IssueToken(userID, plan string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		Plan:   plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string.
func (a *Authenticator) Verify(tokenString string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}

	plan := claims.Plan
	if plan == "" {
		plan = "free"
	}
	return Identity{UserID: claims.UserID, Plan: plan}, nil
}

// Authenticate rejects requests without a valid bearer token. The
// error body is written by the caller-provided onError so the API
// keeps one error envelope everywhere.
func (a *Authenticator) Authenticate(onError func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				onError(w, r)
				return
			}

			identity, err := a.Verify(tokenString)
			if err != nil {
				a.logger.Debug().Err(err).Msg("token rejected")
				onError(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity extracts the authenticated caller from context.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
