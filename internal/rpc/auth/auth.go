// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth issues and verifies the daemon's per-run session token.
// It is a scaled-down sibling of the teacher's internal/controller/auth:
// same golang-jwt/jwt/v5 HS256 machinery, but sized for a local single-user
// daemon where the real access boundary is the 0600 Unix socket and its
// companion token file, not a multi-tenant claims/scopes model.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies a connection as holding the daemon's current-run
// secret. There are no scopes or audience: anyone who can read the token
// file already has filesystem access to everything the daemon manages.
type Claims struct {
	jwt.RegisteredClaims
}

// Config carries the signing secret shared between token generation and
// verification within one daemon run.
type Config struct {
	Secret []byte
	Issuer string
}

// NewSecret generates a random 256-bit HS256 signing secret, freshly per
// daemon start (spec.md §4.10 startup), so a token from a previous run
// never authenticates against a new one.
func NewSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("auth: generate secret: %w", err)
	}
	return b, nil
}

// WriteSecretFile persists secret as hex to path with owner-only
// permissions, alongside the daemon's PID and version files.
func WriteSecretFile(path string, secret []byte) error {
	return os.WriteFile(path, []byte(hex.EncodeToString(secret)), 0600)
}

// ReadSecretFile reads back a secret written by WriteSecretFile.
func ReadSecretFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(string(data))
}

// Issue mints a session token valid for the lifetime of one daemon run.
func Issue(cfg Config) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token produced by Issue against cfg's secret.
func Verify(tokenString string, cfg Config) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: verify token: %w", err)
	}
	return claims, nil
}
