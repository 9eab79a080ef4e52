// Package token mints and verifies access tokens and generates opaque
// refresh tokens.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wardenhq/warden/pkg/config"
)

// ErrInvalidToken indicates the token failed verification.
var ErrInvalidToken = errors.New("invalid token")

// refreshTokenBytes is the entropy of an opaque refresh token before encoding.
const refreshTokenBytes = 32

// Claims are the JWT claims carried by access tokens. The name claim holds
// the username, matching what enforcement resolves roles by.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Pair is an access token with its expiry plus the refresh token that can
// renew it.
type Pair struct {
	AccessToken           string    `json:"accessToken"`
	AccessTokenExpiration time.Time `json:"accessTokenExpiration"`
	RefreshToken          string    `json:"refreshToken"`
}

// Issuer mints HS256 access tokens from configured token options.
type Issuer struct {
	audience   string
	issuer     string
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer creates an issuer from token configuration.
func NewIssuer(cfg config.TokenConfig) *Issuer {
	return &Issuer{
		audience:   cfg.Audience,
		issuer:     cfg.Issuer,
		key:        []byte(cfg.SecurityKey),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

// CreatePair mints an access token for the user plus a fresh refresh token.
func (i *Issuer) CreatePair(username, email string) (*Pair, error) {
	now := time.Now().UTC()
	expiration := now.Add(i.accessTTL)

	claims := Claims{
		Name:  username,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiration),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	refresh, err := NewRefreshToken()
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:           signed,
		AccessTokenExpiration: expiration,
		RefreshToken:          refresh,
	}, nil
}

// RefreshExpiration computes when a refresh token issued alongside the given
// access token expiration stops being accepted.
func (i *Issuer) RefreshExpiration(accessExpiration time.Time) time.Time {
	return accessExpiration.Add(i.refreshTTL)
}

// Verify checks signature, method, issuer, audience and expiry, returning
// the claims of a valid token.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.key, nil
	}, jwt.WithIssuer(i.issuer), jwt.WithAudience(i.audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Name) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NewRefreshToken generates an opaque refresh token from crypto/rand.
func NewRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
