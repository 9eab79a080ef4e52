package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/pkg/config"
)

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		Audience:    "warden-clients",
		Issuer:      "warden",
		SecurityKey: "0123456789abcdef0123456789abcdef",
		AccessTTL:   10 * time.Minute,
		RefreshTTL:  time.Hour,
	}
}

func TestCreatePair_RoundTrip(t *testing.T) {
	issuer := NewIssuer(testTokenConfig())

	pair, err := issuer.CreatePair("alice", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := issuer.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "warden", claims.Issuer)
	assert.Contains(t, claims.Audience, "warden-clients")
	assert.WithinDuration(t, pair.AccessTokenExpiration, claims.ExpiresAt.Time, time.Second)
}

func TestCreatePair_ExpirationFromConfig(t *testing.T) {
	cfg := testTokenConfig()
	cfg.AccessTTL = 5 * time.Minute
	issuer := NewIssuer(cfg)

	pair, err := issuer.CreatePair("alice", "alice@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), pair.AccessTokenExpiration, 2*time.Second)
}

func TestRefreshExpiration_ExtendsAccessExpiration(t *testing.T) {
	issuer := NewIssuer(testTokenConfig())

	accessExp := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, accessExp.Add(time.Hour), issuer.RefreshExpiration(accessExp))
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	issuer := NewIssuer(testTokenConfig())

	t.Run("empty", func(t *testing.T) {
		_, err := issuer.Verify("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := testTokenConfig()
		other.SecurityKey = "ffffffffffffffffffffffffffffffff"
		pair, err := NewIssuer(other).CreatePair("alice", "alice@example.com")
		require.NoError(t, err)

		_, err = issuer.Verify(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := testTokenConfig()
		other.Audience = "someone-else"
		pair, err := NewIssuer(other).CreatePair("alice", "alice@example.com")
		require.NoError(t, err)

		_, err = issuer.Verify(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		cfg := testTokenConfig()
		cfg.AccessTTL = -time.Minute
		pair, err := NewIssuer(cfg).CreatePair("alice", "alice@example.com")
		require.NoError(t, err)

		_, err = issuer.Verify(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			Name: "alice",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "warden",
				Audience:  jwt.ClaimStrings{"warden-clients"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken()
	require.NoError(t, err)
	b, err := NewRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	// 32 random bytes, standard base64
	assert.Len(t, a, 44)
}
