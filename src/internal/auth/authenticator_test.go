package auth

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"mqbridge/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func basicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func TestNew_DisabledAuth(t *testing.T) {
	logger := newTestLogger()

	for _, cfg := range []*config.AuthConfig{nil, {Type: ""}, {Type: "none"}} {
		a, err := New(cfg, logger)
		require.NoError(t, err)
		assert.Nil(t, a)
		// A nil authenticator allows everything
		assert.True(t, a.Check("", "10.0.0.1:1234"))
	}
}

func TestAuthenticator_Basic(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	a, err := New(&config.AuthConfig{
		Type: "basic",
		BasicAuth: &config.BasicAuthConfig{
			Users: []config.UserAuth{{Username: "ops", PasswordHash: string(hash)}},
		},
	}, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, a)

	t.Run("ValidCredentials", func(t *testing.T) {
		assert.True(t, a.Check(basicHeader("ops", "secret"), "10.0.0.1:1234"))
	})

	t.Run("WrongPassword", func(t *testing.T) {
		assert.False(t, a.Check(basicHeader("ops", "wrong"), "10.0.0.2:1234"))
	})

	t.Run("UnknownUser", func(t *testing.T) {
		assert.False(t, a.Check(basicHeader("nobody", "secret"), "10.0.0.3:1234"))
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		assert.False(t, a.Check("Basic not-base64!!", "10.0.0.4:1234"))
		assert.False(t, a.Check("", "10.0.0.4:1234"))
	})
}

func TestAuthenticator_Bearer(t *testing.T) {
	signingKey := "0123456789abcdef0123456789abcdef"

	a, err := New(&config.AuthConfig{
		Type: "bearer",
		BearerAuth: &config.BearerAuthConfig{
			Tokens:        []string{"static-token"},
			JWTSigningKey: signingKey,
		},
	}, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, a)

	t.Run("StaticToken", func(t *testing.T) {
		assert.True(t, a.Check("Bearer static-token", "10.0.1.1:1234"))
	})

	t.Run("ValidJWT", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "mqbridge",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(signingKey))
		require.NoError(t, err)

		assert.True(t, a.Check("Bearer "+signed, "10.0.1.2:1234"))
	})

	t.Run("ExpiredJWT", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "mqbridge",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(signingKey))
		require.NoError(t, err)

		assert.False(t, a.Check("Bearer "+signed, "10.0.1.3:1234"))
	})

	t.Run("WrongSigningKey", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "mqbridge",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte("a-completely-different-key------"))
		require.NoError(t, err)

		assert.False(t, a.Check("Bearer "+signed, "10.0.1.4:1234"))
	})

	t.Run("GarbageToken", func(t *testing.T) {
		assert.False(t, a.Check("Bearer garbage", "10.0.1.5:1234"))
	})
}

func TestAuthenticator_Throttling(t *testing.T) {
	a, err := New(&config.AuthConfig{
		Type:       "bearer",
		BearerAuth: &config.BearerAuthConfig{Tokens: []string{"tok"}},
	}, newTestLogger())
	require.NoError(t, err)

	addr := "10.0.2.1:1234"

	// Burn through the failure budget
	for i := 0; i < attemptBurst+2; i++ {
		a.Check("Bearer wrong", addr)
	}

	// Even valid credentials are throttled from this address now
	assert.False(t, a.Check("Bearer tok", addr))

	// Other addresses are unaffected
	assert.True(t, a.Check("Bearer tok", "10.0.2.2:1234"))
}

func TestAuthenticator_ThrottlingSurvivesPortRotation(t *testing.T) {
	a, err := New(&config.AuthConfig{
		Type:       "bearer",
		BearerAuth: &config.BearerAuthConfig{Tokens: []string{"tok"}},
	}, newTestLogger())
	require.NoError(t, err)

	// Failures from one host across many ephemeral ports share a limiter
	for port := 40000; port < 40000+attemptBurst+2; port++ {
		a.Check("Bearer wrong", fmt.Sprintf("10.0.3.1:%d", port))
	}

	assert.False(t, a.Check("Bearer tok", "10.0.3.1:50000"))

	// A different host on the same ports is unaffected
	assert.True(t, a.Check("Bearer tok", "10.0.3.2:50000"))
}

func TestAuthenticator_RawAddressWithoutPort(t *testing.T) {
	a, err := New(&config.AuthConfig{
		Type:       "bearer",
		BearerAuth: &config.BearerAuthConfig{Tokens: []string{"tok"}},
	}, newTestLogger())
	require.NoError(t, err)

	// Addresses that are not host:port still throttle on the raw string
	for i := 0; i < attemptBurst+2; i++ {
		a.Check("Bearer wrong", "10.0.4.1")
	}
	assert.False(t, a.Check("Bearer tok", "10.0.4.1"))
}
