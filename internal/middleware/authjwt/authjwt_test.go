package authjwt

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/qolzam/telar/apps/engagement/internal/kvstore"
	"github.com/qolzam/telar/apps/engagement/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func userClaims(uid interface{}) jwt.MapClaims {
	return jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": "session-1",
		"claim": map[string]interface{}{
			"uid":         uid,
			"username":    "alice@example.com",
			"displayName": "Alice",
			"role":        types.UserRole,
		},
	}
}

func TestValidator_Validate(t *testing.T) {
	ctx := context.Background()
	key, publicPEM := newKeyPair(t)
	validator, err := NewValidator(Config{PublicKey: publicPEM})
	require.NoError(t, err)

	t.Run("String uid", func(t *testing.T) {
		user, err := validator.Validate(ctx, signToken(t, key, userClaims("42")))
		require.NoError(t, err)
		assert.Equal(t, int64(42), user.UserID)
		assert.Equal(t, "Alice", user.DisplayName)
		assert.Equal(t, types.UserRole, user.SystemRole)
	})

	t.Run("Numeric uid", func(t *testing.T) {
		user, err := validator.Validate(ctx, signToken(t, key, userClaims(7)))
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.UserID)
	})

	t.Run("Rejects bad uid", func(t *testing.T) {
		_, err := validator.Validate(ctx, signToken(t, key, userClaims("abc")))
		assert.Error(t, err)
		_, err = validator.Validate(ctx, signToken(t, key, userClaims(0)))
		assert.Error(t, err)
	})

	t.Run("Rejects expired token", func(t *testing.T) {
		claims := userClaims("42")
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := validator.Validate(ctx, signToken(t, key, claims))
		assert.Error(t, err)
	})

	t.Run("Rejects foreign key", func(t *testing.T) {
		otherKey, _ := newKeyPair(t)
		_, err := validator.Validate(ctx, signToken(t, otherKey, userClaims("42")))
		assert.Error(t, err)
	})

	t.Run("Rejects HMAC signed token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, userClaims("42")).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = validator.Validate(ctx, token)
		assert.Error(t, err)
	})
}

func TestValidator_SessionAllowlist(t *testing.T) {
	ctx := context.Background()
	key, publicPEM := newKeyPair(t)
	store := kvstore.NewMemoryStore()
	validator, err := NewValidator(Config{PublicKey: publicPEM, Sessions: store})
	require.NoError(t, err)
	token := signToken(t, key, userClaims("42"))

	_, err = validator.Validate(ctx, token)
	assert.EqualError(t, err, "session has been invalidated")

	sessionKey := SessionKey(42)
	require.NoError(t, store.Watch(ctx, func(tx kvstore.Tx) error {
		return tx.Exec(ctx, kvstore.SetAdd(sessionKey, "session-1"))
	}, sessionKey))

	user, err := validator.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.UserID)

	require.NoError(t, store.Close())
	_, err = validator.Validate(ctx, token)
	assert.Error(t, err, "session check fails closed")
}

func TestNew_Middleware(t *testing.T) {
	key, publicPEM := newKeyPair(t)
	app := fiber.New()
	app.Get("/me", New(Config{PublicKey: publicPEM}), func(c *fiber.Ctx) error {
		return c.JSON(c.Locals(types.UserCtxName).(types.UserContext))
	})

	t.Run("Bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set(types.HeaderAuthorization, types.BearerPrefix+signToken(t, key, userClaims("42")))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: signToken(t, key, userClaims("42"))})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Missing token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestNew_PanicsOnBadKey(t *testing.T) {
	assert.Panics(t, func() {
		New(Config{PublicKey: "not a pem"})
	})
}
