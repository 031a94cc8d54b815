package dualauth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	authhmac "github.com/qolzam/telar/apps/engagement/internal/middleware/authhmac"
	"github.com/qolzam/telar/apps/engagement/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "hmac-secret"

func setup(t *testing.T, optional bool) (*fiber.App, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	cfg := Config{
		PayloadSecret: secret,
		PublicKey:     string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
	}
	middleware := CreateDualAuthMiddleware(cfg)
	if optional {
		middleware = CreateOptionalAuthMiddleware(cfg)
	}

	app := fiber.New()
	app.Get("/whoami", middleware, func(c *fiber.Ctx) error {
		user, ok := c.Locals(types.UserCtxName).(types.UserContext)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(strconv.FormatInt(user.UserID, 10))
	})
	return app, key
}

func bearer(t *testing.T, key *ecdsa.PrivateKey, uid string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"exp":   time.Now().Add(time.Hour).Unix(),
		"claim": map[string]interface{}{"uid": uid},
	}).SignedString(key)
	require.NoError(t, err)
	return types.BearerPrefix + token
}

func hmacRequest(uid string, signingSecret string) *http.Request {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set(types.HeaderHMACAuthenticate, authhmac.Sign("GET", "/whoami", "", nil, uid, now, signingSecret))
	req.Header.Set(types.HeaderUID, uid)
	req.Header.Set(types.HeaderTimestamp, now)
	return req
}

func call(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestDualAuth_Required(t *testing.T) {
	app, key := setup(t, false)

	t.Run("JWT", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set(types.HeaderAuthorization, bearer(t, key, "11"))
		status, body := call(t, app, req)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "11", body)
	})

	t.Run("HMAC", func(t *testing.T) {
		status, body := call(t, app, hmacRequest("12", secret))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "12", body)
	})

	t.Run("Invalid JWT falls back to HMAC", func(t *testing.T) {
		req := hmacRequest("13", secret)
		req.Header.Set(types.HeaderAuthorization, types.BearerPrefix+"garbage")
		status, body := call(t, app, req)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "13", body)
	})

	t.Run("No credentials", func(t *testing.T) {
		status, _ := call(t, app, httptest.NewRequest("GET", "/whoami", nil))
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("Bad signature", func(t *testing.T) {
		status, _ := call(t, app, hmacRequest("12", "wrong"))
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestDualAuth_Optional(t *testing.T) {
	app, key := setup(t, true)

	t.Run("Anonymous passes through", func(t *testing.T) {
		status, body := call(t, app, httptest.NewRequest("GET", "/whoami", nil))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "anonymous", body)
	})

	t.Run("Authenticated", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set(types.HeaderAuthorization, bearer(t, key, "21"))
		status, body := call(t, app, req)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "21", body)
	})

	t.Run("Invalid credentials rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.Header.Set(types.HeaderAuthorization, types.BearerPrefix+"garbage")
		status, _ := call(t, app, req)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}
