// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package likes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/telar/apps/engagement/internal/kvstore"
	authhmac "github.com/qolzam/telar/apps/engagement/internal/middleware/authhmac"
	platformconfig "github.com/qolzam/telar/apps/engagement/internal/platform/config"
	"github.com/qolzam/telar/apps/engagement/internal/types"
	"github.com/qolzam/telar/apps/engagement/likes"
	"github.com/qolzam/telar/apps/engagement/likes/handlers"
	"github.com/qolzam/telar/apps/engagement/likes/models"
	"github.com/qolzam/telar/apps/engagement/likes/repository"
	"github.com/qolzam/telar/apps/engagement/likes/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "routes-test-secret"

func newTestServer(t *testing.T, overrides map[string]string) *fiber.App {
	t.Helper()
	env := map[string]string{
		"HMAC_SECRET":         secret,
		"LIKES_STORE_BACKEND": "memory",
	}
	for k, v := range overrides {
		env[k] = v
	}
	cfg, err := platformconfig.LoadFromMap(env)
	require.NoError(t, err)

	store := kvstore.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	service := services.NewLikeService(repository.NewStoreLikeRepository(store), services.DefaultServiceConfig())
	app := fiber.New()
	likes.RegisterRoutes(app, &likes.LikesHandlers{
		LikeHandler: handlers.NewLikeHandler(service, nil),
	}, cfg, store)
	return app
}

func signed(method, path, query string, body []byte, uid int64) *http.Request {
	target := path
	if query != "" {
		target += "?" + query
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(types.HeaderContentType, "application/json")
	}
	uidStr := strconv.FormatInt(uid, 10)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(types.HeaderHMACAuthenticate, authhmac.Sign(method, path, query, body, uidStr, timestamp, secret))
	req.Header.Set(types.HeaderUID, uidStr)
	req.Header.Set(types.HeaderTimestamp, timestamp)
	return req
}

func toggle(t *testing.T, app *fiber.App, uid int64, entityID, ownerID int64) *http.Response {
	t.Helper()
	body, err := json.Marshal(models.ToggleRequest{EntityType: 1, EntityID: entityID, EntityUserID: ownerID})
	require.NoError(t, err)
	resp, err := app.Test(signed("POST", "/likes/toggle", "", body, uid))
	require.NoError(t, err)
	return resp
}

func TestRoutes_LedgerFlow(t *testing.T) {
	app := newTestServer(t, nil)

	resp := toggle(t, app, 1, 7, 3)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var toggled models.ToggleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&toggled))
	assert.True(t, toggled.Liked)
	require.NotNil(t, toggled.LikeCount)
	assert.Equal(t, int64(1), *toggled.LikeCount)

	require.Equal(t, http.StatusOK, toggle(t, app, 2, 7, 3).StatusCode)

	resp, err := app.Test(httptest.NewRequest("GET", "/likes/count?entityType=1&entityId=7", nil))
	require.NoError(t, err)
	var count models.CountResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&count))
	assert.Equal(t, int64(2), count.LikeCount)

	resp, err = app.Test(httptest.NewRequest("GET", "/likes/users/3/total", nil))
	require.NoError(t, err)
	var total models.UserTotalResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&total))
	assert.Equal(t, int64(2), total.LikeCount)

	resp, err = app.Test(signed("GET", "/likes/status", "entityType=1&entityId=7", nil, 1))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status models.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.True(t, status.Liked)

	resp, err = app.Test(signed("GET", "/likes/summaries", "entityType=1&ids=7,8", nil, 2))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summaries models.SummariesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries.Items, 2)
	assert.Equal(t, models.Summary{EntityID: 7, LikeCount: 2, Liked: true}, summaries.Items[0])
	assert.Equal(t, models.Summary{EntityID: 8}, summaries.Items[1])

	// Second toggle by the same user undoes the first
	resp = toggle(t, app, 1, 7, 3)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&toggled))
	assert.False(t, toggled.Liked)
	assert.Equal(t, int64(1), *toggled.LikeCount)
}

func TestRoutes_Authentication(t *testing.T) {
	app := newTestServer(t, nil)

	t.Run("Toggle without credentials", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/likes/toggle", bytes.NewReader([]byte(`{"entityType":1,"entityId":1,"entityUserId":2}`)))
		req.Header.Set(types.HeaderContentType, "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Status without credentials", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/likes/status?entityType=1&entityId=1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Anonymous summaries", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/likes/summaries?entityType=1&ids=1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Summaries with a bad signature", func(t *testing.T) {
		req := signed("GET", "/likes/summaries", "entityType=1&ids=1", nil, 2)
		req.Header.Set(types.HeaderHMACAuthenticate, "sha256=00")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRoutes_ToggleRateLimit(t *testing.T) {
	app := newTestServer(t, map[string]string{
		"RATE_LIMIT_TOGGLE_MAX":      "2",
		"RATE_LIMIT_TOGGLE_DURATION": "1m",
	})

	assert.Equal(t, http.StatusOK, toggle(t, app, 9, 1, 2).StatusCode)
	assert.Equal(t, http.StatusOK, toggle(t, app, 9, 1, 2).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, toggle(t, app, 9, 1, 2).StatusCode)

	// Limits are per caller
	assert.Equal(t, http.StatusOK, toggle(t, app, 10, 1, 2).StatusCode)
}

func TestRoutes_RateLimitDisabled(t *testing.T) {
	app := newTestServer(t, map[string]string{
		"RATE_LIMIT_TOGGLE_ENABLED": "false",
		"RATE_LIMIT_TOGGLE_MAX":     "1",
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, toggle(t, app, 9, 1, 2).StatusCode)
	}
}
