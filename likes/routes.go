// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package likes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/telar/apps/engagement/internal/kvstore"
	dualauth "github.com/qolzam/telar/apps/engagement/internal/middleware/dualauth"
	"github.com/qolzam/telar/apps/engagement/internal/middleware/ratelimit"
	platformconfig "github.com/qolzam/telar/apps/engagement/internal/platform/config"
	"github.com/qolzam/telar/apps/engagement/likes/handlers"
)

// LikesHandlers holds all the handlers this router needs
type LikesHandlers struct {
	LikeHandler *handlers.LikeHandler
}

// RouterConfig holds the configuration needed for the router's middleware
type RouterConfig struct {
	PayloadSecret string
	PublicKey     string
	Sessions      kvstore.Store
	Limits        ratelimit.EndpointLimits
	LimitToggle   bool
	LimitSummary  bool
}

func newRouterConfig(cfg *platformconfig.Config, sessions kvstore.Store) *RouterConfig {
	limits := ratelimit.DefaultEndpointLimits()
	if cfg.RateLimits.Toggle.Max > 0 {
		limits.ToggleMaxRequests = cfg.RateLimits.Toggle.Max
	}
	if cfg.RateLimits.Toggle.Duration > 0 {
		limits.ToggleWindowDuration = cfg.RateLimits.Toggle.Duration
	}
	if cfg.RateLimits.Summaries.Max > 0 {
		limits.SummariesMaxRequests = cfg.RateLimits.Summaries.Max
	}
	if cfg.RateLimits.Summaries.Duration > 0 {
		limits.SummariesWindowDuration = cfg.RateLimits.Summaries.Duration
	}

	routerConfig := &RouterConfig{
		PayloadSecret: cfg.HMAC.Secret,
		PublicKey:     cfg.JWT.PublicKey,
		Limits:        limits,
		LimitToggle:   cfg.RateLimits.Toggle.Enabled,
		LimitSummary:  cfg.RateLimits.Summaries.Enabled,
	}
	if cfg.Sessions.AllowlistEnabled {
		routerConfig.Sessions = sessions
	}
	return routerConfig
}

// RegisterRoutes is the single entry point for setting up likes routes.
// sessions backs the JWT session allowlist and is ignored when it is disabled.
func RegisterRoutes(app *fiber.App, handlers *LikesHandlers, cfg *platformconfig.Config, sessions kvstore.Store) {
	routerConfig := newRouterConfig(cfg, sessions)

	authConfig := dualauth.Config{
		PayloadSecret: routerConfig.PayloadSecret,
		PublicKey:     routerConfig.PublicKey,
		Sessions:      routerConfig.Sessions,
	}
	dualAuthMiddleware := dualauth.CreateDualAuthMiddleware(authConfig)
	optionalAuthMiddleware := dualauth.CreateOptionalAuthMiddleware(authConfig)

	group := app.Group("/likes")

	// --- Public Routes ---
	group.Get("/count", handlers.LikeHandler.GetLikeCount)
	group.Get("/users/:userId/total", handlers.LikeHandler.GetUserLikeTotal)

	// Summaries personalise liked flags when the caller is known
	summaryChain := []fiber.Handler{optionalAuthMiddleware}
	if routerConfig.LimitSummary {
		summaryChain = append(summaryChain, ratelimit.NewSummariesLimiter(&routerConfig.Limits))
	}
	summaryChain = append(summaryChain, handlers.LikeHandler.GetSummaries)
	group.Get("/summaries", summaryChain...)

	// --- User-Facing Routes (Dual Auth) ---
	toggleChain := []fiber.Handler{dualAuthMiddleware}
	if routerConfig.LimitToggle {
		toggleChain = append(toggleChain, ratelimit.NewToggleLimiter(&routerConfig.Limits))
	}
	toggleChain = append(toggleChain, handlers.LikeHandler.ToggleLike)
	group.Post("/toggle", toggleChain...)

	group.Get("/status", dualAuthMiddleware, handlers.LikeHandler.GetLikeStatus)
}
