package dualauth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/telar/apps/engagement/internal/kvstore"
	authhmac "github.com/qolzam/telar/apps/engagement/internal/middleware/authhmac"
	authjwt "github.com/qolzam/telar/apps/engagement/internal/middleware/authjwt"
	"github.com/qolzam/telar/apps/engagement/internal/pkg/log"
	"github.com/qolzam/telar/apps/engagement/internal/types"
)

// Config holds the configuration needed for dual authentication middleware
type Config struct {
	PayloadSecret string        // HMAC secret for S2S authentication; empty disables HMAC
	PublicKey     string        // ECDSA public key for JWT validation; empty disables JWT
	Sessions      kvstore.Store // optional session allowlist for JWT
}

// CreateDualAuthMiddleware creates dual authentication middleware for JWT + HMAC.
// JWT (Authorization: Bearer or access_token cookie) is tried first, then the
// HMAC signature headers. Requests with neither are rejected.
//
// Usage:
//
//	dualAuthMiddleware := dualauth.CreateDualAuthMiddleware(dualauth.Config{
//	    PayloadSecret: cfg.HMAC.Secret,
//	    PublicKey:     cfg.JWT.PublicKey,
//	})
//	group.Post("/toggle", dualAuthMiddleware, handlers.ToggleLike)
func CreateDualAuthMiddleware(cfg Config) fiber.Handler {
	return newMiddleware(cfg, false)
}

// CreateOptionalAuthMiddleware authenticates the caller when credentials are
// present and lets anonymous requests through with no user in Locals.
// Credentials that are present but invalid are still rejected.
func CreateOptionalAuthMiddleware(cfg Config) fiber.Handler {
	return newMiddleware(cfg, true)
}

func newMiddleware(cfg Config, optional bool) fiber.Handler {
	var validator *authjwt.Validator
	if cfg.PublicKey != "" {
		v, err := authjwt.NewValidator(authjwt.Config{
			PublicKey: cfg.PublicKey,
			ClaimKey:  "claim",
			Sessions:  cfg.Sessions,
		})
		if err != nil {
			panic(err.Error())
		}
		validator = v
	}

	hmacConfig := authhmac.Config{PayloadSecret: cfg.PayloadSecret}

	return func(c *fiber.Ctx) error {
		presented := false

		if token := authjwt.TokenFromRequest(c); token != "" && validator != nil {
			presented = true
			userCtx, err := validator.Validate(c.UserContext(), token)
			if err == nil {
				c.Locals(types.UserCtxName, userCtx)
				return c.Next()
			}
			log.WarnWithContext(c.UserContext(), "JWT authentication failed: %v", err)
		}

		if c.Get(types.HeaderHMACAuthenticate) != "" && cfg.PayloadSecret != "" {
			presented = true
			userCtx, err := authhmac.Authenticate(c, hmacConfig)
			if err == nil {
				c.Locals(types.UserCtxName, userCtx)
				return c.Next()
			}
			log.WarnWithContext(c.UserContext(), "HMAC authentication failed: %v", err)
		}

		if optional && !presented {
			return c.Next()
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"code":    "UNAUTHORIZED",
			"message": "Missing or invalid authentication credentials",
		})
	}
}
