package authhmac

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/telar/apps/engagement/internal/pkg/log"
	"github.com/qolzam/telar/apps/engagement/internal/types"
)

// New creates a new middleware handler
func New(config Config) fiber.Handler {
	cfg := configDefault(config)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		userCtx, err := Authenticate(c, cfg)
		if err != nil {
			log.ErrorWithContext(c.UserContext(), "Unauthorized! %v", err)
			return cfg.Unauthorized(c)
		}

		c.Locals(cfg.UserCtxName, userCtx)
		return c.Next()
	}
}

// Authenticate validates the signed headers of c and returns the caller.
// It does not write to the response.
func Authenticate(c *fiber.Ctx, config Config) (types.UserContext, error) {
	cfg := configDefault(config)

	auth := c.Get(types.HeaderHMACAuthenticate)
	uid := c.Get(types.HeaderUID)
	timestamp := c.Get(types.HeaderTimestamp)

	if auth == "" {
		return types.UserContext{}, fmt.Errorf("HMAC signature not provided")
	}
	if uid == "" {
		return types.UserContext{}, fmt.Errorf("uid header is required for HMAC authentication")
	}
	if timestamp == "" {
		return types.UserContext{}, fmt.Errorf("X-Timestamp header is required for HMAC authentication")
	}

	query := string(c.Context().URI().QueryString())
	if err := cfg.Authorizer(c.Method(), c.Path(), query, c.Body(), auth, uid, timestamp); err != nil {
		return types.UserContext{}, fmt.Errorf("HMAC validation failed: %w", err)
	}

	userID, err := types.ParseUserID(uid)
	if err != nil {
		return types.UserContext{}, fmt.Errorf("invalid uid %q: %w", uid, err)
	}

	createdDate, _ := strconv.ParseInt(timestamp, 10, 64)
	return types.UserContext{
		UserID:      userID,
		Username:    c.Get("username"),
		DisplayName: c.Get("displayName"),
		SystemRole:  c.Get("systemRole"),
		CreatedDate: createdDate,
	}, nil
}
