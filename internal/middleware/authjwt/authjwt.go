package authjwt

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/qolzam/telar/apps/engagement/internal/kvstore"
	"github.com/qolzam/telar/apps/engagement/internal/pkg/log"
	"github.com/qolzam/telar/apps/engagement/internal/types"
)

// AccessTokenCookie is the cookie browsers carry the access token in
const AccessTokenCookie = "access_token"

// Config defines the config for the JWT middleware.
type Config struct {
	// The EC public key for validating ES256 tokens.
	PublicKey string
	// The claim key where the UserContext is stored.
	ClaimKey string
	// The context key to store the UserContext.
	UserCtxName string
	// Optional store for session allowlisting. When set, the token's jti
	// must be a member of sessions:{uid}.
	Sessions kvstore.Store
}

// Validator checks tokens against a parsed public key
type Validator struct {
	publicKey *ecdsa.PublicKey
	claimKey  string
	sessions  kvstore.Store
}

// NewValidator parses the configured key once
func NewValidator(cfg Config) (*Validator, error) {
	ecPublicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(cfg.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC public key: %w", err)
	}
	claimKey := cfg.ClaimKey
	if claimKey == "" {
		claimKey = "claim"
	}
	return &Validator{
		publicKey: ecPublicKey,
		claimKey:  claimKey,
		sessions:  cfg.Sessions,
	}, nil
}

// New creates a new middleware handler.
func New(cfg Config) fiber.Handler {
	validator, err := NewValidator(cfg)
	if err != nil {
		panic(err.Error())
	}
	userCtxName := cfg.UserCtxName
	if userCtxName == "" {
		userCtxName = types.UserCtxName
	}

	return func(c *fiber.Ctx) error {
		tokenString := TokenFromRequest(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "Missing or invalid JWT",
			})
		}

		userCtx, err := validator.Validate(c.UserContext(), tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "Invalid token",
				"details": err.Error(),
			})
		}

		c.Locals(userCtxName, userCtx)
		return c.Next()
	}
}

// TokenFromRequest returns the bearer token, falling back to the access_token cookie
func TokenFromRequest(c *fiber.Ctx) string {
	authHeader := c.Get(types.HeaderAuthorization)
	if strings.HasPrefix(authHeader, types.BearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, types.BearerPrefix)); token != "" {
			return token
		}
	}
	return c.Cookies(AccessTokenCookie)
}

// Validate verifies tokenString and returns the UserContext it carries.
// It does not write to the response.
func (v *Validator) Validate(ctx context.Context, tokenString string) (types.UserContext, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey, nil
	})
	if err != nil {
		return types.UserContext{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return types.UserContext{}, errors.New("invalid token")
	}

	if exp, ok := claims["exp"].(float64); ok && int64(exp) < time.Now().Unix() {
		return types.UserContext{}, errors.New("token has expired")
	}

	claimData, ok := claims[v.claimKey].(map[string]interface{})
	if !ok {
		return types.UserContext{}, errors.New("invalid token claim format")
	}

	userCtx, err := mapToUserContext(claimData)
	if err != nil {
		return types.UserContext{}, fmt.Errorf("invalid user context in token: %w", err)
	}

	if v.sessions != nil {
		jti, _ := claims["jti"].(string)
		if jti == "" {
			return types.UserContext{}, errors.New("missing session ID")
		}
		key := SessionKey(userCtx.UserID)
		isMember, err := v.sessions.SetIsMember(ctx, key, jti)
		if err != nil {
			// Fail closed
			log.WarnWithContext(ctx, "CRITICAL: session check failed for user %d: %v", userCtx.UserID, err)
			return types.UserContext{}, fmt.Errorf("session validation failed: %w", err)
		}
		if !isMember {
			return types.UserContext{}, errors.New("session has been invalidated")
		}
	}

	return userCtx, nil
}

// SessionKey is the set of live session ids of userID
func SessionKey(userID int64) string {
	return "sessions:" + strconv.FormatInt(userID, 10)
}

// mapToUserContext converts claim data to UserContext
func mapToUserContext(claimData map[string]interface{}) (types.UserContext, error) {
	var userCtx types.UserContext

	switch uid := claimData[types.HeaderUID].(type) {
	case string:
		userID, err := types.ParseUserID(uid)
		if err != nil {
			return userCtx, fmt.Errorf("invalid user ID %q: %v", uid, err)
		}
		userCtx.UserID = userID
	case float64:
		if uid <= 0 || uid != float64(int64(uid)) {
			return userCtx, fmt.Errorf("invalid user ID %v", uid)
		}
		userCtx.UserID = int64(uid)
	default:
		return userCtx, errors.New("missing or invalid uid in claim")
	}

	if username, ok := claimData["username"].(string); ok {
		userCtx.Username = username
	}
	if displayName, ok := claimData["displayName"].(string); ok {
		userCtx.DisplayName = displayName
	}
	if systemRole, ok := claimData["role"].(string); ok {
		userCtx.SystemRole = systemRole
	}
	if createdDate, ok := claimData["createdDate"].(float64); ok {
		userCtx.CreatedDate = int64(createdDate)
	}

	return userCtx, nil
}
