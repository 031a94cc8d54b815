package authhmac

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/qolzam/telar/apps/engagement/internal/types"
)

// Config defines the config for middleware.
type Config struct {
	// Next defines a function to skip this middleware when returned true.
	//
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Realm identifies the system to authenticate against
	//
	// Optional. Default: "Restricted".
	Realm string

	// Authorizer checks the canonical request against the signature.
	// It returns nil when the credentials are approved.
	//
	// Optional. Default: HMAC-SHA256 over the canonical string.
	Authorizer func(method, path, query string, body []byte, signature, uid, timestamp string) error

	// Unauthorized defines the response body for unauthorized responses.
	//
	// Optional. Default: 401 with a WWW-Authenticate header
	Unauthorized fiber.Handler

	// PayloadSecret is the key to validate HMAC
	//
	// Required.
	PayloadSecret string

	// MaxClockSkew bounds the distance between X-Timestamp and now
	//
	// Optional. Default: 5 minutes
	MaxClockSkew time.Duration

	// UserCtxName is the key to store the user context in Locals
	//
	// Optional. Default: "user"
	UserCtxName string
}

// ConfigDefault is the default config
var ConfigDefault = Config{
	Realm:        "Restricted",
	MaxClockSkew: 5 * time.Minute,
	UserCtxName:  types.UserCtxName,
}

// Helper function to set default values
func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.Realm == "" {
		cfg.Realm = ConfigDefault.Realm
	}
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = ConfigDefault.MaxClockSkew
	}
	if cfg.Authorizer == nil {
		cfg.Authorizer = func(method, path, query string, body []byte, signature, uid, timestamp string) error {
			return ValidateSignature(method, path, query, body, signature, cfg.PayloadSecret, uid, timestamp, cfg.MaxClockSkew)
		}
	}
	if cfg.Unauthorized == nil {
		cfg.Unauthorized = func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, "HMAC realm="+cfg.Realm)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "Invalid service signature",
			})
		}
	}
	if cfg.UserCtxName == "" {
		cfg.UserCtxName = ConfigDefault.UserCtxName
	}
	return cfg
}

// Sign produces the X-Telar-Signature value for a request.
// Canonical string format: METHOD\nPATH\nQUERY\nsha256(BODY)\nUID\nTIMESTAMP
func Sign(method, path, query string, body []byte, uid, timestamp, secret string) string {
	bodyHash := sha256.Sum256(body)
	canonicalString := fmt.Sprintf("%s\n%s\n%s\n%x\n%s\n%s",
		method,
		path,
		query,
		bodyHash,
		uid,
		timestamp,
	)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonicalString))
	return types.HMACPrefix + hex.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks an X-Telar-Signature value against the canonical request
func ValidateSignature(method, path, query string, body []byte, encodedHash, secret, uid, timestamp string, maxSkew time.Duration) error {
	if method == "" || path == "" || encodedHash == "" || secret == "" || uid == "" || timestamp == "" {
		return fmt.Errorf("missing required parameters for HMAC validation")
	}

	timestampInt, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp format: %w", err)
	}

	skew := time.Since(time.Unix(timestampInt, 0))
	if skew > maxSkew || skew < -maxSkew {
		return fmt.Errorf("timestamp outside valid window (±%s): %s difference", maxSkew, skew.Round(time.Second))
	}

	if !strings.HasPrefix(encodedHash, types.HMACPrefix) {
		return fmt.Errorf("invalid signature format, expected '%s' prefix", types.HMACPrefix)
	}

	signature, err := hex.DecodeString(strings.TrimPrefix(encodedHash, types.HMACPrefix))
	if err != nil {
		return fmt.Errorf("failed to decode hex signature: %w", err)
	}

	expected, _ := hex.DecodeString(strings.TrimPrefix(Sign(method, path, query, body, uid, timestamp, secret), types.HMACPrefix))
	if !hmac.Equal(signature, expected) {
		return fmt.Errorf("HMAC signature validation failed")
	}

	return nil
}
