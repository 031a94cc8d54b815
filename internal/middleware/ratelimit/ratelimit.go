// Package ratelimit provides rate limiting middleware for engagement endpoints
package ratelimit

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/qolzam/telar/apps/engagement/internal/pkg/log"
	"github.com/qolzam/telar/apps/engagement/internal/types"
)

// EndpointLimits defines rate limiting configuration for specific endpoints
type EndpointLimits struct {
	// Like toggles: 60 per minute per user
	ToggleMaxRequests    int
	ToggleWindowDuration time.Duration

	// Batch summaries: 120 per minute per caller
	SummariesMaxRequests    int
	SummariesWindowDuration time.Duration
}

// DefaultEndpointLimits returns the default rate limits
func DefaultEndpointLimits() EndpointLimits {
	return EndpointLimits{
		ToggleMaxRequests:    60,
		ToggleWindowDuration: time.Minute,

		SummariesMaxRequests:    120,
		SummariesWindowDuration: time.Minute,
	}
}

// EndpointType represents the endpoints that are rate limited
type EndpointType int

const (
	EndpointToggle EndpointType = iota
	EndpointSummaries
)

// Config holds the configuration for rate limiting middleware
type Config struct {
	// Endpoint type to determine which limits to apply
	EndpointType EndpointType

	// Custom limits (optional - uses defaults if not provided)
	Limits *EndpointLimits

	// Next defines a function to skip this middleware when returned true
	Next func(c *fiber.Ctx) bool

	// Custom key generator (optional - authenticated user, else IP)
	KeyGenerator func(c *fiber.Ctx) string

	// LimitReached defines the response when rate limit is exceeded
	LimitReached func(c *fiber.Ctx) error
}

// configDefault sets default configuration values
func configDefault(config Config) Config {
	if config.Limits == nil {
		limits := DefaultEndpointLimits()
		config.Limits = &limits
	}

	if config.KeyGenerator == nil {
		config.KeyGenerator = CallerKey
	}

	if config.LimitReached == nil {
		config.LimitReached = func(c *fiber.Ctx) error {
			endpointName := getEndpointName(config.EndpointType)
			windowDuration := getWindowDuration(config.EndpointType, config.Limits)

			log.WarnWithContext(c.UserContext(), "[RateLimit] Rate limit exceeded for %s by %s", endpointName, CallerKey(c))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"code":       "RATE_LIMIT_EXCEEDED",
				"message":    fmt.Sprintf("Too many %s requests. Please try again later.", endpointName),
				"retryAfter": int(windowDuration.Seconds()),
			})
		}
	}

	return config
}

// CallerKey identifies the caller: the authenticated user when there is one, else the IP
func CallerKey(c *fiber.Ctx) string {
	if user, ok := c.Locals(types.UserCtxName).(types.UserContext); ok && user.IsAuthenticated() {
		return "user:" + strconv.FormatInt(user.UserID, 10)
	}
	return "ip:" + c.IP()
}

// getEndpointName returns human-readable endpoint name for logging
func getEndpointName(endpointType EndpointType) string {
	switch endpointType {
	case EndpointToggle:
		return "like toggle"
	case EndpointSummaries:
		return "like summary"
	default:
		return "unknown"
	}
}

// getMaxRequests returns the max requests for the endpoint type
func getMaxRequests(endpointType EndpointType, limits *EndpointLimits) int {
	switch endpointType {
	case EndpointToggle:
		return limits.ToggleMaxRequests
	case EndpointSummaries:
		return limits.SummariesMaxRequests
	default:
		return 30
	}
}

// getWindowDuration returns the window duration for the endpoint type
func getWindowDuration(endpointType EndpointType, limits *EndpointLimits) time.Duration {
	switch endpointType {
	case EndpointToggle:
		return limits.ToggleWindowDuration
	case EndpointSummaries:
		return limits.SummariesWindowDuration
	default:
		return time.Minute
	}
}

// New creates a new rate limiting middleware handler
func New(config Config) fiber.Handler {
	cfg := configDefault(config)

	return limiter.New(limiter.Config{
		Max:          getMaxRequests(cfg.EndpointType, cfg.Limits),
		Expiration:   getWindowDuration(cfg.EndpointType, cfg.Limits),
		KeyGenerator: cfg.KeyGenerator,
		LimitReached: cfg.LimitReached,
		Next:         cfg.Next,
	})
}

// NewToggleLimiter creates a rate limiter for like toggles
func NewToggleLimiter(customLimits *EndpointLimits) fiber.Handler {
	return New(Config{
		EndpointType: EndpointToggle,
		Limits:       customLimits,
	})
}

// NewSummariesLimiter creates a rate limiter for batch summary reads
func NewSummariesLimiter(customLimits *EndpointLimits) fiber.Handler {
	return New(Config{
		EndpointType: EndpointSummaries,
		Limits:       customLimits,
	})
}
