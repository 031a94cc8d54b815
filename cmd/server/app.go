package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qolzam/telar/apps/engagement/content/repository"
	"github.com/qolzam/telar/apps/engagement/internal/database/postgres"
	"github.com/qolzam/telar/apps/engagement/internal/kvstore"
	"github.com/qolzam/telar/apps/engagement/internal/middleware/requestid"
	"github.com/qolzam/telar/apps/engagement/internal/pkg/log"
	platformconfig "github.com/qolzam/telar/apps/engagement/internal/platform/config"
	"github.com/qolzam/telar/apps/engagement/likes"
	"github.com/qolzam/telar/apps/engagement/likes/handlers"
	likeRepository "github.com/qolzam/telar/apps/engagement/likes/repository"
	"github.com/qolzam/telar/apps/engagement/likes/services"
	"github.com/qolzam/telar/apps/engagement/shared/interfaces"
)

const healthCheckTimeout = 2 * time.Second

// dependencies are the long-lived connections the app is built on.
// db is nil when owner lookups are disabled.
type dependencies struct {
	store kvstore.Store
	db    *postgres.Client
}

func (d *dependencies) Close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			log.Error("closing like store: %v", err)
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Error("closing content database: %v", err)
		}
	}
}

func openDependencies(ctx context.Context, cfg *platformconfig.Config) (*dependencies, error) {
	store, err := kvstore.NewStore(cfg.KVStoreConfig())
	if err != nil {
		return nil, err
	}
	deps := &dependencies{store: store}

	if cfg.OwnerLookupEnabled() {
		db, err := postgres.NewClient(ctx, postgres.Config{
			DSN:             cfg.Database.Postgres.DSN,
			MaxOpenConns:    cfg.Database.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Database.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.db = db
	}
	return deps, nil
}

// newApp wires handlers, middleware and operational endpoints
func newApp(cfg *platformconfig.Config, deps *dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			log.ErrorWithContext(c.UserContext(), "[ErrorHandler] Path: %s, Error: %v, Code: %d", c.Path(), err, code)

			// If response already set by handler, don't override it
			if len(c.Response().Body()) > 0 {
				return nil
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowCredentials: cfg.Server.CORSOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Telar-Signature, X-Timestamp, uid",
		AllowMethods:     "GET, POST, OPTIONS",
	}))

	app.Get("/health", healthHandler(deps))
	if cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	var owners interfaces.ContentOwnerLookup
	if deps.db != nil {
		owners = repository.NewOwnerDirectory(deps.db)
	}

	likeService := services.NewLikeService(likeRepository.NewStoreLikeRepository(deps.store), services.ServiceConfig{
		MaxRetries:       cfg.Likes.MaxRetries,
		RetryBackoff:     cfg.Likes.RetryBackoff,
		OperationTimeout: cfg.Likes.OperationTimeout,
		MaxBatchSize:     cfg.Likes.MaxBatchSize,
	})

	likes.RegisterRoutes(app, &likes.LikesHandlers{
		LikeHandler: handlers.NewLikeHandler(likeService, owners),
	}, cfg, deps.store)

	return app
}

// healthHandler reports 503 when the like store or the content database is unreachable
func healthHandler(deps *dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
		defer cancel()

		status := fiber.Map{"store": "ok"}
		healthy := true
		if err := deps.store.Ping(ctx); err != nil {
			log.WarnWithContext(ctx, "health: like store unreachable: %v", err)
			status["store"] = "unavailable"
			healthy = false
		}
		if deps.db != nil {
			status["database"] = "ok"
			if err := deps.db.Ping(ctx); err != nil {
				log.WarnWithContext(ctx, "health: content database unreachable: %v", err)
				status["database"] = "unavailable"
				healthy = false
			}
		}

		if !healthy {
			status["status"] = "degraded"
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		status["status"] = "ok"
		return c.JSON(status)
	}
}
