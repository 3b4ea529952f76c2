package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/time/rate"

	"github.com/tmhaka/handoff"
	"github.com/tmhaka/handoff/config"
	"github.com/tmhaka/handoff/memory"
	"github.com/tmhaka/handoff/metrics"
	"github.com/tmhaka/handoff/middleware/ratelimit"
	"github.com/tmhaka/handoff/repository"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := buildRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	decoder, err := buildDecoder(cfg)
	if err != nil {
		return err
	}

	tokens := handoff.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		nil,
	)

	collector := metrics.NewCollector()

	auth := handoff.NewAuthenticator(repo, decoder, tokens).
		WithActivitySink(handoff.NewRepositoryActivitySink(repo.ActivityLogs())).
		WithMetrics(collector).
		WithStubProvider(cfg.StubProvider)

	sessions := handoff.NewSessionManager(repo.Users(), cfg)

	limiter := ratelimit.New(ratelimit.Config{
		Rate:            rate.Limit(float64(cfg.RateLimitPerMin) / 60.0),
		Burst:           cfg.RateLimitBurst,
		CleanupInterval: time.Minute,
		IdleTTL:         10 * time.Minute,
	})
	defer limiter.Stop()

	app := fiber.New(fiber.Config{
		AppName:      "handoff",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctrl := handoff.NewHTTPController(auth, sessions, repo.ActivityLogs())
	ctrl.RegisterRoutes(app, limiter.Middleware())

	app.Get("/metrics", collector.Handler())
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	errC := make(chan error, 1)
	go func() {
		errC <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// buildRepository picks the storage backend: bun over sqlite when
// DATABASE_DSN is set, the in-process store otherwise.
func buildRepository(ctx context.Context, cfg *config.Config) (handoff.RepositoryManager, func(), error) {
	if cfg.DatabaseDSN == "" {
		return memory.NewManager(), func() {}, nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := repository.ResetSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return repository.NewManager(db), func() { db.Close() }, nil
}

// buildDecoder selects the token decoder: signature-verifying against
// a JWKS endpoint when configured, unverified decode otherwise. The
// demo trusts the primary application's token by default.
func buildDecoder(cfg *config.Config) (handoff.TokenDecoder, error) {
	if cfg.JWKSEndpoint != "" {
		decoder, err := handoff.NewJWKSDecoder(cfg.JWKSEndpoint, nil)
		if err != nil {
			return nil, err
		}
		return decoder, nil
	}
	return handoff.NewUnverifiedDecoder(nil), nil
}
