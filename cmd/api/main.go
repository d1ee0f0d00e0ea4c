package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gemfoundation/exposure/internal/adapters/http"
	natsadapter "github.com/gemfoundation/exposure/internal/adapters/nats"
	"github.com/gemfoundation/exposure/internal/adapters/postgres"
	"github.com/gemfoundation/exposure/internal/adapters/valkey"
	"github.com/gemfoundation/exposure/internal/core/ports"
	"github.com/gemfoundation/exposure/internal/core/usecases"
	"github.com/gemfoundation/exposure/internal/pkg/config"
	"github.com/gemfoundation/exposure/internal/pkg/logging"
	"github.com/gemfoundation/exposure/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("exposure-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateAuth(); err != nil {
		log.Fatal(err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Cache
	var formCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, admin levels will not be cached", "error", err)
	} else {
		formCache = cache
		defer cache.Close()
	}

	// NATS
	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events will not be published", "error", err)
	} else {
		events = publisher
		defer publisher.Close()
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Drain()
	}

	// Repos
	exposureRepo := postgres.NewExposureRepo(db)
	calcRepo := postgres.NewCalculationRepo(db)

	deps := &http.Dependencies{
		Exports:      usecases.NewExportService(exposureRepo, events, cfg.Export.MaxAreaSqDeg),
		Forms:        usecases.NewFormService(exposureRepo, formCache),
		Calculations: usecases.NewCalculationService(calcRepo, events),
		Auth:         http.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.CookieName),
		NATS:         natsConn,
		Broker:       publisher,
		DB:           db,
		Cache:        cache,
	}

	// Fiber. Exports stream for as long as the client reads, so there is
	// no write timeout unless one is configured.
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "OpenQuake Exposure API",
		ErrorHandler: http.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Disposition, Link, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", http.Version,
			"max_export_area", cfg.Export.MaxAreaSqDeg)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 30s to complete; exports may be long.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
