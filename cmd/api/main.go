package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/georgemunganga/printa-pos/internal/config"
	"github.com/georgemunganga/printa-pos/internal/database"
	"github.com/georgemunganga/printa-pos/internal/modules/auth"
	"github.com/georgemunganga/printa-pos/internal/modules/cart"
	"github.com/georgemunganga/printa-pos/internal/modules/catalog"
	"github.com/georgemunganga/printa-pos/internal/modules/inventory"
	"github.com/georgemunganga/printa-pos/internal/modules/localcache"
	"github.com/georgemunganga/printa-pos/internal/modules/pos"
	"github.com/georgemunganga/printa-pos/internal/modules/settings"
	"github.com/georgemunganga/printa-pos/internal/modules/user"
)

func main() {
	app := &cli.App{
		Name:  "printa-pos",
		Usage: "point of sale API: carts, checkout and store settings",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run migrations and start the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "manage the database schema (up when no subcommand is given)",
				Action: migrateUp,
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply pending migrations", Action: migrateUp},
					{Name: "down", Usage: "revert every migration", Action: migrateDown},
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("printa-pos failed")
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Info("database ready")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "ping redis")
	}
	cache := localcache.NewRedisCache(rdb, cfg.CacheTTL)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: logger, NoColor: true}))
	router.Use(middleware.Recoverer)

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	userHandler := user.NewHandler(user.NewService(userRepo, cache, logger), auth.UserID)
	userHandler.RegisterPublicRoutes(router)

	authService := auth.NewService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Stores, catalog & settings ──────────────────────────
	inventoryService := inventory.NewService(
		inventory.NewStorePostgresRepository(db),
		inventory.NewProductPostgresRepository(db),
		logger,
	)
	catalogService := catalog.NewService(catalog.NewPostgresRepository(db))

	settingsProvider := settings.NewProvider(settings.NewPostgresRepository(db), cache, settings.StoreSettings{
		Currency: cfg.DefaultCurrency,
		TaxRate:  cfg.DefaultTaxRate,
		Timezone: "UTC",
	}, logger)

	// ── Counter: cart & checkout ────────────────────────────
	cartService := cart.NewService(inventoryService, settingsProvider, cache, logger)
	posService := pos.NewService(pos.NewPostgresRepository(db), cartService, settingsProvider, cfg.DefaultLocale, logger)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))
		userHandler.RegisterRoutes(r)
		inventory.NewHandler(inventoryService, auth.UserID).RegisterRoutes(r)

		// every /api/v1/stores/{store_id}/... route is limited to the store's owner
		r.Group(func(r chi.Router) {
			r.Use(inventory.RequireStoreOwner(inventoryService, auth.UserID))
			catalog.NewHandler(catalogService).RegisterRoutes(r)
			settings.NewHandler(settingsProvider).RegisterRoutes(r)
			cart.NewHandler(cartService, settingsProvider, cfg.DefaultLocale).RegisterRoutes(r)
			pos.NewHandler(posService).RegisterRoutes(r)
		})
	})

	// ── Start Server ────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.AppPort).Info("printa-pos API listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
}

func migrateUp(c *cli.Context) error {
	return withDatabase(c, database.Migrate)
}

func migrateDown(c *cli.Context) error {
	return withDatabase(c, database.Rollback)
}

func withDatabase(c *cli.Context, run func(*sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Open(c.Context, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := run(db); err != nil {
		return err
	}
	log.WithField("command", c.Command.Name).Info("migrations done")
	return nil
}
