package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "github.com/JuacoStudios/formai-backend/configs"
	"github.com/JuacoStudios/formai-backend/internal/api/handlers"
	"github.com/JuacoStudios/formai-backend/internal/api/middleware"
	job "github.com/JuacoStudios/formai-backend/internal/jobs"
	"github.com/JuacoStudios/formai-backend/internal/repository"
	"github.com/JuacoStudios/formai-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	runMigrations(cfg)

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    15 * 1024 * 1024, // 15 MB, image uploads
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, X-Device-Id",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	deviceRepo := repository.NewDeviceRepository(db)
	usageRepo := repository.NewUsageCounterRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	deviceMapRepo := repository.NewDeviceMapRepository(db)

	var subscriptionRepo repository.SubscriptionRepository = repository.NewSubscriptionRepository(db)
	if cfg.RedisURI != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		defer rdb.Close()
		subscriptionRepo = repository.NewCachedSubscriptionRepository(subscriptionRepo, rdb)
	}

	entitlementService := service.NewEntitlementService(deviceRepo, subscriptionRepo, usageRepo)
	webhookService := service.NewWebhookService(webhookEventRepo, subscriptionRepo, deviceMapRepo, deviceRepo)
	checkoutService := service.NewCheckoutService(*cfg, subscriptionRepo)
	r2Service := service.NewR2Service(*cfg)
	scanService := service.NewScanService(*cfg, r2Service)

	deviceMiddleware := middleware.NewDeviceMiddleware(*cfg)

	health := handlers.NewHealthHandler(db)
	app.Get("/health", health.Health)

	webhooks := handlers.NewWebhookHandler(*cfg, webhookService)
	app.Post("/webhook/stripe", webhooks.StripeWebhook)
	app.Post("/webhook/lemonsqueezy", webhooks.LemonSqueezyWebhook)

	api := app.Group("/api")
	api.Use(deviceMiddleware.DeviceMiddleware())

	entitlement := handlers.NewEntitlementHandler(entitlementService)
	api.Get("/entitlement", entitlement.GetEntitlement)

	scan := handlers.NewScanHandler(entitlementService, scanService)
	api.Post("/analyze", scan.Analyze)

	checkout := handlers.NewCheckoutHandler(checkoutService)
	api.Post("/checkout", checkout.StripeCheckout)
	api.Post("/portal", checkout.StripePortal)
	api.Post("/lemonsqueezy/checkout", checkout.LemonSqueezyCheckout)

	// cron jobs
	ledgerPruneJob := job.NewLedgerPruneJob(webhookEventRepo)

	c := cron.New()
	c.AddFunc("@daily", ledgerPruneJob.Prune)
	c.Start()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, db)
}

func runMigrations(cfg *config.Config) {
	m, err := migrate.New("file://"+cfg.MigrationsDir, cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Failed to run migrations: %v", err)
	}
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
