package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"daily-quest-service/config"
	"daily-quest-service/handlers"
	"daily-quest-service/middleware"
	"daily-quest-service/services"
	"daily-quest-service/store"
	"daily-quest-service/utils"
	"daily-quest-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to open store:", err)
	}
	defer st.Close()

	templates, err := services.ParseTaskTemplates(cfg.DailyTasks)
	if err != nil {
		log.Fatal("invalid DAILY_TASKS:", err)
	}

	seeder := services.NewDailyTaskSeeder(st, templates)
	leveling := services.NewLevelingService(st)
	svc := handlers.Services{
		Profiles: services.NewProfileService(st, seeder),
		Leveling: leveling,
		Tasks:    services.NewTaskService(st, leveling, cfg.AtomicCompletion),
		Seeder:   seeder,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := services.StartDailyTaskScheduler(seeder, cfg.DailyTasksCron)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	defer sched.Shutdown()

	if cfg.BackupsEnabled() {
		r2, err := utils.NewR2Client(ctx, utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		go workers.NewProfileBackupWorker(st, r2).Run(ctx, cfg.BackupInterval)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 64 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// EventSource cannot send the gateway header; it authenticates by query.
	handlers.SetupStreamRoutes(app, svc.Profiles, cfg.GameServiceToken)

	// 🔐❗ GLOBAL: Only Gateway requests allowed past this point
	app.Use(middleware.GatewayAuthMiddleware(cfg.GameServiceToken))
	handlers.Setup(app, svc)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Store driver: %s (max %d transaction attempts)", cfg.StoreDriver, cfg.TxMaxAttempts)
	if cfg.BackupsEnabled() {
		log.Printf("✅ Profile backups running (every %s)", cfg.BackupInterval)
	}
	log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func openStore(cfg config.Config) (store.Store, error) {
	opts := store.Options{
		MaxAttempts:  cfg.TxMaxAttempts,
		PollInterval: cfg.SubscribePollInterval,
	}
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Println("⚠️  Using in-memory store, data is lost on restart")
		return store.NewMemoryStore(cfg.TxMaxAttempts), nil
	case config.DriverPostgres:
		return store.OpenPostgres(cfg.DatabaseURL, opts)
	default:
		return store.OpenSQLite(cfg.SQLitePath, opts)
	}
}
