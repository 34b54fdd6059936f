package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"triviad/config"
	"triviad/handlers"
	"triviad/middleware"
	"triviad/models"
	"triviad/routes"
	"triviad/services"
	"triviad/store"
)

func main() {
	// Load .env if present; real env vars win
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	cfg := config.Load()

	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", cfg.Timezone, err)
	}

	// Postgres archive mirror is optional; db is nil when disabled
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if db != nil {
		if err := db.AutoMigrate(&models.GameArchive{}); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
	}

	redisClient := config.InitRedis(cfg)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		log.Fatal("Failed to connect to Redis:", err)
	}
	cancel()

	gameStore := store.NewGameStore(redisClient, cfg.HistoryTTL)
	locks := store.NewLockManager(redisClient)

	provider := services.NewFallbackProvider(
		services.NewOpenTDBProvider(),
		services.NewStaticProvider(),
	)
	judge := services.NewMatchJudge()

	hub := services.NewHub()
	go hub.Run()

	var sink services.DeliverySink
	if cfg.WebhookURL != "" {
		sink = services.NewMultiSink(services.NewWebhookSink(cfg.WebhookURL), hub)
	} else {
		sink = services.NewMultiSink(services.NewLogSink(), hub)
	}

	var archiver *services.Archiver
	if db != nil {
		archiver = services.NewArchiver(db)
	}
	poster := services.NewPoster(gameStore, locks, provider, sink, tz, cfg.GraceWindow)
	closer := services.NewCloser(gameStore, locks, judge, sink, archiver)
	stats := services.NewStatsService(gameStore)

	scheduler, err := services.StartScheduler(poster, closer, cfg.PosterInterval, cfg.CloserInterval)
	if err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}

	authHandler := handlers.NewAuthHandler(cfg.JWTSecret, cfg.AdminKeyHash)
	regHandler := handlers.NewRegistrationHandler(gameStore)
	gameHandler := handlers.NewGameHandler(gameStore, poster, stats)

	router := gin.Default()
	router.Use(middleware.CORS())
	routes.SetupRoutes(router, authHandler, regHandler, gameHandler, hub, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    cfg.BindAddress + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
