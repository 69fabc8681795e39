package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/unseen-britain/internal/api"
	"github.com/isdelr/unseen-britain/internal/auth"
	"github.com/isdelr/unseen-britain/internal/config"
	"github.com/isdelr/unseen-britain/internal/database"
	"github.com/isdelr/unseen-britain/internal/events"
	"github.com/isdelr/unseen-britain/internal/logger"
	"github.com/isdelr/unseen-britain/internal/monitoring"
	"github.com/isdelr/unseen-britain/internal/services"
	"github.com/isdelr/unseen-britain/internal/upload"
	"github.com/isdelr/unseen-britain/internal/web"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	// Ensure the uploads directory exists
	uploader, err := upload.New(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("Failed to prepare upload directory")
	}

	// Set up database
	db, err := database.New(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db, cfg.DBDriver); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Optional event stream
	var publisher services.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaEventsTopic).Msg("Publishing events to Kafka")
	}

	// Set up services
	eventService := services.NewEventService(db, publisher)
	userService := services.NewUserService(db, eventService)
	placeService := services.NewPlaceService(db, eventService)

	var sessionStore services.SessionStore
	switch cfg.SessionStore {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		sessionStore = services.NewRedisSessionStore(rdb)
	default:
		sessionStore = services.NewSQLSessionStore(db)
	}
	sessions := auth.NewSessionManager(auth.DefaultSessionConfig(cfg.SessionSecret, cfg.IsProduction()), sessionStore)

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(sessionStore, cfg.SessionSweepCron)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up scheduler")
	}
	scheduler.Run()

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse templates")
	}

	// Set up router
	router := api.NewRouter(cfg, db, sessions, renderer, uploader, userService, placeService, eventService)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
