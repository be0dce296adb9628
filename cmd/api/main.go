package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"redcode-api/internal/cache"
	"redcode-api/internal/config"
	"redcode-api/internal/events"
	"redcode-api/internal/handler"
	"redcode-api/internal/middleware"
	"redcode-api/internal/repository"
	"redcode-api/internal/router"
	"redcode-api/internal/script"
	"redcode-api/internal/service"
	"redcode-api/internal/thumbnail"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting RedCode API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.Store.Type, err)
	}
	defer store.Close()
	log.Printf("Record store initialized: %s", cfg.Store.Type)

	appCache := openCache(cfg)
	defer appCache.Close()

	publisher := openPublisher(cfg)
	defer publisher.Close()

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	scriptSource, err := openScriptSource(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize script source: %v", err)
	}

	// Initialize services
	thumbnails := thumbnail.NewClient(thumbnail.Config{
		BaseURL:  cfg.Thumbnail.BaseURL,
		Secret:   cfg.ThumbnailSecret(),
		Role:     cfg.Thumbnail.Role,
		Timeout:  cfg.Thumbnail.Timeout,
		CacheTTL: cfg.Thumbnail.CacheTTL,
	}, appCache)

	var resolver service.ImageResolver
	if cfg.Tracker.ResolveIcons {
		resolver = thumbnails
	}
	normalizer := service.NewNormalizer(resolver, cfg.Tracker.LookupConcurrency)
	reconciler := service.NewReconciler(store, normalizer, publisher)

	sweeper := service.NewLivenessSweeper(store, publisher, service.SweeperConfig{
		Interval: cfg.Tracker.SweepInterval,
		Timeout:  cfg.Tracker.BotTimeout,
	})
	sweeper.Start()

	userService := service.NewUserService(store, service.UserConfig{
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		SessionTTL:     cfg.Auth.SessionTTL,
		RoleTokenTTL:   cfg.Auth.RoleTokenTTL,
		RoleTokenClaim: cfg.Thumbnail.Role,
	})
	botService := service.NewBotService(store)

	// Initialize handlers
	healthHandler := handler.New(handler.ReadinessCheck{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := store.Stats(ctx)
			return err
		},
	})

	r := router.New(router.Config{
		Handler:          healthHandler,
		AuthHandler:      handler.NewAuthHandler(userService),
		BotHandler:       handler.NewBotHandler(botService),
		GameDataHandler:  handler.NewGameDataHandler(reconciler),
		ThumbnailHandler: handler.NewThumbnailHandler(thumbnails),
		ScriptHandler:    handler.NewScriptHandler(scriptSource),
		AdminHandler:     handler.NewAdminHandler(botService, appCache, sweeper, cfg.Store.Type),
		RequireUser:      middleware.RequireUser(userService.ParseSession),
		RequireLoginKey:  middleware.RequireLoginKey(cfg.App.LoginKey),
		IngestLimit:      middleware.RateLimit(cfg.Tracker.IngestRate, cfg.Tracker.IngestBurst),
		StaticDir:        cfg.Server.StaticDir,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Stop the sweeper after the last request so no report races a demotion
	sweeper.Stop()

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store.Type {
	case config.StoreJSON:
		return repository.NewJSONFileStore(cfg.Store.JSONPath)
	case config.StoreMySQL:
		return repository.NewMySQLStore(ctx, cfg.Store.MySQLDSN())
	case config.StorePostgres:
		return repository.NewPostgresStore(ctx, cfg.Store.PostgresDSN())
	case config.StoreMongoDB:
		return repository.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
	default: // sqlite
		return repository.NewSQLiteStore(ctx, cfg.Store.Path)
	}
}

// openCache falls back to the in-process cache when Redis is unreachable.
func openCache(cfg *config.Config) cache.Cache {
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		})
		if err == nil {
			return redisCache
		}
		log.Printf("Warning: Redis connection failed, using memory cache: %v", err)
	}
	return cache.NewMemoryCache()
}

// openPublisher falls back to logging events when the broker is unreachable.
func openPublisher(cfg *config.Config) events.Publisher {
	switch cfg.Events.Type {
	case "none":
		return events.NopPublisher{}
	case "mqtt":
		publisher, err := events.NewMQTTPublisher(events.MQTTConfig{
			Broker:      cfg.Events.MQTTBroker,
			ClientID:    cfg.Events.MQTTClientID,
			Username:    cfg.Events.MQTTUsername,
			Password:    cfg.Events.MQTTPassword,
			TopicPrefix: cfg.Events.MQTTTopic,
			QoS:         byte(cfg.Events.MQTTQoS),
			Timeout:     cfg.Events.MQTTTimeout,
		})
		if err == nil {
			return publisher
		}
		log.Printf("Warning: MQTT connection failed, logging events instead: %v", err)
	}
	return events.LogPublisher{}
}

func openScriptSource(ctx context.Context, cfg *config.Config) (script.Source, error) {
	if cfg.Script.Source == "s3" {
		return script.NewS3Source(ctx, script.S3Config{
			Region:       cfg.Script.S3Region,
			BaseEndpoint: cfg.Script.S3BaseEndpoint,
			AccessKey:    cfg.Script.S3AccessKey,
			SecretKey:    cfg.Script.S3SecretKey,
			Bucket:       cfg.Script.S3Bucket,
			Key:          cfg.Script.S3Key,
		})
	}
	return script.NewFileSource(cfg.Script.Path), nil
}
