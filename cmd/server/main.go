package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	_ "maiblog/docs" // swagger docs

	"maiblog/internal/auth"
	"maiblog/internal/cache"
	"maiblog/internal/config"
	"maiblog/internal/content"
	"maiblog/internal/db"
	"maiblog/internal/events"
	"maiblog/internal/handler"
	"maiblog/internal/observability"
	"maiblog/internal/repository"
	"maiblog/internal/router"
	"maiblog/internal/service"
)

// @title Blog API
// @version 1.0
// @description Blog backend with tiered post visibility, memberships and bearer token authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer func() { _ = cacheClient.Close() }()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
	}

	store, err := content.Open(ctx, cfg.Content)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), logger)
		logger.Info("publishing events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() { _ = publisher.Close() }()

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	postRepo := repository.NewPostRepository(gormDB)

	// Auth components
	hasher := auth.NewHasher(cfg.Auth.SecretKey)
	codec := auth.NewTokenCodec(cfg.Auth.SecretKey, cfg.Auth.AccessTokenTTLMinutes)
	resolver := auth.NewResolver(codec, userRepo, logger)
	gate := auth.NewGate(nil)

	// Services
	authService := service.NewAuthService(userRepo, hasher, codec, publisher, logger)
	postService := service.NewPostService(postRepo, store, gate, cacheClient, logger)

	e := echo.New()
	e.HideBanner = true
	router.Register(
		e,
		cfg,
		logger,
		resolver,
		handler.NewAuthHandler(authService),
		handler.NewPostHandler(postService),
	)

	logger.Info("swagger documentation available", zap.String("url", swaggerURL(cfg.SwaggerHost, cfg.Server.Port)))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// swaggerURL accepts a host with or without scheme.
func swaggerURL(host, port string) string {
	if host == "" {
		host = "localhost:" + port
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/") + "/swagger/index.html"
}
