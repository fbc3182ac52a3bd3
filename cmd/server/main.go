package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okrish/wavelink/internal/api"
	"github.com/okrish/wavelink/internal/config"
	"github.com/okrish/wavelink/internal/db"
	"github.com/okrish/wavelink/internal/middleware"
	"github.com/okrish/wavelink/internal/observ"
	"github.com/okrish/wavelink/internal/repository/postgres"
	"github.com/okrish/wavelink/internal/service"
	"github.com/okrish/wavelink/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Startup has no deadline; once serving, every request carries its own.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(context.Background()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Repositories share the pool; it is goroutine-safe. Assignments go
	// through the interface types so a missing method fails to compile here.
	pool := database.Pool()
	channelRepo := postgres.NewChannelStore(pool)
	membershipRepo := postgres.NewMembershipStore(pool)
	messageRepo := postgres.NewMessageStore(pool)
	userRepo := postgres.NewUserStore(pool)

	// Realtime fan-out. The hub is the only owner of connection↔group
	// state; with Redis configured, broadcasts detour through pub/sub so
	// multiple instances share delivery.
	hub := ws.NewHub(logger)
	defer hub.Close()

	var broadcaster service.Broadcaster = hub
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		defer rdb.Close()

		bridge := ws.NewRedisBridge(rdb, hub, logger)
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("redis bridge stopped", zap.Error(err))
			}
		}()
		broadcaster = bridge
		logger.Info("redis broadcast bridge enabled")
	}

	channelSvc := service.NewChannelService(channelRepo, membershipRepo, userRepo, logger)
	messageSvc := service.NewMessageService(messageRepo, channelRepo, membershipRepo, userRepo, broadcaster, logger)

	authHandler := api.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.JWTTTL, logger)
	userHandler := api.NewUserHandler(userRepo, logger)
	channelHandler := api.NewChannelHandler(channelSvc, logger)
	messageHandler := api.NewMessageHandler(messageSvc, logger)
	wsHandler := ws.NewHandler(hub, channelSvc, messageSvc, cfg.JWTSecret, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Health is public so load balancers can probe it.
	router.GET("/api/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)

	// Websocket authenticates via ?token= at upgrade time, not the Bearer
	// middleware.
	router.GET("/ws", wsHandler.Serve)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	protected.GET("/users/me", userHandler.Me)

	protected.POST("/channels", channelHandler.Create)
	protected.GET("/channels", channelHandler.List)
	protected.GET("/channels/:id", channelHandler.GetByID)
	protected.PUT("/channels/:id", channelHandler.Update)
	protected.DELETE("/channels/:id", channelHandler.Delete)
	protected.PUT("/channels/:id/join", channelHandler.Join)
	protected.PUT("/channels/:id/leave", channelHandler.Leave)

	protected.POST("/messages", messageHandler.Create)
	protected.GET("/messages/channel/:channelId", messageHandler.ListByChannel)
	protected.DELETE("/messages/:id", messageHandler.Delete)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting wavelink",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
