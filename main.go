package main

import (
	"context"
	logg "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voting-api/auth"
	"voting-api/cache"
	"voting-api/config"
	"voting-api/database"
	"voting-api/handlers"
	"voting-api/logger"
	"voting-api/mq"
	"voting-api/repository"
	"voting-api/routes"
	"voting-api/service"
	"voting-api/websocket"
)

// 应用版本，可通过构建参数注入
var version = "0.1.0"

const lockExpiry = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		logg.Fatalf("failed to load config: %s", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		logg.Fatalf("failed to initialize logger: %s", err)
	}
	defer func() { _ = log.Sync() }()
	gin.SetMode(cfg.GinMode)

	store, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	log.Info("store opened", zap.String("driver", cfg.Database.Driver))

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	polls := store.Polls()
	notifier := service.Notifier(hub)
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			// 缓存是可选的，Redis不可用时直接访问存储
			log.Warn("redis unavailable, poll cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			polls = repository.NewCachedPollRepository(polls,
				cache.NewPollCache(redisClient, cfg.Redis.CacheTTL),
				cache.NewLockService(redisClient, lockExpiry, log),
				log)
			log.Info("poll cache enabled", zap.String("addr", cfg.Redis.Addr))

			relay := mq.NewRedisRelay(redisClient, hub, log)
			go func() {
				if err := relay.Run(ctx); err != nil {
					log.Error("poll update relay stopped, updates stay local", zap.Error(err))
				}
			}()
			notifier = relay
		}
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	authService := service.NewAuthService(store.Users(), tokens, log)
	pollService := service.NewPollService(polls, store.Users(), notifier, log)

	router := routes.SetupRouter(routes.Dependencies{
		Auth:      handlers.NewAuthHandler(authService, log),
		Polls:     handlers.NewPollHandler(pollService, log),
		Health:    handlers.NewHealthHandler(store, version, log),
		Subscribe: websocket.NewHandler(hub, pollService, log).Subscribe,
		Tokens:    tokens,
		Logger:    log,
	})

	srv := routes.NewServer(cfg.Port, router, log)
	serveErr := srv.Start()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error("server failed", zap.Error(err))
		}
	}

	if err := srv.Stop(cfg.ShutdownTimeout); err != nil {
		log.Error("server forced to shut down", zap.Error(err))
	}
	stop()
	hub.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("failed to close redis", zap.Error(err))
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := store.Close(closeCtx); err != nil {
		log.Error("failed to close store", zap.Error(err))
	}
	log.Info("server graceful stopped")
}
