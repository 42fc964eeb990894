package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	v1 "rentline/cmd/api/router/v1"
	"rentline/internal/infrastructure/auth"
	cacheadapter "rentline/internal/infrastructure/cache/adapter"
	cacheport "rentline/internal/infrastructure/cache/port"
	"rentline/internal/infrastructure/config"
	"rentline/internal/infrastructure/database"
	queueadapter "rentline/internal/infrastructure/queue/adapter"
	qport "rentline/internal/infrastructure/queue/port"
	"rentline/internal/infrastructure/realtime"
	httpHandler "rentline/internal/pkg/chat/presentation/http"
	repoAdapter "rentline/internal/pkg/chat/repository/adapter"
	"rentline/internal/pkg/chat/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer pool.Close()

	// Redis is optional: without it the conversation-id cache and the offline
	// notification queue are disabled and everything falls back to the store.
	var cache cacheport.Cache
	var queue qport.Client
	if cfg.RedisURL != "" {
		if cache, err = cacheadapter.NewRedisCache(cfg.RedisURL); err != nil {
			logger.Warn("redis cache unavailable", zap.Error(err))
			cache = nil
		} else {
			defer func() { _ = cache.Close() }()
		}
		if queue, err = queueadapter.NewAsynqClient(cfg.RedisURL); err != nil {
			logger.Warn("task queue unavailable", zap.Error(err))
			queue = nil
		} else {
			defer func() { _ = queue.Close() }()
		}
	}

	repo := repoAdapter.NewPgChatRepository(pool)
	router := realtime.NewRouter()
	presence := realtime.NewPresence()
	verifier := auth.NewVerifier(cfg.TokenSecret)
	listConvs := usecase.NewListConversationsUseCase(repo, cache)

	r := gin.Default()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	v1.RegisterRoutes(r, httpHandler.Deps{
		Repo:     repo,
		Router:   router,
		Presence: presence,
		Verifier: verifier,
		Queue:    queue,
		Log:      logger,
	}, listConvs)

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	router.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
