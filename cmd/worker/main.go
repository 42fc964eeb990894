package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rentline/internal/infrastructure/config"
	"rentline/internal/infrastructure/database"
	queueadapter "rentline/internal/infrastructure/queue/adapter"
	chat "rentline/internal/pkg/chat/domain"
	repoAdapter "rentline/internal/pkg/chat/repository/adapter"
	"rentline/internal/pkg/chat/task"
)

// logNotifier stands in for a real push/email channel: it records the
// notification so delivery integrations can be swapped in behind task.Notifier.
type logNotifier struct {
	log *zap.Logger
}

func (n *logNotifier) NotifyNewMessage(ctx context.Context, recipientID string, msg chat.Message) error {
	n.log.Info("new message notification",
		zap.String("recipient_id", recipientID),
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", msg.ConversationID))
	return nil
}

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

	srv, err := queueadapter.NewAsynqServer(cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal("queue server init failed", zap.Error(err))
	}

	repo := repoAdapter.NewPgChatRepository(pool)
	task.RegisterNotifyOfflineTask(srv, repo, &logNotifier{log: logger}, logger)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker running")
	if err := srv.Run(rootCtx); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker shut down")
}
