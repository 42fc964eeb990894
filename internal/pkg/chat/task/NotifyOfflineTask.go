package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	qport "rentline/internal/infrastructure/queue/port"
	chat "rentline/internal/pkg/chat/domain"
	repository "rentline/internal/pkg/chat/repository/port"
)

// NotifyOfflineTaskType is the queue task name for notifying participants who
// had no live connection when a message arrived.
const NotifyOfflineTaskType = "chat:notify_offline"

// NotifyOfflinePayload is the JSON payload transported via the queue. Kept
// decoupled from domain types to avoid coupling queue payloads to db tags.
type NotifyOfflinePayload struct {
	MessageID    string   `json:"messageId"`
	RecipientIDs []string `json:"recipientIds"`
}

// Notifier is the delivery collaborator (email, push). It lives outside this
// core; the worker binary supplies an implementation.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, recipientID string, msg chat.Message) error
}

// RegisterNotifyOfflineTask binds the handler to the queue server. The message
// is re-read at processing time: a message deleted between enqueue and
// delivery is silently dropped.
func RegisterNotifyOfflineTask(srv qport.Server, repo repository.ChatRepository, notifier Notifier, log *zap.Logger) {
	srv.Register(NotifyOfflineTaskType, func(ctx context.Context, t qport.Task) error {
		var p NotifyOfflinePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// Malformed payloads never become deliverable; do not retry.
			log.Warn("dropping malformed notification payload", zap.Error(err))
			return nil
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		msg, err := repo.GetMessage(ctx, p.MessageID)
		if err != nil {
			if errors.Is(err, chat.ErrMessageNotFound) {
				return nil
			}
			return err
		}
		if msg.IsDeleted() {
			return nil
		}

		for _, recipient := range p.RecipientIDs {
			if err := notifier.NotifyNewMessage(ctx, recipient, *msg); err != nil {
				// Returning the error retries the whole task; the notifier
				// must be idempotent per (recipient, message).
				return err
			}
		}
		return nil
	})
}
