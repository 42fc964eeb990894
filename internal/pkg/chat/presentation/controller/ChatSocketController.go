package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rentline/internal/infrastructure/auth"
	qport "rentline/internal/infrastructure/queue/port"
	"rentline/internal/infrastructure/realtime"
	chat "rentline/internal/pkg/chat/domain"
	repository "rentline/internal/pkg/chat/repository/port"
	"rentline/internal/pkg/chat/task"
	"rentline/internal/pkg/chat/usecase"
)

// ChatSocketController owns the websocket endpoint: it authenticates the
// handshake, walks every connection through its lifecycle, and dispatches
// inbound events to the chat use cases.
type ChatSocketController struct {
	router   *realtime.Router
	presence *realtime.Presence
	verifier *auth.Verifier
	queue    qport.Client // optional; nil disables offline notifications
	log      *zap.Logger

	joinUC      *usecase.JoinConversationUseCase
	sendUC      *usecase.SendMessageUseCase
	editUC      *usecase.EditMessageUseCase
	deleteUC    *usecase.DeleteMessageUseCase
	markReadUC  *usecase.MarkReadUseCase
	listConvsUC *usecase.ListConversationsUseCase

	inflightTimeout time.Duration
}

func NewChatSocketController(
	repo repository.ChatRepository,
	router *realtime.Router,
	presence *realtime.Presence,
	verifier *auth.Verifier,
	listConvs *usecase.ListConversationsUseCase,
	queue qport.Client,
	log *zap.Logger,
) *ChatSocketController {
	return &ChatSocketController{
		router:          router,
		presence:        presence,
		verifier:        verifier,
		queue:           queue,
		log:             log,
		joinUC:          usecase.NewJoinConversationUseCase(repo),
		sendUC:          usecase.NewSendMessageUseCase(repo),
		editUC:          usecase.NewEditMessageUseCase(repo),
		deleteUC:        usecase.NewDeleteMessageUseCase(repo),
		markReadUC:      usecase.NewMarkReadUseCase(repo),
		listConvsUC:     listConvs,
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The bearer token is the gate; origins are not restricted.
		return true
	},
}

// Wire protocol: inbound frames name an event and may carry an ack id; when
// present, the caller gets exactly one ack frame for it. Outbound events use
// the same envelope without an ack id.
type inboundFrame struct {
	Event string          `json:"event"`
	AckID string          `json:"ackId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type ackFrame struct {
	Event   string `json:"event"`
	AckID   string `json:"ackId"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Inbound event payloads.
type conversationRef struct {
	ConversationID string `json:"conversationId"`
}

type messageSendPayload struct {
	ConversationID string `json:"conversationId"`
	Body           string `json:"body"`
}

type messageEditPayload struct {
	MessageID string `json:"messageId"`
	Body      string `json:"body"`
}

type messageRef struct {
	MessageID string `json:"messageId"`
}

type presenceBatchPayload struct {
	UserIDs []string `json:"userIds"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades the HTTP connection and runs the per-connection state
// machine: authenticate, ready, event loop, disconnect cleanup.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Reject before any room logic when no credential is presented.
		token := auth.TokenFromRequest(c.Request)
		if auth.StripBearer(token) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credential"})
			return
		}

		identity, err := ctl.verifier.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; nothing else to do.
			return
		}

		conn := realtime.NewConnection(identity, ws)
		ctl.router.Attach(conn)
		conn.Start()

		// Disconnect cleanup must run exactly once, however the connection
		// ends: normal close, transport error, or duplicate close signals.
		var cleanup sync.Once
		disconnect := func() {
			cleanup.Do(func() {
				if ctl.presence.RemoveConnection(conn.UserID(), conn.ID) {
					ctl.broadcastPresence(conn.UserID(), false)
				}
				ctl.router.Detach(conn)
				conn.Close(websocket.CloseNormalClosure, "session closed")
			})
		}
		defer disconnect()

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		// Entering READY: resync conversation rooms in the background, flip
		// presence, and acknowledge the client. A failed resync leaves the
		// connection usable, just not yet joined to all rooms.
		go ctl.resyncRooms(conn)
		if ctl.presence.AddConnection(conn.UserID(), conn.ID) {
			go ctl.broadcastPresence(conn.UserID(), true)
		}
		ctl.sendEvent(conn, "chat:ready", gin.H{"userId": conn.UserID()})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				// No ack id is recoverable from a malformed frame.
				continue
			}
			ctl.dispatch(c.Request.Context(), conn, frame)
		}
	}
}

func (ctl *ChatSocketController) dispatch(ctx context.Context, conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	switch frame.Event {
	case "presence:batch":
		ctl.handlePresenceBatch(conn, frame)
	case "conversation:join":
		ctl.handleJoin(ctx, conn, frame)
	case "conversation:leave":
		ctl.handleLeave(conn, frame)
	case "message:send":
		ctl.handleSend(ctx, conn, frame)
	case "message:edit":
		ctl.handleEdit(ctx, conn, frame)
	case "message:delete":
		ctl.handleDelete(ctx, conn, frame)
	case "conversation:read":
		ctl.handleMarkRead(ctx, conn, frame)
	default:
		ctl.nack(conn, frame.AckID, "Unknown event", frame.Event)
	}
}

func (ctl *ChatSocketController) handlePresenceBatch(conn *realtime.Connection, frame inboundFrame) {
	var p presenceBatchPayload
	if err := json.Unmarshal(frame.Data, &p); err != nil {
		ctl.nack(conn, frame.AckID, "Validation failed", "malformed payload")
		return
	}

	items, err := ctl.presence.BatchQuery(p.UserIDs)
	if err != nil {
		ctl.nack(conn, frame.AckID, "Validation failed", err.Error())
		return
	}
	ctl.ack(conn, frame.AckID, gin.H{"items": items})
}

func (ctl *ChatSocketController) handleJoin(ctx context.Context, conn *realtime.Connection, frame inboundFrame) {
	var p conversationRef
	if err := json.Unmarshal(frame.Data, &p); err != nil || p.ConversationID == "" {
		ctl.nack(conn, frame.AckID, "Validation failed", "conversationId is required")
		return
	}

	err := ctl.joinUC.Execute(ctx, usecase.JoinConversationInput{
		ConversationID: p.ConversationID,
		UserID:         conn.UserID(),
	})
	if err != nil {
		ctl.replyError(conn, frame.AckID, err)
		return
	}

	ctl.router.Join(p.ConversationID, conn)
	ctl.ack(conn, frame.AckID, gin.H{"conversationId": p.ConversationID})
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, frame inboundFrame) {
	var p conversationRef
	if err := json.Unmarshal(frame.Data, &p); err != nil || p.ConversationID == "" {
		ctl.nack(conn, frame.AckID, "Validation failed", "conversationId is required")
		return
	}

	// Leaving is always permitted; no guard.
	ctl.router.Leave(p.ConversationID, conn)
	ctl.ack(conn, frame.AckID, gin.H{"conversationId": p.ConversationID})
}

func (ctl *ChatSocketController) handleSend(ctx context.Context, conn *realtime.Connection, frame inboundFrame) {
	var p messageSendPayload
	if err := json.Unmarshal(frame.Data, &p); err != nil || p.ConversationID == "" {
		ctl.nack(conn, frame.AckID, "Validation failed", "conversationId and body are required")
		return
	}

	msg, err := ctl.sendUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: p.ConversationID,
		SenderID:       conn.UserID(),
		Body:           p.Body,
	})
	if err != nil {
		ctl.replyError(conn, frame.AckID, err)
		return
	}

	ctl.broadcastEvent(msg.ConversationID, "message:new", gin.H{"message": msg})
	ctl.ack(conn, frame.AckID, gin.H{"message": msg})

	ctl.notifyOutsideRoom(ctx, msg)
}

func (ctl *ChatSocketController) handleEdit(ctx context.Context, conn *realtime.Connection, frame inboundFrame) {
	var p messageEditPayload
	if err := json.Unmarshal(frame.Data, &p); err != nil || p.MessageID == "" {
		ctl.nack(conn, frame.AckID, "Validation failed", "messageId and body are required")
		return
	}

	msg, err := ctl.editUC.Execute(ctx, usecase.EditMessageInput{
		MessageID: p.MessageID,
		EditorID:  conn.UserID(),
		Body:      p.Body,
	})
	if err != nil {
		ctl.replyError(conn, frame.AckID, err)
		return
	}

	ctl.broadcastEvent(msg.ConversationID, "message:updated", gin.H{"message": msg})
	ctl.ack(conn, frame.AckID, gin.H{"message": msg})
}

func (ctl *ChatSocketController) handleDelete(ctx context.Context, conn *realtime.Connection, frame inboundFrame) {
	var p messageRef
	if err := json.Unmarshal(frame.Data, &p); err != nil || p.MessageID == "" {
		ctl.nack(conn, frame.AckID, "Validation failed", "messageId is required")
		return
	}

	out, err := ctl.deleteUC.Execute(ctx, usecase.DeleteMessageInput{
		MessageID: p.MessageID,
		DeleterID: conn.UserID(),
	})
	if err != nil {
		ctl.replyError(conn, frame.AckID, err)
		return
	}

	if out.AlreadyDeleted {
		// Idempotent repeat: acknowledge without a second deletion event.
		ctl.ack(conn, frame.AckID, gin.H{"messageId": p.MessageID, "alreadyDeleted": true})
		return
	}

	msg := out.Message
	// The deleted body is never re-broadcast; the room gets ids only.
	ctl.broadcastEvent(msg.ConversationID, "message:deleted", gin.H{
		"messageId":       msg.ID,
		"conversationId":  msg.ConversationID,
		"deletedAt":       msg.DeletedAt,
		"deletedByUserId": conn.UserID(),
	})
	ctl.ack(conn, frame.AckID, gin.H{"message": msg})
}

func (ctl *ChatSocketController) handleMarkRead(ctx context.Context, conn *realtime.Connection, frame inboundFrame) {
	var p conversationRef
	if err := json.Unmarshal(frame.Data, &p); err != nil || p.ConversationID == "" {
		ctl.nack(conn, frame.AckID, "Validation failed", "conversationId is required")
		return
	}

	readAt, err := ctl.markReadUC.Execute(ctx, usecase.MarkReadInput{
		ConversationID: p.ConversationID,
		ReaderID:       conn.UserID(),
	})
	if err != nil {
		ctl.replyError(conn, frame.AckID, err)
		return
	}

	// Read receipts go to the whole room; read state is not private.
	ctl.broadcastEvent(p.ConversationID, "conversation:read", gin.H{
		"conversationId": p.ConversationID,
		"userId":         conn.UserID(),
		"readAt":         readAt,
	})
	ctl.ack(conn, frame.AckID, gin.H{"conversationId": p.ConversationID, "readAt": readAt})
}

// resyncRooms joins the connection to every conversation the user currently
// participates in. It runs on each new connection as a full resync, which is
// what makes reconnects and multiple devices correct without bookkeeping.
func (ctl *ChatSocketController) resyncRooms(conn *realtime.Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), ctl.inflightTimeout)
	defer cancel()

	ids, err := ctl.listConvsUC.Execute(ctx, conn.UserID())
	if err != nil {
		ctl.log.Warn("room resync failed",
			zap.String("user_id", conn.UserID()), zap.Error(err))
		return
	}
	for _, id := range ids {
		ctl.router.Join(id, conn)
	}
}

// broadcastPresence announces an online/offline transition to every
// conversation the user belongs to. Failures are logged and swallowed; they
// must not disturb the connection lifecycle.
func (ctl *ChatSocketController) broadcastPresence(userID string, isOnline bool) {
	ctx, cancel := context.WithTimeout(context.Background(), ctl.inflightTimeout)
	defer cancel()

	ids, err := ctl.listConvsUC.Execute(ctx, userID)
	if err != nil {
		ctl.log.Warn("presence fan-out failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}

	payload, err := json.Marshal(outboundFrame{Event: "presence:update", Data: gin.H{
		"userId":    userID,
		"isOnline":  isOnline,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return
	}
	for _, id := range ids {
		ctl.router.Broadcast(id, payload, "")
	}
}

// notifyOutsideRoom reaches the participants the room broadcast missed. Online
// users who left the room get a conversation:activity nudge on their personal
// channel; users with no live connection at all are handed to the background
// notification queue. Best effort either way: failures never fail the send.
func (ctl *ChatSocketController) notifyOutsideRoom(ctx context.Context, msg *chat.Message) {
	recipients, err := ctl.listConvsUC.Repo.ListParticipantIDs(ctx, msg.ConversationID)
	if err != nil {
		ctl.log.Warn("listing recipients for notification failed", zap.Error(err))
		return
	}

	var offline []string
	for _, id := range recipients {
		if id == msg.SenderID {
			continue
		}
		if !ctl.presence.IsOnline(id) {
			offline = append(offline, id)
			continue
		}
		if !ctl.router.UserInRoom(msg.ConversationID, id) {
			ctl.notifyUserEvent(id, "conversation:activity", gin.H{
				"conversationId": msg.ConversationID,
				"messageId":      msg.ID,
				"senderId":       msg.SenderID,
			})
		}
	}

	if ctl.queue == nil || len(offline) == 0 {
		return
	}
	payload, err := json.Marshal(task.NotifyOfflinePayload{
		MessageID:    msg.ID,
		RecipientIDs: offline,
	})
	if err != nil {
		return
	}
	_, err = ctl.queue.Enqueue(ctx, qport.Task{Type: task.NotifyOfflineTaskType, Payload: payload},
		qport.EnqueueOption{Queue: "notify", MaxRetry: 10})
	if err != nil {
		ctl.log.Warn("enqueue offline notification failed", zap.Error(err))
	}
}

func (ctl *ChatSocketController) notifyUserEvent(userID, event string, data any) {
	if payload, err := json.Marshal(outboundFrame{Event: event, Data: data}); err == nil {
		ctl.router.NotifyUser(userID, payload)
	}
}

func (ctl *ChatSocketController) sendEvent(conn *realtime.Connection, event string, data any) {
	if payload, err := json.Marshal(outboundFrame{Event: event, Data: data}); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) broadcastEvent(conversationID, event string, data any) {
	payload, err := json.Marshal(outboundFrame{Event: event, Data: data})
	if err != nil {
		return
	}
	ctl.router.Broadcast(conversationID, payload, "")
}

func (ctl *ChatSocketController) ack(conn *realtime.Connection, ackID string, data any) {
	if ackID == "" {
		return
	}
	if payload, err := json.Marshal(ackFrame{Event: "ack", AckID: ackID, OK: true, Data: data}); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) nack(conn *realtime.Connection, ackID, message string, details any) {
	if ackID == "" {
		return
	}
	if payload, err := json.Marshal(ackFrame{Event: "ack", AckID: ackID, OK: false, Error: message, Details: details}); err == nil {
		_ = conn.Send(payload)
	}
}

// replyError maps a use case failure onto the wire taxonomy. Expected
// user-facing outcomes pass through with their own message; infrastructure
// failures are reported generically and logged server-side.
func (ctl *ChatSocketController) replyError(conn *realtime.Connection, ackID string, err error) {
	switch {
	case errors.Is(err, chat.ErrNoAccess):
		ctl.nack(conn, ackID, "No access to conversation", nil)
	case errors.Is(err, chat.ErrMessageNotFound):
		ctl.nack(conn, ackID, "Message not found", nil)
	case errors.Is(err, chat.ErrConversationNotFound):
		ctl.nack(conn, ackID, "Conversation not found", nil)
	case errors.Is(err, chat.ErrMessageDeleted):
		ctl.nack(conn, ackID, "Message is deleted", nil)
	case errors.Is(err, chat.ErrNotMessageSender):
		ctl.nack(conn, ackID, "Cannot modify another user's message", nil)
	case errors.Is(err, chat.ErrEditConflict):
		ctl.nack(conn, ackID, "Concurrent edit conflict", gin.H{"retryable": true})
	case errors.Is(err, chat.ErrInvalidBody):
		ctl.nack(conn, ackID, "Validation failed", err.Error())
	case errors.Is(err, usecase.ErrPersistence):
		ctl.log.Error("persistence failure", zap.Error(err))
		ctl.nack(conn, ackID, "Internal error", nil)
	default:
		ctl.nack(conn, ackID, err.Error(), nil)
	}
}
