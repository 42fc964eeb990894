package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rentline/internal/infrastructure/auth"
	chat "rentline/internal/pkg/chat/domain"
	"rentline/internal/pkg/chat/usecase"
)

// identityKey is where the auth middleware stores the verified identity.
const identityKey = "rentline.identity"

// SetCaller attaches the verified identity to the request context.
func SetCaller(c *gin.Context, id auth.Identity) {
	c.Set(identityKey, id)
}

// CallerID returns the authenticated user id for the request, empty when the
// middleware did not run.
func CallerID(c *gin.Context) string {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id.UserID
		}
	}
	return ""
}

// GetMessagesController serves paged message history for a conversation.
type GetMessagesController struct {
	UC *usecase.ListMessagesUseCase
}

func NewGetMessagesController(uc *usecase.ListMessagesUseCase) *GetMessagesController {
	return &GetMessagesController{UC: uc}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		limit := 50
		offset := 0
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		if v := c.Query("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		in := usecase.ListMessagesInput{
			ConversationID: conversationID,
			ReaderID:       CallerID(c),
			Limit:          limit,
			Offset:         offset,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		msgs, err := h.UC.Execute(ctx, in)
		if err != nil {
			switch {
			case errors.Is(err, chat.ErrNoAccess):
				c.JSON(http.StatusForbidden, gin.H{"error": "No access to conversation"})
			case errors.Is(err, usecase.ErrPersistence):
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"messages": msgs,
			"limit":    limit,
			"offset":   offset,
			"count":    len(msgs),
		})
	}
}
