package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chat "rentline/internal/pkg/chat/domain"
	"rentline/internal/pkg/chat/usecase"
)

// GetMessageEditsController serves the edit audit trail of a message.
type GetMessageEditsController struct {
	UC *usecase.ListEditsUseCase
}

func NewGetMessageEditsController(uc *usecase.ListEditsUseCase) *GetMessageEditsController {
	return &GetMessageEditsController{UC: uc}
}

func (h *GetMessageEditsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID := c.Param("messageId")
		if messageID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messageId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		edits, err := h.UC.Execute(ctx, usecase.ListEditsInput{
			MessageID: messageID,
			ReaderID:  CallerID(c),
		})
		if err != nil {
			switch {
			case errors.Is(err, chat.ErrMessageNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			case errors.Is(err, chat.ErrNoAccess):
				c.JSON(http.StatusForbidden, gin.H{"error": "No access to conversation"})
			case errors.Is(err, usecase.ErrPersistence):
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"edits": edits, "count": len(edits)})
	}
}
