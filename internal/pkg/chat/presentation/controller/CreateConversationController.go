package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rentline/internal/pkg/chat/usecase"
)

// CreateConversationController handles the conversation bootstrap endpoint.
// One controller per endpoint.
type CreateConversationController struct {
	UC *usecase.CreateConversationUseCase
}

func NewCreateConversationController(uc *usecase.CreateConversationUseCase) *CreateConversationController {
	return &CreateConversationController{UC: uc}
}

type createConversationRequest struct {
	ListingID string `json:"listingId" binding:"required"`
	OwnerID   string `json:"ownerId" binding:"required"`
}

// Handle opens the thread between the authenticated caller (the inquirer) and
// the listing owner. Repeated calls return the existing thread.
func (h *CreateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := usecase.CreateConversationInput{
			ListingID:  req.ListingID,
			InquirerID: CallerID(c),
			OwnerID:    req.OwnerID,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		out, err := h.UC.Execute(ctx, in)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, usecase.ErrPersistence) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		status := http.StatusOK
		if out.Created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"conversation": out.Conversation, "created": out.Created})
	}
}
