package v1

import (
	"github.com/gin-gonic/gin"

	httpHandler "rentline/internal/pkg/chat/presentation/http"
	"rentline/internal/pkg/chat/usecase"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1.
func RegisterRoutes(r *gin.Engine, d httpHandler.Deps, listConvs *usecase.ListConversationsUseCase) {
	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutesWithCache(v1, d, listConvs)
}
