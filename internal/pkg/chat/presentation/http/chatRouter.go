package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentline/internal/infrastructure/auth"
	qport "rentline/internal/infrastructure/queue/port"
	"rentline/internal/infrastructure/realtime"
	"rentline/internal/pkg/chat/presentation/controller"
	repository "rentline/internal/pkg/chat/repository/port"
	"rentline/internal/pkg/chat/usecase"
)

// Deps bundles the shared collaborators the chat endpoints need.
type Deps struct {
	Repo     repository.ChatRepository
	Router   *realtime.Router
	Presence *realtime.Presence
	Verifier *auth.Verifier
	Queue    qport.Client // optional
	Log      *zap.Logger
}

// RegisterRoutes registers chat-related endpoints under the given router
// group. It constructs per-endpoint controllers and binds them directly to
// routes.
func RegisterRoutes(g *gin.RouterGroup, d Deps) {
	listConvs := usecase.NewListConversationsUseCase(d.Repo, nil)
	RegisterRoutesWithCache(g, d, listConvs)
}

// RegisterRoutesWithCache is RegisterRoutes with a caller-built conversation
// listing (typically carrying the redis cache).
func RegisterRoutesWithCache(g *gin.RouterGroup, d Deps, listConvs *usecase.ListConversationsUseCase) {
	createCtl := controller.NewCreateConversationController(usecase.NewCreateConversationUseCase(d.Repo, listConvs))
	getMsgCtl := controller.NewGetMessagesController(usecase.NewListMessagesUseCase(d.Repo))
	getEditsCtl := controller.NewGetMessageEditsController(usecase.NewListEditsUseCase(d.Repo))
	socketCtl := controller.NewChatSocketController(d.Repo, d.Router, d.Presence, d.Verifier, listConvs, d.Queue, d.Log)

	authed := g.Group("", requireAuth(d.Verifier))

	// POST /api/v1/conversations -> open (or find) a listing thread
	authed.POST("/conversations", createCtl.Handle())

	// GET /api/v1/conversations/:conversationId/messages -> paged history
	authed.GET("/conversations/:conversationId/messages", getMsgCtl.Handle())

	// GET /api/v1/messages/:messageId/edits -> prior bodies in version order
	authed.GET("/messages/:messageId/edits", getEditsCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint; does its own handshake auth
	g.GET("/chat/ws", socketCtl.Handle())
}

// requireAuth verifies the bearer credential and attaches the identity to the
// request. HTTP requests and the websocket handshake share the same tokens.
func requireAuth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.TokenFromRequest(c.Request)
		identity, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
			return
		}
		controller.SetCaller(c, identity)
		c.Next()
	}
}
