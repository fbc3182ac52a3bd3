package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/okrish/wavelink/internal/auth"
	"go.uber.org/zap"
)

// Handler upgrades authenticated HTTP requests into hub connections.
type Handler struct {
	hub        *Hub
	authorizer Authorizer
	poster     Poster
	jwtSecret  string
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

func NewHandler(hub *Hub, authorizer Authorizer, poster Poster, jwtSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		hub:        hub,
		authorizer: authorizer,
		poster:     poster,
		jwtSecret:  jwtSecret,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients cannot set an Authorization header on a
			// websocket, so auth rides the token query parameter and
			// origin checking is left to the deployment's proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws?token=<jwt>. The token is validated before the
// upgrade; unauthenticated connections are refused with 401.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	claims, err := auth.ParseToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, claims.UserID, h.logger)
	h.logger.Info("websocket connected", zap.String("user_id", claims.UserID.String()))

	go client.writePump()
	// The read pump runs on the handler goroutine, keeping the request
	// context alive for the connection's lifetime.
	client.readPump(c.Request.Context(), h.authorizer, h.poster)

	h.logger.Info("websocket disconnected", zap.String("user_id", claims.UserID.String()))
}
