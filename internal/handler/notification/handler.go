package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/osirix/clinique-api/internal/middleware"
	"github.com/osirix/clinique-api/internal/model"
	apperrors "github.com/osirix/clinique-api/pkg/errors"
	"github.com/osirix/clinique-api/pkg/httputil"
)

type Hub interface {
	ServeWS(w http.ResponseWriter, r *http.Request, session *model.Session) error
}

type Handler struct {
	hub Hub
}

func NewHandler(hub Hub) *Handler {
	return &Handler{hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications/ws", h.Subscribe)
}

// Subscribe upgrades to a websocket that streams appointment events.
func (h *Handler) Subscribe(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	// The upgrader has already answered the client on failure.
	if err := h.hub.ServeWS(c.Writer, c.Request, session); err != nil {
		log.Warn().Err(err).Str("user_id", session.UserID.String()).Msg("Websocket upgrade failed")
	}
}
