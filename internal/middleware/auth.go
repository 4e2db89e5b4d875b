package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/pkg/auth"
	apperrors "github.com/osirix/clinique-api/pkg/errors"
	"github.com/osirix/clinique-api/pkg/httputil"
)

const (
	ContextSession  = "session"
	queryTokenParam = "token"
)

var errAuthFormat = errors.New("invalid authorization format")

type AuthMiddleware struct {
	jwtService auth.JWTService
}

func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate verifies the bearer token and stores the caller's session in
// the context. Websocket upgrades may pass the token as a query parameter
// since browsers cannot set headers on them.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			respondUnauthorized(c, err)
			return
		}

		session, err := m.jwtService.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected token")
			respondUnauthorized(c, err)
			return
		}

		c.Set(ContextSession, session)
		c.Next()
	}
}

// RequireStaff rejects callers that are not secretaries or admins.
func (m *AuthMiddleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			return
		}
		if !session.IsStaff() {
			httputil.RespondWithError(c, apperrors.Forbidden("this action is reserved to clinic staff"))
			return
		}
		c.Next()
	}
}

// GetSession returns the session set by Authenticate, or nil.
func GetSession(c *gin.Context) *model.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	session, _ := v.(*model.Session)
	return session
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query(queryTokenParam); token != "" && websocket.IsWebSocketUpgrade(c.Request) {
			return token, nil
		}
		return "", auth.ErrMissingToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errAuthFormat
	}
	return strings.TrimSpace(parts[1]), nil
}

func respondUnauthorized(c *gin.Context, err error) {
	message := "invalid token"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		message = "session expired, please log in again"
	case errors.Is(err, auth.ErrMissingToken):
		message = "missing authorization token"
	case errors.Is(err, errAuthFormat):
		message = "invalid authorization format"
	}
	httputil.RespondWithStatus(c, http.StatusUnauthorized, message)
}
