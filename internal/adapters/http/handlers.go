package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/auth"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	deps Deps
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
}

// login creates the user on first use and returns a signed token.
func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	user, err := h.deps.Directory.LookupOrCreate(req.Username)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := h.deps.Issuer.Sign(user)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("user", string(user.ID)).Msg("sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	sess := sessions.Default(c)
	sess.Set(signal.SessionTokenKey, token)
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *handlers) rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.deps.Orch.Rooms()})
}

// parseHistoryQuery ignores values that are not integers; limits fall back to the default.
func parseHistoryQuery(c *gin.Context) core.HistoryQuery {
	var q core.HistoryQuery
	if n, err := strconv.Atoi(c.Query("limit")); err == nil {
		q.Limit = n
	}
	if b, err := strconv.ParseInt(c.Query("before"), 10, 64); err == nil {
		q.Before = &b
	}
	return q
}

func (h *handlers) messages(c *gin.Context) {
	room := domain.RoomOrDefault(c.Param("roomId"))
	msgs, err := h.deps.Orch.History(room, parseHistoryQuery(c))
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": room, "messages": msgs})
}

type reactRequest struct {
	Emoji string `json:"emoji"`
	Token string `json:"token"`
}

func (h *handlers) react(c *gin.Context) {
	var req reactRequest
	// The body may be empty when the token comes in a header.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	token := req.Token
	if token == "" {
		token = signal.TokenFrom(c)
	}
	user, err := h.deps.Verifier.Verify(token)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, auth.ErrMissingToken) {
			msg = "token required"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	room := domain.RoomOrDefault(c.Param("roomId"))
	msg, err := h.deps.Orch.ReactAs(user, room, domain.MessageID(c.Param("messageId")), req.Emoji)
	switch {
	case errors.Is(err, core.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, app.ErrEmptyEmoji):
		c.JSON(http.StatusBadRequest, gin.H{"error": "emoji required"})
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("react")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "react failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": msg})
	}
}

func (h *handlers) presence(c *gin.Context) {
	users := h.deps.Orch.Online()
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}
