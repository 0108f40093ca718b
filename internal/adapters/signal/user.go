package signal

import (
	"errors"
	"strings"

	"github.com/dkeye/Chat/internal/auth"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// SessionTokenKey is where the login handler keeps the token in the cookie session.
const SessionTokenKey = "token"

// TokenFrom picks the credential of a request: query, then Authorization
// header, then the cookie session.
func TokenFrom(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("token")); t != "" {
		return t
	}
	if t := auth.BearerToken(c.GetHeader("Authorization")); t != "" {
		return t
	}
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	if t, ok := sessions.Default(c).Get(SessionTokenKey).(string); ok {
		return t
	}
	return ""
}

func (ctl *SignalWSController) handleWhoAmI(sid core.SessionID) {
	ctl.Orch.WhoAmI(sid)
}

func (ctl *SignalWSController) resolveUser(c *gin.Context) (domain.User, error) {
	return ctl.Verifier.Verify(TokenFrom(c))
}

func authError(err error) string {
	if errors.Is(err, auth.ErrMissingToken) {
		return "token required"
	}
	return "invalid token"
}
