package orch

import (
	"context"

	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Error codes sent to a session whose action failed.
const (
	CodeBadPayload   = "bad_payload"
	CodeEditFailed   = "edit_failed"
	CodeDeleteFailed = "delete_failed"
	CodeSendFailed   = "send_failed"
	CodeRateLimited  = "rate_limited"
)

// Orchestrator routes authenticated actions to the engine or the registry
// and publishes the resulting presence events.
type Orchestrator struct {
	Registry     *app.Registry
	Engine       *app.Engine
	Events       core.EventSink
	Store        core.RoomStore
	HistoryLimit int
	Metrics      *metrics.Metrics
}

// Connect binds a new session and announces the user to everyone.
func (o *Orchestrator) Connect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) bool {
	if !o.Registry.Connect(sid, sess, cancel) {
		return false
	}
	o.Metrics.SessionOpened()
	u := sess.User()
	o.Events.Publish(core.Event{
		Type: core.EventUserOnline, Audience: core.AudienceAll, From: sid,
		Payload: core.PresencePayload{UserID: u.ID, Username: u.Username},
	})
	return true
}

// OnDisconnect unbinds the session. Only the first call announces the user offline.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	sess, ok := o.Registry.Disconnect(sid)
	if !ok {
		return
	}
	o.Metrics.SessionClosed()
	o.Events.Publish(core.Event{
		Type: core.EventUserOffline, Audience: core.AudienceAll, From: sid,
		Payload: core.PresencePayload{UserID: sess.User().ID},
	})
}

func (o *Orchestrator) KickBySID(sid core.SessionID) {
	o.Registry.Kick(sid)
}

func (o *Orchestrator) userOf(sid core.SessionID) (domain.User, bool) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Msg("action from unknown session")
		return domain.User{}, false
	}
	return sess.User(), true
}

// ReportError sends an error event to the session only.
func (o *Orchestrator) ReportError(sid core.SessionID, operation, code string) {
	o.Events.Publish(core.Event{
		Type: core.EventError, Audience: core.AudienceSession, From: sid,
		Payload: core.ErrorPayload{Operation: operation, Error: code},
	})
}

func (o *Orchestrator) Pong(sid core.SessionID) {
	o.Events.Publish(core.Event{Type: core.EventPong, Audience: core.AudienceSession, From: sid, Payload: struct{}{}})
}

func (o *Orchestrator) Online() []core.MemberDTO {
	return o.Registry.OnlineUsers()
}
