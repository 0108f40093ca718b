package orch

import (
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) Send(sid core.SessionID, room domain.RoomID, d domain.Draft) {
	u, ok := o.userOf(sid)
	if !ok {
		return
	}
	if _, err := o.Engine.Send(u, room, d); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("send failed")
		o.ReportError(sid, "message", CodeSendFailed)
	}
}

// React drops the request silently when the message does not exist.
func (o *Orchestrator) React(sid core.SessionID, room domain.RoomID, id domain.MessageID, emoji string) {
	u, ok := o.userOf(sid)
	if !ok {
		return
	}
	if _, err := o.Engine.React(u, room, id, emoji); err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("message", string(id)).Msg("react ignored")
	}
}

// ReactAs is React for callers authenticated outside a live session.
func (o *Orchestrator) ReactAs(u domain.User, room domain.RoomID, id domain.MessageID, emoji string) (domain.Message, error) {
	return o.Engine.React(u, room, id, emoji)
}

func (o *Orchestrator) MarkSeen(sid core.SessionID, room domain.RoomID, id domain.MessageID) {
	u, ok := o.userOf(sid)
	if !ok {
		return
	}
	if _, err := o.Engine.MarkSeen(u, room, id); err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("message", string(id)).Msg("seen ignored")
	}
}

// Edit reports every failure with the same code, so a client cannot tell
// a foreign message from a missing one.
func (o *Orchestrator) Edit(sid core.SessionID, room domain.RoomID, id domain.MessageID, content string) {
	u, ok := o.userOf(sid)
	if !ok {
		return
	}
	if _, err := o.Engine.Edit(u, room, id, content); err != nil {
		log.Info().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("message", string(id)).Msg("edit refused")
		o.ReportError(sid, "edit_message", CodeEditFailed)
	}
}

// Delete lets admins remove anyone's message.
func (o *Orchestrator) Delete(sid core.SessionID, room domain.RoomID, id domain.MessageID) {
	u, ok := o.userOf(sid)
	if !ok {
		return
	}
	if _, err := o.Engine.Delete(u, room, id, u.IsAdmin); err != nil {
		log.Info().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("message", string(id)).Msg("delete refused")
		o.ReportError(sid, "delete_message", CodeDeleteFailed)
	}
}
