package signal

import (
	"encoding/json"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

type messagePayload struct {
	RoomID  string          `json:"roomId" validate:"max=64"`
	Content string          `json:"content"`
	Type    string          `json:"type" validate:"max=32"`
	Meta    json.RawMessage `json:"meta"`
}

type reactPayload struct {
	RoomID    string `json:"roomId" validate:"max=64"`
	MessageID string `json:"messageId" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
}

type targetPayload struct {
	RoomID    string `json:"roomId" validate:"max=64"`
	MessageID string `json:"messageId" validate:"required"`
}

type editPayload struct {
	RoomID     string `json:"roomId" validate:"max=64"`
	MessageID  string `json:"messageId" validate:"required"`
	NewContent string `json:"newContent"`
}

func (ctl *SignalWSController) handleMessage(sid core.SessionID, env inbound) {
	var p messagePayload
	if err := decode(env.Payload, &p); err != nil {
		ctl.badPayload(sid, env, err)
		return
	}
	draft, err := domain.NewDraft(p.Type, p.Content, p.Meta)
	if err != nil {
		ctl.badPayload(sid, env, err)
		return
	}
	ctl.Orch.Send(sid, domain.RoomOrDefault(p.RoomID), draft)
}

func (ctl *SignalWSController) handleReact(sid core.SessionID, env inbound) {
	var p reactPayload
	if err := decode(env.Payload, &p); err != nil {
		ctl.badPayload(sid, env, err)
		return
	}
	ctl.Orch.React(sid, domain.RoomOrDefault(p.RoomID), domain.MessageID(p.MessageID), p.Emoji)
}

func (ctl *SignalWSController) handleSeen(sid core.SessionID, env inbound) {
	var p targetPayload
	if err := decode(env.Payload, &p); err != nil {
		ctl.badPayload(sid, env, err)
		return
	}
	ctl.Orch.MarkSeen(sid, domain.RoomOrDefault(p.RoomID), domain.MessageID(p.MessageID))
}

func (ctl *SignalWSController) handleEdit(sid core.SessionID, env inbound) {
	var p editPayload
	if err := decode(env.Payload, &p); err != nil {
		ctl.badPayload(sid, env, err)
		return
	}
	ctl.Orch.Edit(sid, domain.RoomOrDefault(p.RoomID), domain.MessageID(p.MessageID), p.NewContent)
}

func (ctl *SignalWSController) handleDelete(sid core.SessionID, env inbound) {
	var p targetPayload
	if err := decode(env.Payload, &p); err != nil {
		ctl.badPayload(sid, env, err)
		return
	}
	ctl.Orch.Delete(sid, domain.RoomOrDefault(p.RoomID), domain.MessageID(p.MessageID))
}
