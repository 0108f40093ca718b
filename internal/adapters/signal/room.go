package signal

import (
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
)

type roomPayload struct {
	RoomID string `json:"roomId" validate:"max=64"`
}

type typingPayload struct {
	RoomID   string `json:"roomId" validate:"max=64"`
	IsTyping bool   `json:"isTyping"`
}

func (ctl *SignalWSController) handleJoin(sid core.SessionID, env inbound) {
	var p roomPayload
	if err := decode(env.Payload, &p); err != nil {
		ctl.badPayload(sid, env, err)
		return
	}
	ctl.Orch.Join(sid, domain.RoomOrDefault(p.RoomID))
}

// handleLeave leaves one room; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid core.SessionID, env inbound) {
	var p roomPayload
	if err := decode(env.Payload, &p); err != nil {
		ctl.badPayload(sid, env, err)
		return
	}
	ctl.Orch.Leave(sid, domain.RoomOrDefault(p.RoomID))
}

func (ctl *SignalWSController) handleTyping(sid core.SessionID, env inbound) {
	var p typingPayload
	if err := decode(env.Payload, &p); err != nil {
		ctl.badPayload(sid, env, err)
		return
	}
	ctl.Orch.Typing(sid, domain.RoomOrDefault(p.RoomID), p.IsTyping)
}
