package orch

import (
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) Join(sid core.SessionID, room domain.RoomID) bool {
	if !o.Registry.Join(sid, room) {
		return false
	}
	o.Events.Publish(core.Event{
		Type: core.EventJoinedRoom, Audience: core.AudienceSession, From: sid,
		Payload: core.RoomAckPayload{RoomID: room},
	})
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("added to room")
	return true
}

func (o *Orchestrator) Leave(sid core.SessionID, room domain.RoomID) bool {
	if !o.Registry.Leave(sid, room) {
		return false
	}
	o.Events.Publish(core.Event{
		Type: core.EventLeftRoom, Audience: core.AudienceSession, From: sid,
		Payload: core.RoomAckPayload{RoomID: room},
	})
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("left room")
	return true
}

// Typing relays the indicator to the other members of the room. Nothing is stored.
// Sessions not joined to the room are ignored.
func (o *Orchestrator) Typing(sid core.SessionID, room domain.RoomID, isTyping bool) {
	u, ok := o.userOf(sid)
	if !ok {
		return
	}
	if !o.Registry.InRoom(sid, room) {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Msg("typing outside joined room")
		return
	}
	o.Events.Publish(core.Event{
		Type: core.EventUserTyping, Audience: core.AudienceRoomOthers, Room: room, From: sid,
		Payload: core.TypingPayload{UserID: u.ID, Username: u.Username, IsTyping: isTyping, RoomID: room},
	})
}

// WhoAmI tells the session who it is and which rooms it joined.
func (o *Orchestrator) WhoAmI(sid core.SessionID) {
	u, ok := o.userOf(sid)
	if !ok {
		return
	}
	o.Events.Publish(core.Event{
		Type: core.EventWhoAmI, Audience: core.AudienceSession, From: sid,
		Payload: core.WhoAmIPayload{User: u, Rooms: o.Registry.RoomsOf(sid)},
	})
}

func (o *Orchestrator) Rooms() []core.RoomInfo {
	return o.Store.Rooms()
}

func (o *Orchestrator) History(room domain.RoomID, q core.HistoryQuery) ([]domain.Message, error) {
	return o.Engine.History(room, q.WithDefaults(o.HistoryLimit))
}
