package domain

import "strings"

type RoomID string

// DefaultRoomID is the room every new session joins.
const DefaultRoomID RoomID = "general"

const MaxRoomIDLen = 64

type Room struct {
	ID   RoomID `json:"id"`
	Name string `json:"name"`
}

func NewRoom(id RoomID) Room {
	if id == DefaultRoomID {
		return Room{ID: id, Name: "General"}
	}
	return Room{ID: id, Name: string(id)}
}

// RoomOrDefault trims the id and falls back to the default room when nothing is left.
func RoomOrDefault(raw string) RoomID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultRoomID
	}
	return RoomID(raw)
}
