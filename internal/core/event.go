//go:generate go run go.uber.org/mock/mockgen -source=event.go -destination=../mocks/mock_event_sink.go -package=mocks
package core

import "github.com/dkeye/Chat/internal/domain"

type EventType string

const (
	EventMessage         EventType = "message"
	EventMessageReaction EventType = "message_reaction"
	EventMessageSeen     EventType = "message_seen"
	EventMessageEdited   EventType = "message_edited"
	EventMessageDeleted  EventType = "message_deleted"
	EventUserTyping      EventType = "user_typing"
	EventUserOnline      EventType = "user_online"
	EventUserOffline     EventType = "user_offline"
	EventJoinedRoom      EventType = "joined_room"
	EventLeftRoom        EventType = "left_room"
	EventError           EventType = "error"
	EventPong            EventType = "pong"
	EventWhoAmI          EventType = "whoami"
)

// Audience says who receives an event.
type Audience int

const (
	// AudienceRoom is every session joined to Event.Room.
	AudienceRoom Audience = iota
	// AudienceRoomOthers is AudienceRoom without Event.From.
	AudienceRoomOthers
	// AudienceAll is every connected session.
	AudienceAll
	// AudienceSession is Event.From only.
	AudienceSession
)

type Event struct {
	Type     EventType
	Audience Audience
	Room     domain.RoomID
	From     SessionID
	Payload  any
}

// Envelope is the wire shape of an outbound event.
type Envelope struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// EventSink receives committed state changes. Publish must not block.
type EventSink interface {
	Publish(evt Event) PublishResult
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []SessionID
}

type ReactionPayload struct {
	MessageID domain.MessageID           `json:"messageId"`
	Reactions map[string][]domain.UserID `json:"reactions"`
}

type SeenPayload struct {
	MessageID domain.MessageID `json:"messageId"`
	SeenBy    []domain.UserID  `json:"seenBy"`
}

type DeletedPayload struct {
	MessageID domain.MessageID `json:"messageId"`
}

type TypingPayload struct {
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
	IsTyping bool          `json:"isTyping"`
	RoomID   domain.RoomID `json:"roomId"`
}

type PresencePayload struct {
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username,omitempty"`
}

type RoomAckPayload struct {
	RoomID domain.RoomID `json:"roomId"`
}

type WhoAmIPayload struct {
	User  domain.User     `json:"user"`
	Rooms []domain.RoomID `json:"rooms"`
}

type ErrorPayload struct {
	Operation string `json:"operation"`
	Error     string `json:"error"`
}
