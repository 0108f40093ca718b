package domain

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/samber/lo"
)

// DeletedPlaceholder replaces the content of a deleted message.
const DeletedPlaceholder = "[message deleted]"

const MaxContentLen = 4096

var (
	ErrEmptyContent   = errors.New("content empty")
	ErrContentTooLong = errors.New("content too long")
	ErrMessageDeleted = errors.New("message deleted")
)

type MessageID string

// Message is one entry of a room history. Deleted messages stay in place as tombstones.
type Message struct {
	ID        MessageID           `json:"id"`
	RoomID    RoomID              `json:"roomId"`
	SenderID  UserID              `json:"senderId"`
	Content   string              `json:"content"`
	Type      MessageType         `json:"type"`
	Meta      Meta                `json:"meta"`
	CreatedAt int64               `json:"createdAt"`
	Edited    bool                `json:"edited"`
	Deleted   bool                `json:"deleted"`
	Reactions map[string][]UserID `json:"reactions"`
	SeenBy    []UserID            `json:"seenBy"`
}

// Draft is validated client input for a new message.
type Draft struct {
	Type    MessageType
	Content string
	Meta    Meta
}

func NewDraft(typ, content string, rawMeta json.RawMessage) (Draft, error) {
	t := MessageType(strings.TrimSpace(typ))
	if t == "" {
		t = TypeText
	}
	if err := ValidateContent(t, content); err != nil {
		return Draft{}, err
	}
	meta, err := ParseMeta(t, rawMeta)
	if err != nil {
		return Draft{}, err
	}
	return Draft{Type: t, Content: content, Meta: meta}, nil
}

// ValidateContent requires text for text messages; attachments may come without a caption.
func ValidateContent(t MessageType, content string) error {
	if len(content) > MaxContentLen {
		return ErrContentTooLong
	}
	if t == TypeText && strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	return nil
}

func NewMessage(room RoomID, sender UserID, d Draft) Message {
	return Message{
		RoomID:    room,
		SenderID:  sender,
		Content:   d.Content,
		Type:      d.Type,
		Meta:      d.Meta.clone(),
		Reactions: make(map[string][]UserID),
		SeenBy:    []UserID{},
	}
}

// AddReaction reports whether uid was added; an existing reaction is left untouched.
func (m *Message) AddReaction(emoji string, uid UserID) bool {
	if m.Reactions == nil {
		m.Reactions = make(map[string][]UserID)
	}
	if lo.Contains(m.Reactions[emoji], uid) {
		return false
	}
	m.Reactions[emoji] = append(m.Reactions[emoji], uid)
	return true
}

func (m *Message) MarkSeenBy(uid UserID) bool {
	if lo.Contains(m.SeenBy, uid) {
		return false
	}
	m.SeenBy = append(m.SeenBy, uid)
	return true
}

// Edit replaces the content. A tombstone cannot be edited back to life.
func (m *Message) Edit(content string) error {
	if m.Deleted {
		return ErrMessageDeleted
	}
	m.Content = content
	m.Edited = true
	return nil
}

// Tombstone discards the content for good. The id and position stay.
func (m *Message) Tombstone() {
	m.Deleted = true
	m.Content = DeletedPlaceholder
}

// Clone returns a deep copy safe to hand out of a store.
func (m Message) Clone() Message {
	out := m
	out.Meta = m.Meta.clone()
	out.Reactions = make(map[string][]UserID, len(m.Reactions))
	for emoji, users := range m.Reactions {
		out.Reactions[emoji] = append([]UserID(nil), users...)
	}
	out.SeenBy = append([]UserID{}, m.SeenBy...)
	return out
}

// DecodeMessage reads a stored message and resolves its meta variant.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	if m.Type == "" {
		m.Type = TypeText
	}
	meta, err := ParseMeta(m.Type, m.Meta.Extra)
	if err != nil {
		return Message{}, err
	}
	m.Meta = meta
	if m.Reactions == nil {
		m.Reactions = make(map[string][]UserID)
	}
	if m.SeenBy == nil {
		m.SeenBy = []UserID{}
	}
	return m, nil
}
