package app

import (
	"errors"
	"strings"
	"time"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/idgen"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotMessageOwner = errors.New("forbidden: not message owner")
	ErrEmptyEmoji      = errors.New("emoji empty")
)

// Engine applies message operations to a RoomStore and publishes every
// committed change. Publishing happens inside the store commit, so events
// about one message leave in the order they were committed.
type Engine struct {
	store   core.RoomStore
	sink    core.EventSink
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

func NewEngine(store core.RoomStore, sink core.EventSink, m *metrics.Metrics) *Engine {
	return &Engine{
		store:   store,
		sink:    sink,
		metrics: m,
		now:     time.Now,
		newID:   idgen.NewULID,
	}
}

func (e *Engine) publish(evt core.Event) {
	if e.sink == nil {
		return
	}
	e.sink.Publish(evt)
}

// Send appends a new message. An empty room id means the default room.
func (e *Engine) Send(actor domain.User, room domain.RoomID, d domain.Draft) (domain.Message, error) {
	room = domain.RoomOrDefault(string(room))
	msg := domain.NewMessage(room, actor.ID, d)
	msg.ID = domain.MessageID(e.newID())
	msg.CreatedAt = e.now().UnixMilli()

	stored, err := e.store.Append(msg, func(m domain.Message) {
		e.publish(core.Event{Type: core.EventMessage, Audience: core.AudienceRoom, Room: m.RoomID, Payload: m})
	})
	if err != nil {
		return domain.Message{}, err
	}
	e.metrics.MessageSent()
	log.Debug().Str("module", "app.engine").Str("room", string(room)).Str("message", string(stored.ID)).
		Str("user", string(actor.ID)).Msg("message sent")
	return stored, nil
}

// React adds the actor to the emoji's reaction set. Reacting twice is a no-op.
func (e *Engine) React(actor domain.User, room domain.RoomID, id domain.MessageID, emoji string) (domain.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return domain.Message{}, ErrEmptyEmoji
	}
	return e.store.Update(room, id, func(m *domain.Message) error {
		m.AddReaction(emoji, actor.ID)
		return nil
	}, func(m domain.Message) {
		e.publish(core.Event{
			Type: core.EventMessageReaction, Audience: core.AudienceRoom, Room: room,
			Payload: core.ReactionPayload{MessageID: m.ID, Reactions: m.Reactions},
		})
	})
}

func (e *Engine) MarkSeen(actor domain.User, room domain.RoomID, id domain.MessageID) (domain.Message, error) {
	return e.store.Update(room, id, func(m *domain.Message) error {
		m.MarkSeenBy(actor.ID)
		return nil
	}, func(m domain.Message) {
		e.publish(core.Event{
			Type: core.EventMessageSeen, Audience: core.AudienceRoom, Room: room,
			Payload: core.SeenPayload{MessageID: m.ID, SeenBy: m.SeenBy},
		})
	})
}

// Edit is reserved to the sender and refused once the message is a tombstone.
func (e *Engine) Edit(actor domain.User, room domain.RoomID, id domain.MessageID, content string) (domain.Message, error) {
	return e.store.Update(room, id, func(m *domain.Message) error {
		if m.SenderID != actor.ID {
			return ErrNotMessageOwner
		}
		if m.Deleted {
			return domain.ErrMessageDeleted
		}
		if err := domain.ValidateContent(m.Type, content); err != nil {
			return err
		}
		return m.Edit(content)
	}, func(m domain.Message) {
		e.publish(core.Event{Type: core.EventMessageEdited, Audience: core.AudienceRoom, Room: room, Payload: m})
	})
}

// Delete tombstones the message. force lets an admin delete anyone's message.
func (e *Engine) Delete(actor domain.User, room domain.RoomID, id domain.MessageID, force bool) (domain.Message, error) {
	return e.store.Update(room, id, func(m *domain.Message) error {
		if !force && m.SenderID != actor.ID {
			return ErrNotMessageOwner
		}
		m.Tombstone()
		return nil
	}, func(m domain.Message) {
		e.publish(core.Event{
			Type: core.EventMessageDeleted, Audience: core.AudienceRoom, Room: room,
			Payload: core.DeletedPayload{MessageID: m.ID},
		})
	})
}

func (e *Engine) History(room domain.RoomID, q core.HistoryQuery) ([]domain.Message, error) {
	return e.store.Messages(room, q)
}
