package core

import (
	"errors"

	"github.com/dkeye/Chat/internal/domain"
)

const DefaultHistoryLimit = 50

var ErrMessageNotFound = errors.New("message not found")

// HistoryQuery selects the tail of a room history.
// Before is an exclusive CreatedAt bound in unix milliseconds.
type HistoryQuery struct {
	Limit  int
	Before *int64
}

// WithDefaults replaces a non-positive limit with def (or DefaultHistoryLimit).
func (q HistoryQuery) WithDefaults(def int) HistoryQuery {
	if def <= 0 {
		def = DefaultHistoryLimit
	}
	if q.Limit <= 0 {
		q.Limit = def
	}
	return q
}

// Mutation changes a message in place. Returning an error aborts the write.
type Mutation func(*domain.Message) error

// CommitFunc observes a committed message while the write is still exclusive,
// so whatever it enqueues is ordered like the commits themselves.
type CommitFunc func(domain.Message)

type RoomInfo struct {
	ID           domain.RoomID `json:"id"`
	Name         string        `json:"name"`
	MessageCount int           `json:"messageCount"`
}

// RoomStore owns room histories. Every returned message is a private copy.
type RoomStore interface {
	EnsureRoom(id domain.RoomID) (domain.Room, error)
	Append(msg domain.Message, onCommit CommitFunc) (domain.Message, error)
	Messages(id domain.RoomID, q HistoryQuery) ([]domain.Message, error)
	Find(room domain.RoomID, id domain.MessageID) (domain.Message, error)
	Update(room domain.RoomID, id domain.MessageID, mutate Mutation, onCommit CommitFunc) (domain.Message, error)
	Rooms() []RoomInfo
}
