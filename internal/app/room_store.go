package app

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/idgen"
	"github.com/rs/zerolog/log"
)

var ErrDuplicateMessage = errors.New("message id already used")

// messageEntry guards one message. createdAt is copied out so ordering
// lookups never touch a message that is being mutated.
type messageEntry struct {
	createdAt int64
	mu        sync.Mutex
	msg       domain.Message
}

type roomEntry struct {
	room     domain.Room
	mu       sync.RWMutex
	messages []*messageEntry
	byID     map[domain.MessageID]*messageEntry
}

// MemoryStore is a threadsafe in-memory core.RoomStore.
// The room lock covers the history slice, each message has its own lock.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomEntry
	now   func() time.Time
	newID func() string
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		rooms: make(map[domain.RoomID]*roomEntry),
		now:   time.Now,
		newID: idgen.NewULID,
	}
	s.getOrCreate(domain.DefaultRoomID)
	return s
}

func (s *MemoryStore) lookup(id domain.RoomID) *roomEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id]
}

func (s *MemoryStore) getOrCreate(id domain.RoomID) *roomEntry {
	if r := s.lookup(id); r != nil {
		return r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		return r
	}
	r := &roomEntry{
		room: domain.NewRoom(id),
		byID: make(map[domain.MessageID]*messageEntry),
	}
	s.rooms[id] = r
	log.Debug().Str("module", "app.store").Str("room", string(id)).Msg("room created")
	return r
}

func (s *MemoryStore) EnsureRoom(id domain.RoomID) (domain.Room, error) {
	return s.getOrCreate(id).room, nil
}

func (s *MemoryStore) Append(msg domain.Message, onCommit core.CommitFunc) (domain.Message, error) {
	r := s.getOrCreate(msg.RoomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = domain.MessageID(s.newID())
	}
	if _, dup := r.byID[msg.ID]; dup {
		return domain.Message{}, ErrDuplicateMessage
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = s.now().UnixMilli()
	}
	if n := len(r.messages); n > 0 && msg.CreatedAt < r.messages[n-1].createdAt {
		msg.CreatedAt = r.messages[n-1].createdAt
	}

	e := &messageEntry{createdAt: msg.CreatedAt, msg: msg.Clone()}
	r.messages = append(r.messages, e)
	r.byID[msg.ID] = e

	out := e.msg.Clone()
	if onCommit != nil {
		onCommit(out.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Messages(id domain.RoomID, q core.HistoryQuery) ([]domain.Message, error) {
	q = q.WithDefaults(core.DefaultHistoryLimit)
	r := s.lookup(id)
	if r == nil {
		return []domain.Message{}, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	end := len(r.messages)
	if q.Before != nil {
		before := *q.Before
		end = sort.Search(len(r.messages), func(i int) bool {
			return r.messages[i].createdAt >= before
		})
	}
	start := max(end-q.Limit, 0)

	out := make([]domain.Message, 0, end-start)
	for _, e := range r.messages[start:end] {
		e.mu.Lock()
		out = append(out, e.msg.Clone())
		e.mu.Unlock()
	}
	return out, nil
}

func (s *MemoryStore) entry(room domain.RoomID, id domain.MessageID) *messageEntry {
	r := s.lookup(room)
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

func (s *MemoryStore) Find(room domain.RoomID, id domain.MessageID) (domain.Message, error) {
	e := s.entry(room, id)
	if e == nil {
		return domain.Message{}, core.ErrMessageNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.msg.Clone(), nil
}

func (s *MemoryStore) Update(room domain.RoomID, id domain.MessageID, mutate core.Mutation, onCommit core.CommitFunc) (domain.Message, error) {
	e := s.entry(room, id)
	if e == nil {
		return domain.Message{}, core.ErrMessageNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.msg.Clone()
	if err := mutate(&work); err != nil {
		return domain.Message{}, err
	}
	e.msg = work

	out := work.Clone()
	if onCommit != nil {
		onCommit(out.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Rooms() []core.RoomInfo {
	s.mu.RLock()
	rooms := make([]*roomEntry, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.RUnlock()

	out := make([]core.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.mu.RLock()
		out = append(out, core.RoomInfo{ID: r.room.ID, Name: r.room.Name, MessageCount: len(r.messages)})
		r.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
