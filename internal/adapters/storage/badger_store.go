// Package storage holds RoomStore implementations backed by an embedded database.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/idgen"
	"github.com/rs/zerolog/log"
)

var ErrDuplicateMessage = errors.New("message id already used")

// roomRecord is stored under "room/<room>". Seq orders messages that share a
// timestamp, LastCreatedAt keeps CreatedAt from going backwards.
type roomRecord struct {
	ID            domain.RoomID `json:"id"`
	Name          string        `json:"name"`
	Seq           uint64        `json:"seq"`
	LastCreatedAt int64         `json:"lastCreatedAt"`
	Count         int           `json:"count"`
}

// BadgerStore is a core.RoomStore persisted in badger.
//
// Keys:
//
//	room/<room>                          roomRecord
//	msg/<room>/<createdAt>/<seq>         message JSON, both numbers zero padded to 19 digits
//	idx/<room>/<messageID>               key of the message entry
//
// Writes to one room are serialized by a per-room mutex, so onCommit runs
// in commit order. Readers rely on badger snapshots.
type BadgerStore struct {
	db    *badger.DB
	locks sync.Map
	now   func() time.Time
	newID func() string
}

func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	s := &BadgerStore{db: db, now: time.Now, newID: idgen.NewULID}
	if _, err := s.EnsureRoom(domain.DefaultRoomID); err != nil {
		return nil, err
	}
	return s, nil
}

func roomSeg(id domain.RoomID) string { return url.PathEscape(string(id)) }

func roomKey(id domain.RoomID) []byte { return []byte("room/" + roomSeg(id)) }

func msgPrefix(id domain.RoomID) []byte { return []byte("msg/" + roomSeg(id) + "/") }

func msgKey(id domain.RoomID, createdAt int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("msg/%s/%019d/%019d", roomSeg(id), createdAt, seq))
}

func idxKey(room domain.RoomID, id domain.MessageID) []byte {
	return []byte("idx/" + roomSeg(room) + "/" + url.PathEscape(string(id)))
}

func (s *BadgerStore) lock(id domain.RoomID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func getJSON(txn *badger.Txn, key []byte, out any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func loadRoom(txn *badger.Txn, id domain.RoomID) (roomRecord, bool, error) {
	var rec roomRecord
	ok, err := getJSON(txn, roomKey(id), &rec)
	if err != nil || !ok {
		room := domain.NewRoom(id)
		return roomRecord{ID: room.ID, Name: room.Name}, false, err
	}
	return rec, true, nil
}

func (s *BadgerStore) EnsureRoom(id domain.RoomID) (domain.Room, error) {
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	var rec roomRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		var found bool
		var err error
		rec, found, err = loadRoom(txn, id)
		if err != nil || found {
			return err
		}
		log.Debug().Str("module", "storage.badger").Str("room", string(id)).Msg("room created")
		return setJSON(txn, roomKey(id), rec)
	})
	if err != nil {
		return domain.Room{}, fmt.Errorf("ensure room %s: %w", id, err)
	}
	return domain.Room{ID: rec.ID, Name: rec.Name}, nil
}

func (s *BadgerStore) Append(msg domain.Message, onCommit core.CommitFunc) (domain.Message, error) {
	mu := s.lock(msg.RoomID)
	mu.Lock()
	defer mu.Unlock()

	if msg.ID == "" {
		msg.ID = domain.MessageID(s.newID())
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = s.now().UnixMilli()
	}
	msg = msg.Clone()

	err := s.db.Update(func(txn *badger.Txn) error {
		rec, _, err := loadRoom(txn, msg.RoomID)
		if err != nil {
			return err
		}
		if _, err := txn.Get(idxKey(msg.RoomID, msg.ID)); err == nil {
			return ErrDuplicateMessage
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if rec.Count > 0 && msg.CreatedAt < rec.LastCreatedAt {
			msg.CreatedAt = rec.LastCreatedAt
		}
		rec.Seq++
		rec.Count++
		rec.LastCreatedAt = msg.CreatedAt

		key := msgKey(msg.RoomID, msg.CreatedAt, rec.Seq)
		if err := setJSON(txn, key, msg); err != nil {
			return err
		}
		if err := txn.Set(idxKey(msg.RoomID, msg.ID), key); err != nil {
			return err
		}
		return setJSON(txn, roomKey(msg.RoomID), rec)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("append to %s: %w", msg.RoomID, err)
	}
	if onCommit != nil {
		onCommit(msg.Clone())
	}
	return msg, nil
}

func (s *BadgerStore) Messages(id domain.RoomID, q core.HistoryQuery) ([]domain.Message, error) {
	q = q.WithDefaults(core.DefaultHistoryLimit)
	out := make([]domain.Message, 0)
	if q.Before != nil && *q.Before <= 0 {
		return out, nil
	}

	prefix := msgPrefix(id)
	// '~' sorts after every digit, so a reverse seek lands on the newest entry
	seekKey := append(append([]byte(nil), prefix...), '~')
	if q.Before != nil {
		seekKey = append(append([]byte(nil), prefix...), fmt.Sprintf("%019d/", *q.Before)...)
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(out) < q.Limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				m, err := domain.DecodeMessage(val)
				if err != nil {
					return err
				}
				out = append(out, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", id, err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func findIn(txn *badger.Txn, room domain.RoomID, id domain.MessageID) ([]byte, domain.Message, error) {
	item, err := txn.Get(idxKey(room, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.Message{}, core.ErrMessageNotFound
	}
	if err != nil {
		return nil, domain.Message{}, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return nil, domain.Message{}, err
	}
	item, err = txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.Message{}, core.ErrMessageNotFound
	}
	if err != nil {
		return nil, domain.Message{}, err
	}
	var msg domain.Message
	err = item.Value(func(val []byte) error {
		msg, err = domain.DecodeMessage(val)
		return err
	})
	return key, msg, err
}

func (s *BadgerStore) Find(room domain.RoomID, id domain.MessageID) (domain.Message, error) {
	var msg domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		_, msg, err = findIn(txn, room, id)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (s *BadgerStore) Update(room domain.RoomID, id domain.MessageID, mutate core.Mutation, onCommit core.CommitFunc) (domain.Message, error) {
	mu := s.lock(room)
	mu.Lock()
	defer mu.Unlock()

	var msg domain.Message
	err := s.db.Update(func(txn *badger.Txn) error {
		key, current, err := findIn(txn, room, id)
		if err != nil {
			return err
		}
		if err := mutate(&current); err != nil {
			return err
		}
		msg = current
		return setJSON(txn, key, current)
	})
	if err != nil {
		return domain.Message{}, err
	}
	if onCommit != nil {
		onCommit(msg.Clone())
	}
	return msg, nil
}

func (s *BadgerStore) Rooms() []core.RoomInfo {
	out := make([]core.RoomInfo, 0)
	prefix := []byte("room/")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var rec roomRecord
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			out = append(out, core.RoomInfo{ID: rec.ID, Name: rec.Name, MessageCount: rec.Count})
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("module", "storage.badger").Msg("list rooms")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
