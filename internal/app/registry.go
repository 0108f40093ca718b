package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type sessionEntry struct {
	Session core.MemberSession
	Rooms   map[domain.RoomID]struct{}
	Cancel  context.CancelFunc
}

// Registry tracks live sessions and the rooms each one joined.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

// Connect registers a session and joins it to the default room.
// It reports false when sid is already bound.
func (r *Registry) Connect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; ok {
		return false
	}
	r.sessions[sid] = &sessionEntry{
		Session: sess,
		Rooms:   map[domain.RoomID]struct{}{domain.DefaultRoomID: {}},
		Cancel:  cancel,
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(sess.User().ID)).Msg("bound session")
	return true
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Disconnect unbinds the session. Calling it twice is harmless.
func (r *Registry) Disconnect(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.Lock()
	e, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return e.Session, true
}

// Join adds room to the session's joined set. Unknown sessions are ignored.
func (r *Registry) Join(sid core.SessionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Rooms[room] = struct{}{}
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("joined room")
	return true
}

func (r *Registry) Leave(sid core.SessionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	delete(e.Rooms, room)
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("left room")
	return true
}

func (r *Registry) InRoom(sid core.SessionID, room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	_, in := e.Rooms[room]
	return in
}

func (r *Registry) RoomsOf(sid core.SessionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	rooms := lo.Keys(e.Rooms)
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

type regSnap struct {
	SID     core.SessionID
	Session core.MemberSession
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if _, in := e.Rooms[room]; in {
			out = append(out, regSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

func (r *Registry) All() []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, regSnap{SID: sid, Session: e.Session})
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// OnlineUsers lists each connected identity once, however many sessions it holds.
func (r *Registry) OnlineUsers() []core.MemberDTO {
	snaps := r.All()
	users := lo.UniqBy(lo.Map(snaps, func(s regSnap, _ int) domain.User {
		return s.Session.User()
	}), func(u domain.User) domain.UserID { return u.ID })
	out := lo.Map(users, func(u domain.User, _ int) core.MemberDTO {
		return core.MemberDTO{ID: u.ID, Username: u.Username}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Kick cancels the session and closes its transport; the adapter's read loop
// then runs the normal disconnect path.
func (r *Registry) Kick(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	if sig := e.Session.Signal(); sig != nil {
		sig.Close()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("kicked session")
	return true
}
