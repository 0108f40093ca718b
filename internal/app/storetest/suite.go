// Package storetest holds the behaviour every core.RoomStore must share.
package storetest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory builds an empty store for one sub-test.
type Factory func(t *testing.T) core.RoomStore

func Run(t *testing.T, newStore Factory) {
	t.Run("history tail with limit", func(t *testing.T) { historyTail(t, newStore(t)) })
	t.Run("history before timestamp", func(t *testing.T) { historyBefore(t, newStore(t)) })
	t.Run("history default limit", func(t *testing.T) { historyDefaultLimit(t, newStore(t)) })
	t.Run("unknown room is empty", func(t *testing.T) { unknownRoom(t, newStore(t)) })
	t.Run("append assigns id and time", func(t *testing.T) { appendAssigns(t, newStore(t)) })
	t.Run("created at never goes back", func(t *testing.T) { createdAtClamp(t, newStore(t)) })
	t.Run("ties keep insertion order", func(t *testing.T) { tiesKeepInsertionOrder(t, newStore(t)) })
	t.Run("find and not found", func(t *testing.T) { find(t, newStore(t)) })
	t.Run("update commits and aborts", func(t *testing.T) { update(t, newStore(t)) })
	t.Run("returned messages are copies", func(t *testing.T) { copies(t, newStore(t)) })
	t.Run("concurrent updates are serialized", func(t *testing.T) { concurrentUpdates(t, newStore(t)) })
	t.Run("rooms listing", func(t *testing.T) { rooms(t, newStore(t)) })
}

func textMessage(room domain.RoomID, sender domain.UserID, content string, at int64) domain.Message {
	m := domain.NewMessage(room, sender, domain.Draft{Type: domain.TypeText, Content: content})
	m.CreatedAt = at
	return m
}

func seed(t *testing.T, s core.RoomStore, room domain.RoomID, times ...int64) []domain.Message {
	t.Helper()
	out := make([]domain.Message, 0, len(times))
	for i, at := range times {
		m, err := s.Append(textMessage(room, "alice", fmt.Sprintf("m%d", i+1), at), nil)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func ids(msgs []domain.Message) []domain.MessageID {
	out := make([]domain.MessageID, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func historyTail(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	// Given a room with m1@1, m2@2, m3@3
	msgs := seed(t, s, "r1", 1, 2, 3)

	// When the two latest messages are requested
	got, err := s.Messages("r1", core.HistoryQuery{Limit: 2})

	// Then m2 and m3 come back in chronological order
	req.NoError(err)
	req.Equal(ids(msgs[1:]), ids(got))
}

func historyBefore(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	msgs := seed(t, s, "r1", 1, 2, 3)

	before := int64(2)
	got, err := s.Messages("r1", core.HistoryQuery{Limit: 50, Before: &before})

	req.NoError(err)
	req.Equal(ids(msgs[:1]), ids(got))
}

func historyDefaultLimit(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	times := make([]int64, 0, 60)
	for i := 1; i <= 60; i++ {
		times = append(times, int64(i))
	}
	msgs := seed(t, s, "r1", times...)

	for _, limit := range []int{0, -3} {
		got, err := s.Messages("r1", core.HistoryQuery{Limit: limit})
		req.NoError(err)
		req.Len(got, core.DefaultHistoryLimit)
		req.Equal(msgs[len(msgs)-1].ID, got[len(got)-1].ID)
		req.Equal(msgs[10].ID, got[0].ID)
	}
}

func unknownRoom(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	got, err := s.Messages("nowhere", core.HistoryQuery{})
	req.NoError(err)
	req.NotNil(got)
	req.Empty(got)
}

func appendAssigns(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	m, err := s.Append(textMessage("fresh", "alice", "hello", 0), nil)
	req.NoError(err)
	req.NotEmpty(m.ID)
	req.Positive(m.CreatedAt)

	room, err := s.EnsureRoom("fresh")
	req.NoError(err)
	req.Equal(domain.RoomID("fresh"), room.ID)
}

func createdAtClamp(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	msgs := seed(t, s, "r1", 5, 3)
	req.Equal(int64(5), msgs[1].CreatedAt)

	got, err := s.Messages("r1", core.HistoryQuery{})
	req.NoError(err)
	req.Equal(ids(msgs), ids(got))
}

func tiesKeepInsertionOrder(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	var want []domain.MessageID
	// IDs chosen so that lexical order is the reverse of insertion order
	for _, id := range []domain.MessageID{"c", "b", "a"} {
		m := textMessage("r1", "alice", string(id), 7)
		m.ID = id
		stored, err := s.Append(m, nil)
		req.NoError(err)
		want = append(want, stored.ID)
	}
	got, err := s.Messages("r1", core.HistoryQuery{})
	req.NoError(err)
	req.Equal(want, ids(got))
}

func find(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	msgs := seed(t, s, "r1", 1)

	got, err := s.Find("r1", msgs[0].ID)
	req.NoError(err)
	req.Equal(msgs[0], got)

	_, err = s.Find("r1", "missing")
	req.ErrorIs(err, core.ErrMessageNotFound)
	_, err = s.Find("nowhere", msgs[0].ID)
	req.ErrorIs(err, core.ErrMessageNotFound)
}

func update(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	msgs := seed(t, s, "r1", 1)

	var committed []domain.Message
	onCommit := func(m domain.Message) { committed = append(committed, m) }

	got, err := s.Update("r1", msgs[0].ID, func(m *domain.Message) error {
		m.AddReaction("👍", "bob")
		return nil
	}, onCommit)
	req.NoError(err)
	req.Equal([]domain.UserID{"bob"}, got.Reactions["👍"])
	req.Len(committed, 1)

	// An aborted mutation leaves the message untouched and commits nothing
	boom := errors.New("boom")
	_, err = s.Update("r1", msgs[0].ID, func(m *domain.Message) error {
		m.Content = "changed"
		return boom
	}, onCommit)
	req.ErrorIs(err, boom)
	req.Len(committed, 1)

	stored, err := s.Find("r1", msgs[0].ID)
	req.NoError(err)
	req.Equal("m1", stored.Content)

	_, err = s.Update("r1", "missing", func(*domain.Message) error { return nil }, onCommit)
	req.ErrorIs(err, core.ErrMessageNotFound)
	req.Len(committed, 1)
}

func copies(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	msgs := seed(t, s, "r1", 1)

	got, err := s.Find("r1", msgs[0].ID)
	req.NoError(err)
	got.AddReaction("👍", "mallory")
	got.Content = "tampered"

	again, err := s.Find("r1", msgs[0].ID)
	req.NoError(err)
	req.Empty(again.Reactions)
	req.Equal("m1", again.Content)
}

func concurrentUpdates(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	msgs := seed(t, s, "r1", 1)

	var wg conc.WaitGroup
	for i := 0; i < 50; i++ {
		uid := domain.UserID(fmt.Sprintf("user-%d", i))
		wg.Go(func() {
			_, err := s.Update("r1", msgs[0].ID, func(m *domain.Message) error {
				m.AddReaction("🔥", uid)
				m.MarkSeenBy(uid)
				return nil
			}, nil)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	got, err := s.Find("r1", msgs[0].ID)
	req.NoError(err)
	req.Len(got.Reactions["🔥"], 50)
	req.Len(got.SeenBy, 50)
}

func rooms(t *testing.T, s core.RoomStore) {
	req := require.New(t)
	seed(t, s, "beta", 1, 2)
	seed(t, s, "alpha", 1)

	infos := s.Rooms()
	counts := map[domain.RoomID]int{}
	for _, info := range infos {
		counts[info.ID] = info.MessageCount
	}
	req.Equal(2, counts["beta"])
	req.Equal(1, counts["alpha"])
}
