package app

import (
	"context"
	"testing"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/core/coretest"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ConnectJoinsDefaultRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	req.True(reg.Connect("s1", core.NewMemberSession(alice, coretest.NewConn(0)), nil))
	req.False(reg.Connect("s1", core.NewMemberSession(alice, coretest.NewConn(0)), nil))

	req.True(reg.InRoom("s1", domain.DefaultRoomID))
	req.Equal([]domain.RoomID{domain.DefaultRoomID}, reg.RoomsOf("s1"))
	req.Equal(1, reg.Count())
}

func TestRegistry_JoinLeave(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	connect(reg, "s1", alice)
	connect(reg, "s2", bob)

	req.True(reg.Join("s1", "x"))
	req.Len(reg.MembersOfRoom("x"), 1)
	req.Len(reg.MembersOfRoom(domain.DefaultRoomID), 2)

	req.True(reg.Leave("s1", "x"))
	req.Empty(reg.MembersOfRoom("x"))
	req.False(reg.InRoom("s1", "x"))

	// Leaving a room never joined is fine
	req.True(reg.Leave("s1", "never"))
}

func TestRegistry_UnknownSessionNeverDangles(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	// Given a session that already disconnected
	connect(reg, "s1", alice)
	_, ok := reg.Disconnect("s1")
	req.True(ok)

	// When a late join arrives for it
	req.False(reg.Join("s1", "x"))

	// Then nothing is registered again
	req.Equal(0, reg.Count())
	req.Empty(reg.MembersOfRoom("x"))
	_, ok = reg.Disconnect("s1")
	req.False(ok)
}

func TestRegistry_DisconnectCancelsSession(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	reg.Connect("s1", core.NewMemberSession(alice, coretest.NewConn(0)), cancel)

	reg.Disconnect("s1")
	req.ErrorIs(ctx.Err(), context.Canceled)
}

func TestRegistry_OnlineUsersDedupesIdentities(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	connect(reg, "s1", alice)
	connect(reg, "s2", alice)
	connect(reg, "s3", bob)

	users := reg.OnlineUsers()
	req.Equal([]core.MemberDTO{
		{ID: alice.ID, Username: "alice"},
		{ID: bob.ID, Username: "bob"},
	}, users)
}

func TestRegistry_Kick(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	conn := coretest.NewConn(0)
	reg.Connect("s1", core.NewMemberSession(alice, conn), cancel)

	req.True(reg.Kick("s1"))
	req.True(conn.Closed())
	req.ErrorIs(ctx.Err(), context.Canceled)
	req.False(reg.Kick("nobody"))
}
