package app

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDispatcher_RoomAudience(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	d := NewDispatcher(reg, SimplePolicy{}, nil)

	// Given s1 joined X, s2 joined Y, both sit in general
	c1 := connect(reg, "s1", alice)
	c2 := connect(reg, "s2", bob)
	reg.Join("s1", "X")
	reg.Join("s2", "Y")

	// When a message is published to X
	res := d.Publish(core.Event{Type: core.EventMessage, Audience: core.AudienceRoom, Room: "X", Payload: map[string]string{"id": "m1"}})

	// Then only s1 receives it
	req.Equal(1, res.SendTo)
	req.Equal([]core.EventType{core.EventMessage}, c1.Types())
	req.Empty(c2.Types())
}

func TestDispatcher_RoomOthersExcludesSender(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	d := NewDispatcher(reg, SimplePolicy{}, nil)
	c1 := connect(reg, "s1", alice)
	c2 := connect(reg, "s2", bob)

	res := d.Publish(core.Event{Type: core.EventUserTyping, Audience: core.AudienceRoomOthers, Room: domain.DefaultRoomID, From: "s1"})

	req.Equal(1, res.SendTo)
	req.Empty(c1.Types())
	req.Equal([]core.EventType{core.EventUserTyping}, c2.Types())
}

func TestDispatcher_AllAndSessionAudiences(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	d := NewDispatcher(reg, SimplePolicy{}, nil)
	c1 := connect(reg, "s1", alice)
	c2 := connect(reg, "s2", bob)
	reg.Leave("s2", domain.DefaultRoomID)

	d.Publish(core.Event{Type: core.EventUserOnline, Audience: core.AudienceAll})
	d.Publish(core.Event{Type: core.EventError, Audience: core.AudienceSession, From: "s2"})
	res := d.Publish(core.Event{Type: core.EventError, Audience: core.AudienceSession, From: "gone"})

	req.Equal(0, res.SendTo)
	req.Equal([]core.EventType{core.EventUserOnline}, c1.Types())
	req.Equal([]core.EventType{core.EventUserOnline, core.EventError}, c2.Types())
}

func TestDispatcher_Envelope(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	d := NewDispatcher(reg, SimplePolicy{}, nil)
	c1 := connect(reg, "s1", alice)

	d.Publish(core.Event{
		Type: core.EventMessageDeleted, Audience: core.AudienceRoom, Room: domain.DefaultRoomID,
		Payload: core.DeletedPayload{MessageID: "m1"},
	})

	frames := c1.Frames()
	req.Len(frames, 1)
	var p core.DeletedPayload
	req.NoError(json.Unmarshal(frames[0].Payload, &p))
	req.Equal(domain.MessageID("m1"), p.MessageID)
}

func TestDispatcher_SlowMemberIsKickedOthersStillServed(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	reg := NewRegistry()
	d := NewDispatcher(reg, SimplePolicy{}, nil)

	// Given a slow member whose buffer is full
	slow := mocks.NewMockSignalConnection(ctrl)
	slow.EXPECT().TrySend(gomock.Any()).Return(errors.New("backpressure")).Times(1)
	slow.EXPECT().Close().Times(1)
	sess := mocks.NewMockMemberSession(ctrl)
	sess.EXPECT().User().Return(bob).AnyTimes()
	sess.EXPECT().Signal().Return(slow).AnyTimes()
	reg.Connect("slow", sess, nil)
	fast := connect(reg, "fast", alice)

	// When a message is published
	res := d.Publish(core.Event{Type: core.EventMessage, Audience: core.AudienceRoom, Room: domain.DefaultRoomID})

	// Then the fast member got it and the slow one was kicked
	req.Equal(1, res.SendTo)
	req.Equal([]core.SessionID{"slow"}, res.Dropped)
	req.Len(fast.Types(), 1)
}

func TestDispatcher_TypingDropIsNotKicked(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	reg := NewRegistry()
	d := NewDispatcher(reg, SimplePolicy{}, nil)

	slow := mocks.NewMockSignalConnection(ctrl)
	slow.EXPECT().TrySend(gomock.Any()).Return(errors.New("backpressure"))
	// No Close expected: gomock fails the test if it is called
	reg.Connect("slow", core.NewMemberSession(bob, slow), nil)

	res := d.Publish(core.Event{Type: core.EventUserTyping, Audience: core.AudienceRoomOthers, Room: domain.DefaultRoomID, From: "other"})
	req.Len(res.Dropped, 1)
}
