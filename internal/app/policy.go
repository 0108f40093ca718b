package app

import "github.com/dkeye/Chat/internal/core"

type BackpressureAction int

const (
	KickMember BackpressureAction = iota
	DropFrame
)

// Policy decides what happens to a session whose send buffer is full.
type Policy interface {
	OnBackPressure(sid core.SessionID, evt core.Event) BackpressureAction
}

// SimplePolicy kicks slow members so they reconnect and refetch history.
// Typing signals are transient and only get dropped.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ core.SessionID, evt core.Event) BackpressureAction {
	if evt.Type == core.EventUserTyping {
		return DropFrame
	}
	return KickMember
}
