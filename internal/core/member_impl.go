package core

import "github.com/dkeye/Chat/internal/domain"

// memberSession implements MemberSession by pairing identity + transport.
type memberSession struct {
	user   domain.User
	signal SignalConnection
}

func NewMemberSession(user domain.User, signal SignalConnection) MemberSession {
	return &memberSession{user: user, signal: signal}
}

func (m *memberSession) User() domain.User        { return m.user }
func (m *memberSession) Signal() SignalConnection { return m.signal }
