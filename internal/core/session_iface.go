//go:generate go run go.uber.org/mock/mockgen -source=session_iface.go -destination=../mocks/mock_session.go -package=mocks
package core

import "github.com/dkeye/Chat/internal/domain"

// Frame is one encoded outbound event.
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: a full buffer is reported as an error.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds an identity and its transport endpoint.
// This is what the registry stores and the dispatcher fans out to.
type MemberSession interface {
	User() domain.User
	Signal() SignalConnection
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}
