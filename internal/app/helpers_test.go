package app

import (
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/core/coretest"
	"github.com/dkeye/Chat/internal/domain"
)

var (
	alice = domain.User{ID: "u-alice", Username: "alice"}
	bob   = domain.User{ID: "u-bob", Username: "bob"}
	admin = domain.User{ID: "u-admin", Username: "admin", IsAdmin: true}
)

func connect(reg *Registry, sid core.SessionID, user domain.User) *coretest.Conn {
	conn := coretest.NewConn(0)
	reg.Connect(sid, core.NewMemberSession(user, conn), nil)
	return conn
}

func textDraft(content string) domain.Draft {
	return domain.Draft{Type: domain.TypeText, Content: content}
}
