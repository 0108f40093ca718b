package signal

import "github.com/dkeye/Chat/internal/core"

func (ctl *SignalWSController) handlePing(sid core.SessionID) {
	ctl.Orch.Pong(sid)
}
