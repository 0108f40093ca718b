package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// inbound is the envelope of every client frame.
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// decode reads a payload into out and validates its tags. A missing payload reads as {}.
func decode[T any](raw json.RawMessage, out *T) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return err
	}
	return validate.Struct(out)
}

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, user domain.User, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.Orch.OnDisconnect(sid)
	}()

	pongWait := ctl.opts.pongWait()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(sid, user, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, user domain.User, data []byte) {
	var env inbound
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.Orch.ReportError(sid, "unknown", orch.CodeBadPayload)
		return
	}
	if !ctl.Limiter.Allow(user.ID) {
		ctl.Metrics.RateLimited("ws")
		ctl.Orch.ReportError(sid, env.Type, orch.CodeRateLimited)
		return
	}

	switch env.Type {
	case "join_room":
		ctl.handleJoin(sid, env)
	case "leave_room":
		ctl.handleLeave(sid, env)
	case "user_typing":
		ctl.handleTyping(sid, env)
	case "message":
		ctl.handleMessage(sid, env)
	case "react_message":
		ctl.handleReact(sid, env)
	case "message_seen":
		ctl.handleSeen(sid, env)
	case "edit_message":
		ctl.handleEdit(sid, env)
	case "delete_message":
		ctl.handleDelete(sid, env)
	case "ping":
		ctl.handlePing(sid)
	case "whoami":
		ctl.handleWhoAmI(sid)
	default:
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) badPayload(sid core.SessionID, env inbound, err error) {
	log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("type", env.Type).Msg("bad payload")
	ctl.Orch.ReportError(sid, env.Type, orch.CodeBadPayload)
}
