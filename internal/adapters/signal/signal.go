package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/auth"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/idgen"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const (
	DefaultReadLimit  = 32768
	DefaultPingPeriod = 54 * time.Second
	DefaultSendBuffer = 64
	writeWait         = 5 * time.Second
)

type Options struct {
	ReadLimit      int64
	PingPeriod     time.Duration
	SendBuffer     int
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = DefaultReadLimit
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = DefaultPingPeriod
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = DefaultSendBuffer
	}
	return o
}

// pongWait must exceed PingPeriod so a healthy peer always answers in time.
func (o Options) pongWait() time.Duration {
	return o.PingPeriod * 10 / 9
}

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Verifier auth.Verifier
	Limiter  *UserRateLimiter
	Metrics  *metrics.Metrics

	opts     Options
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, v auth.Verifier, l *UserRateLimiter, m *metrics.Metrics, opts Options) *SignalWSController {
	opts = opts.withDefaults()
	ctl := &SignalWSController{Orch: o, Verifier: v, Limiter: l, Metrics: m, opts: opts}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: ctl.checkOrigin}
	return ctl
}

func (ctl *SignalWSController) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(ctl.opts.AllowedOrigins) == 0 {
		return true
	}
	return lo.Contains(ctl.opts.AllowedOrigins, origin)
}

// WsSignalConn is the core.SignalConnection of one websocket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal authenticates the handshake, upgrades it and starts the pumps.
// Authentication failures are answered with 401 before the upgrade.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	user, err := ctl.resolveUser(c)
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("remote", c.ClientIP()).Msg("ws auth refused")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authError(err)})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	sid := core.SessionID(idgen.NewSessionID())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	if !ctl.Orch.Connect(sid, core.NewMemberSession(user, conn), cancel) {
		cancel()
		conn.Close()
		return
	}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, user, conn)
}
