// Package coretest provides in-memory transport endpoints for tests.
package coretest

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/Chat/internal/core"
)

var (
	ErrFull   = errors.New("buffer full")
	ErrClosed = errors.New("connection closed")
)

// Conn is a core.SignalConnection that records frames up to a capacity.
type Conn struct {
	mu     sync.Mutex
	cap    int
	frames []core.Frame
	closed bool
}

// NewConn returns a Conn holding at most capacity frames; 0 means unbounded.
func NewConn(capacity int) *Conn {
	return &Conn{cap: capacity}
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.cap > 0 && len(c.frames) >= c.cap {
		return ErrFull
	}
	c.frames = append(c.frames, append(core.Frame(nil), f...))
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Frame is a decoded envelope with the payload left raw.
type Frame struct {
	Type    core.EventType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Frames decodes everything received so far.
func (c *Conn) Frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f Frame
		if err := json.Unmarshal(raw, &f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// Types lists the event types received so far, in order.
func (c *Conn) Types() []core.EventType {
	frames := c.Frames()
	out := make([]core.EventType, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Type)
	}
	return out
}

// Reset forgets received frames.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}
