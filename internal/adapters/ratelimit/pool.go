// Package ratelimit keeps one token bucket per key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultRPS   = 5
	DefaultBurst = 10
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Pool hands out a limiter per key and forgets keys idle for longer than ttl.
type Pool struct {
	mu    sync.Mutex
	m     map[string]*entry
	rps   rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time
}

func NewPool(rps float64, burst int, ttl time.Duration) *Pool {
	if rps <= 0 {
		rps = DefaultRPS
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Pool{
		m:     make(map[string]*entry),
		rps:   rate.Limit(rps),
		burst: burst,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (p *Pool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if e, ok := p.m[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	l := rate.NewLimiter(p.rps, p.burst)
	p.m[key] = &entry{limiter: l, lastSeen: now}
	return l
}

func (p *Pool) Allow(key string) bool {
	return p.get(key).AllowN(p.now(), 1)
}

// Sweep drops limiters not used within ttl and returns how many were removed.
func (p *Pool) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-p.ttl)
	removed := 0
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
			removed++
		}
	}
	return removed
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
