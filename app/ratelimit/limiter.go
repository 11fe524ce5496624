package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	// Effective interval never exceeds maxMultiplier times the base.
	maxMultiplier = 8.0
	// Consecutive successes before the backoff multiplier decays.
	decayAfterSuccesses = 3
)

// Limiter enforces a minimum, jittered interval between requests to the
// same domain. Independent domains never contend: the shared map lock is
// held only to look up the per-domain state, and all waiting happens
// against a reserved slot outside any lock.
type Limiter struct {
	base   time.Duration
	jitter float64

	mu      sync.Mutex
	domains map[string]*domainState
}

type domainState struct {
	mu            sync.Mutex
	next          time.Time
	seen          bool
	multiplier    float64
	successStreak int
}

func NewLimiter(base time.Duration, jitter float64) *Limiter {
	return &Limiter{
		base:    base,
		jitter:  jitter,
		domains: make(map[string]*domainState),
	}
}

// Acquire blocks until a request slot for the domain is safe to use, or
// the context is canceled. The first acquire for an unknown domain is
// granted immediately.
func (l *Limiter) Acquire(ctx context.Context, domain string) error {
	st := l.state(domain)

	st.mu.Lock()
	now := time.Now()
	var grant time.Time
	if !st.seen || !st.next.After(now) {
		grant = now
	} else {
		grant = st.next
	}
	st.seen = true
	st.next = grant.Add(l.interval(st.multiplier))
	st.mu.Unlock()

	wait := time.Until(grant)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReportFailure doubles the domain's effective interval, capped at
// maxMultiplier times the base.
func (l *Limiter) ReportFailure(domain string) {
	st := l.state(domain)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.successStreak = 0
	st.multiplier *= 2
	if st.multiplier > maxMultiplier {
		st.multiplier = maxMultiplier
	}
}

// ReportSuccess decays the backoff multiplier toward the base after a run
// of consecutive successes.
func (l *Limiter) ReportSuccess(domain string) {
	st := l.state(domain)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.successStreak++
	if st.successStreak < decayAfterSuccesses {
		return
	}
	st.successStreak = 0
	st.multiplier /= 2
	if st.multiplier < 1 {
		st.multiplier = 1
	}
}

// Interval returns the domain's current un-jittered interval. Exposed for
// the end-of-run summary.
func (l *Limiter) Interval(domain string) time.Duration {
	st := l.state(domain)

	st.mu.Lock()
	defer st.mu.Unlock()
	return time.Duration(float64(l.base) * st.multiplier)
}

func (l *Limiter) state(domain string) *domainState {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.domains[domain]
	if !ok {
		st = &domainState{multiplier: 1}
		l.domains[domain] = st
	}
	return st
}

func (l *Limiter) interval(multiplier float64) time.Duration {
	scale := 1 + l.jitter*(2*rand.Float64()-1)
	return time.Duration(float64(l.base) * multiplier * scale)
}
