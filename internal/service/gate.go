package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/omarshaarawi/bracketbot/internal/metrics"
)

var ErrRequestInFlight = errors.New("request already in flight")

type RequestState string

const (
	StateIdle     RequestState = "idle"
	StateInFlight RequestState = "in-flight"
	StateFailed   RequestState = "failed"
)

// GateStatus is a snapshot of a RequestGate.
type GateStatus struct {
	State     RequestState
	Err       error
	StartedAt time.Time
}

// RequestGate lets one dispatch of an action run at a time. Acquire fails fast
// while the action is in flight; after a failure the next Acquire is allowed.
type RequestGate struct {
	action    string
	mu        sync.Mutex
	state     RequestState
	err       error
	startedAt time.Time
}

func NewRequestGate(action string) *RequestGate {
	return &RequestGate{action: action, state: StateIdle}
}

func (g *RequestGate) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateInFlight {
		metrics.ObserveGateRejection(g.action)
		return ErrRequestInFlight
	}
	g.state = StateInFlight
	g.err = nil
	g.startedAt = time.Now()
	return nil
}

// Release records the outcome of the dispatch started by Acquire.
func (g *RequestGate) Release(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.state = StateFailed
		g.err = err
		return
	}
	g.state = StateIdle
	g.err = nil
}

// Run wraps fn in Acquire/Release. A panic in fn marks the gate failed
// before it propagates.
func (g *RequestGate) Run(fn func() error) (err error) {
	if err := g.Acquire(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			g.Release(fmt.Errorf("%s panicked: %v", g.action, r))
			panic(r)
		}
		g.Release(err)
	}()
	return fn()
}

func (g *RequestGate) Status() GateStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GateStatus{State: g.state, Err: g.err, StartedAt: g.startedAt}
}
