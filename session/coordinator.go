package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/problem-hunt/huntkit/core"
)

// RefreshFunc performs one actual refresh against the identity provider,
// including any persistence and failure side effects that must happen exactly
// once per attempt.
type RefreshFunc func(ctx context.Context, requestID, reason string) (*core.Session, error)

// attempt is one in-flight refresh. Waiters select on done; sess and err are
// written once, before done is closed.
type attempt struct {
	requestID string
	reason    string
	done      chan struct{}
	sess      *core.Session
	err       error
}

// Coordinator collapses concurrent refresh requests into a single underlying
// attempt. Every caller that overlaps an attempt observes the same session or
// the same error, and no duplicate refresh calls are issued while one is in
// flight.
type Coordinator struct {
	refresh RefreshFunc
	log     zerolog.Logger

	mu      sync.Mutex
	current *attempt
}

// NewCoordinator creates a coordinator around the given refresh operation.
func NewCoordinator(refresh RefreshFunc, logger *zerolog.Logger) *Coordinator {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	return &Coordinator{refresh: refresh, log: log}
}

// Run waits for the in-flight refresh attempt, starting one if none is
// running. The reason tag is recorded on the attempt for trace correlation
// only; joiners keep the original attempt's reason.
//
// A caller whose ctx expires stops waiting, but the attempt keeps running and
// still settles shared state for everyone else.
func (c *Coordinator) Run(ctx context.Context, reason string) (*core.Session, error) {
	c.mu.Lock()
	a := c.current
	if a == nil {
		a = &attempt{
			requestID: uuid.New().String(),
			reason:    reason,
			done:      make(chan struct{}),
		}
		c.current = a
		go c.execute(a)
	} else {
		c.log.Debug().
			Str("request_id", a.requestID).
			Str("reason", reason).
			Msg("joining in-flight refresh")
	}
	c.mu.Unlock()

	select {
	case <-a.done:
		return a.sess, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) execute(a *attempt) {
	// The slot must be cleared however the attempt ends, otherwise a failed
	// refresh would wedge the coordinator into "refresh still running".
	defer func() {
		c.mu.Lock()
		c.current = nil
		c.mu.Unlock()
		close(a.done)
	}()

	c.log.Debug().
		Str("request_id", a.requestID).
		Str("reason", a.reason).
		Msg("refresh started")

	// Detached from any single caller: a waiter that gives up must not
	// cancel the refresh for everyone else.
	a.sess, a.err = c.refresh(context.Background(), a.requestID, a.reason)

	if a.err != nil {
		c.log.Warn().
			Str("request_id", a.requestID).
			Err(a.err).
			Msg("refresh failed")
		return
	}
	c.log.Debug().
		Str("request_id", a.requestID).
		Msg("refresh succeeded")
}
