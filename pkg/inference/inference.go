// Package inference is the boundary to the optional slow correction backend.
//
// A backend is only reached through Predictor. Failures never surface as
// errors on the correction path: a backend that cannot answer reports "no
// suggestion" and the caller keeps the text it already has.
package inference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNoModel means the model directory does not describe a usable backend.
var ErrNoModel = errors.New("no inference model")

// Predictor is the external inference engine contract.
type Predictor interface {
	// Ready reports whether the backend can answer at all.
	Ready() bool
	// Predict returns a rewrite of text. ok is false when the backend is
	// unavailable, failed, or had nothing different to offer.
	Predict(ctx context.Context, text string) (string, bool)
}

// Nop never has a suggestion.
type Nop struct{}

func (Nop) Ready() bool { return false }

func (Nop) Predict(context.Context, string) (string, bool) { return "", false }

// Guarded serialises calls to a backend that is not safe for concurrent use.
// Share one Guarded between every consumer of the same backend.
type Guarded struct {
	mu sync.Mutex
	p  Predictor

	// ready mirrors p.Ready so callers never wait behind a running Predict.
	ready atomic.Bool
}

// Guard wraps p. A nil p behaves like Nop.
func Guard(p Predictor) *Guarded {
	if p == nil {
		p = Nop{}
	}
	if g, ok := p.(*Guarded); ok {
		return g
	}
	g := &Guarded{p: p}
	g.ready.Store(p.Ready())
	return g
}

// Ready reports the readiness seen when the guard was built or after the
// last Predict. It does not take the lock.
func (g *Guarded) Ready() bool {
	return g.ready.Load()
}

// Predict holds the lock for the whole call. Empty and unchanged answers are
// reported as no suggestion.
func (g *Guarded) Predict(ctx context.Context, text string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.p.Ready() {
		g.ready.Store(false)
		return "", false
	}
	out, ok := g.p.Predict(ctx, text)
	g.ready.Store(g.p.Ready())
	if !ok || out == "" || out == text {
		return "", false
	}
	return out, true
}
