// Package escalate is the slow path behind the correction engine. Requests go
// through a bounded queue to a single worker that waits out a debounce
// interval, runs a local rule pass and, when that changes nothing, asks the
// inference backend. Responses come out in request order.
package escalate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/revisa/internal/logger"
	"github.com/bastiangx/revisa/pkg/inference"
)

const (
	DefaultQueueSize = 100
	DefaultDebounce  = 150 * time.Millisecond
)

var (
	// ErrQueueFull is returned while the queue is at capacity.
	ErrQueueFull = errors.New("escalation queue is full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("escalator is closed")
)

// Request is one submission.
type Request struct {
	Text      string
	ContextID uint32
}

// Response pairs the submitted text with the final text. ContextID is the
// caller's token, passed through untouched.
type Response struct {
	Original  string
	Corrected string
	ContextID uint32
}

// Outcome names how a response was produced.
type Outcome string

const (
	OutcomeLocal     Outcome = "local"
	OutcomeInference Outcome = "inference"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeTimeout   Outcome = "timeout"
)

// Recorder receives escalation metrics.
type Recorder interface {
	RecordEscalation(outcome string, inference time.Duration)
	RecordRejection(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEscalation(string, time.Duration) {}
func (nopRecorder) RecordRejection(string)                 {}

// Escalator owns the queue and its single worker.
type Escalator struct {
	queue     chan Request
	responses chan<- Response

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	predictor inference.Predictor
	local     func(string) string
	debounce  time.Duration
	timeout   time.Duration
	queueSize int

	logger   *log.Logger
	recorder Recorder
}

// Option configures an Escalator.
type Option func(*Escalator)

// WithPredictor sets the backend directly instead of opening the model
// directory. Pass the same guarded predictor to every consumer of one backend.
func WithPredictor(p inference.Predictor) Option {
	return func(e *Escalator) { e.predictor = p }
}

// WithLocalPass sets the rule pass run before inference. The default is identity.
func WithLocalPass(f func(string) string) Option {
	return func(e *Escalator) {
		if f != nil {
			e.local = f
		}
	}
}

// WithDebounce sets the delay before each request is processed.
func WithDebounce(d time.Duration) Option {
	return func(e *Escalator) {
		if d >= 0 {
			e.debounce = d
		}
	}
}

// WithInferenceTimeout bounds each Predict call. Zero means no bound.
func WithInferenceTimeout(d time.Duration) Option {
	return func(e *Escalator) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(e *Escalator) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Escalator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Escalator) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New starts an escalator that writes to responses. When modelDir is not empty
// and no predictor was given, the backend described there is opened; failing
// to open it leaves the escalator working without inference.
func New(responses chan<- Response, modelDir string, opts ...Option) *Escalator {
	e := &Escalator{
		responses: responses,
		done:      make(chan struct{}),
		local:     func(s string) string { return s },
		debounce:  DefaultDebounce,
		queueSize: DefaultQueueSize,
		logger:    logger.New("escalate"),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.predictor == nil {
		e.predictor = inference.Nop{}
		if modelDir != "" {
			p, err := inference.Open(modelDir)
			if err != nil {
				e.logger.Warnf("Inference disabled: %v", err)
			} else {
				e.predictor = p
			}
		}
	}
	e.predictor = inference.Guard(e.predictor)

	e.queue = make(chan Request, e.queueSize)
	go e.run()
	return e
}

// RequestCorrection queues text without blocking. It fails with ErrQueueFull
// while the queue is at capacity and with ErrClosed after Close.
func (e *Escalator) RequestCorrection(text string, contextID uint32) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.recorder.RecordRejection("closed")
		return ErrClosed
	}
	select {
	case e.queue <- Request{Text: text, ContextID: contextID}:
		return nil
	default:
		e.recorder.RecordRejection("full")
		return ErrQueueFull
	}
}

// Ready reports whether an inference backend is available.
func (e *Escalator) Ready() bool {
	return e.predictor.Ready()
}

// Pending returns the number of queued requests.
func (e *Escalator) Pending() int {
	return len(e.queue)
}

// Close stops accepting requests and waits until the queued ones have been
// answered. The caller must keep draining responses until Close returns.
func (e *Escalator) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()
	<-e.done
}

func (e *Escalator) run() {
	defer close(e.done)
	for req := range e.queue {
		if e.debounce > 0 {
			time.Sleep(e.debounce)
		}
		e.responses <- e.process(req)
	}
}

func (e *Escalator) process(req Request) Response {
	resp := Response{Original: req.Text, Corrected: e.local(req.Text), ContextID: req.ContextID}
	if resp.Corrected != req.Text {
		e.recorder.RecordEscalation(string(OutcomeLocal), 0)
		return resp
	}

	start := time.Now()
	out, ok, timedOut := e.predict(req.Text)
	elapsed := time.Since(start)
	switch {
	case ok:
		resp.Corrected = out
		e.recorder.RecordEscalation(string(OutcomeInference), elapsed)
		e.logger.Debugf("ctx=%d inference %q -> %q in %s", req.ContextID, req.Text, out, elapsed)
	case timedOut:
		e.recorder.RecordEscalation(string(OutcomeTimeout), elapsed)
		e.logger.Warnf("ctx=%d inference gave up after %s", req.ContextID, elapsed)
	default:
		e.recorder.RecordEscalation(string(OutcomeUnchanged), elapsed)
	}
	return resp
}

// predict calls the backend, bounded by the inference timeout when one is set.
// A backend that ignores its context keeps running in the background; the
// guard makes later calls wait for it, each under its own bound.
func (e *Escalator) predict(text string) (out string, ok bool, timedOut bool) {
	if e.timeout <= 0 {
		out, ok = e.predictor.Predict(context.Background(), text)
		return out, ok, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	type answer struct {
		out string
		ok  bool
	}
	ch := make(chan answer, 1)
	go func() {
		out, ok := e.predictor.Predict(ctx, text)
		ch <- answer{out, ok}
	}()

	select {
	case a := <-ch:
		return a.out, a.ok, false
	case <-ctx.Done():
		return "", false, true
	}
}
