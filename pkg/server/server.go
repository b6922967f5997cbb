package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/revisa/internal/logger"
	"github.com/bastiangx/revisa/internal/utils"
	"github.com/bastiangx/revisa/pkg/correct"
	"github.com/bastiangx/revisa/pkg/dictionary"
	"github.com/bastiangx/revisa/pkg/escalate"
	"github.com/bastiangx/revisa/pkg/phonetic"
)

const (
	defaultLimit = 10
	maxLimit     = 64
)

// Escalator is the slow path as seen by the server.
type Escalator interface {
	RequestCorrection(text string, contextID uint32) error
	Ready() bool
	Pending() int
}

// WordStore persists words added over IPC.
type WordStore interface {
	Add(word string) (bool, error)
}

// Recorder receives one observation per handled request.
type Recorder interface {
	RecordRequest(action string, ok bool, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, bool, time.Duration) {}

// Server handles the IPC for corrections
type Server struct {
	engine         correct.Corrector
	escalator      Escalator
	store          WordStore
	aggressiveness int

	reader io.Reader

	// mu serialises frames: request handling and the escalation pump share
	// the writer.
	mu  sync.Mutex
	w   *bufio.Writer
	enc *msgpack.Encoder

	logger   *log.Logger
	recorder Recorder
}

// Option configures a Server.
type Option func(*Server)

// WithEscalator enables the "escalate" action.
func WithEscalator(e Escalator) Option {
	return func(s *Server) { s.escalator = e }
}

// WithWordStore persists words added with "add_word".
func WithWordStore(ws WordStore) Option {
	return func(s *Server) { s.store = ws }
}

// WithAggressiveness sets the default for requests that carry none.
func WithAggressiveness(n int) Option {
	return func(s *Server) { s.aggressiveness = n }
}

// WithIO replaces stdin and stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.reader = r
		s.w = bufio.NewWriter(w)
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewServer creates a server on stdin/stdout.
func NewServer(engine correct.Corrector, opts ...Option) *Server {
	s := &Server{
		engine:         engine,
		aggressiveness: 1,
		reader:         os.Stdin,
		w:              bufio.NewWriter(os.Stdout),
		logger:         logger.New("server"),
		recorder:       nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.enc = msgpack.NewEncoder(s.w)
	return s
}

// Start reads requests until EOF, which ends the session cleanly. The context
// is checked between requests; a read already blocked on input is only
// released by closing the input.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting Server.")
	s.send(s.health(""))

	dec := msgpack.NewDecoder(bufio.NewReader(s.reader))
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		raw, err := dec.DecodeRaw()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Debug("Input closed, stopping")
				return nil
			}
			s.logger.Errorf("Reading request: %v", err)
			return fmt.Errorf("read request: %w", err)
		}
		s.handleRaw(raw)
	}
}

// ForwardEscalations writes escalation results as they arrive until the
// channel is closed or ctx is done.
func (s *Server) ForwardEscalations(ctx context.Context, results <-chan escalate.Response) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-results:
			if !ok {
				return nil
			}
			s.send(EscalationResult{Context: r.ContextID, Original: r.Original, Corrected: r.Corrected})
		}
	}
}

func (s *Server) handleRaw(raw msgpack.RawMessage) {
	var req Request
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		s.logger.Errorf("Unmarshaling request: %v", err)
		s.sendError("", "invalid request", CodeBadRequest)
		return
	}

	start := time.Now()
	resp, ok := s.handle(req)
	s.recorder.RecordRequest(req.Action, ok, time.Since(start))
	s.send(resp)
}

// handle dispatches one request and reports whether it succeeded.
func (s *Server) handle(req Request) (any, bool) {
	switch req.Action {
	case "correct":
		return s.handleCorrect(req)
	case "escalate":
		return s.handleEscalate(req)
	case "add_word":
		return s.handleAddWord(req)
	case "complete":
		return s.handleComplete(req)
	case "variants":
		return s.handleVariants(req)
	case "health":
		return s.health(req.ID), true
	default:
		return errorResponse(req.ID, fmt.Sprintf("unknown action: %q", req.Action), CodeBadRequest), false
	}
}

func (s *Server) agg(req Request) int {
	if req.Aggressiveness != nil {
		return *req.Aggressiveness
	}
	return s.aggressiveness
}

func (s *Server) handleCorrect(req Request) (any, bool) {
	start := time.Now()
	switch {
	case req.Text != "":
		out := s.engine.CorrectText(req.Text, s.agg(req))
		return CorrectionResponse{
			ID:        req.ID,
			Original:  req.Text,
			Corrected: out,
			TimeTaken: time.Since(start).Microseconds(),
		}, true
	case strings.TrimSpace(req.Word) != "":
		res := s.engine.Explain(strings.TrimSpace(req.Word), s.agg(req))
		return CorrectionResponse{
			ID:        req.ID,
			Original:  res.Original,
			Corrected: res.Corrected,
			Stage:     string(res.Stage),
			TimeTaken: time.Since(start).Microseconds(),
		}, true
	default:
		return errorResponse(req.ID, "missing 'w' or 'text'", CodeBadRequest), false
	}
}

func (s *Server) handleEscalate(req Request) (any, bool) {
	if s.escalator == nil {
		return errorResponse(req.ID, "escalation is disabled", CodeUnavailable), false
	}
	if strings.TrimSpace(req.Text) == "" {
		return errorResponse(req.ID, "missing 'text'", CodeBadRequest), false
	}
	switch err := s.escalator.RequestCorrection(req.Text, req.Context); {
	case err == nil:
		return StatusResponse{ID: req.ID, Status: "queued"}, true
	case errors.Is(err, escalate.ErrQueueFull):
		return errorResponse(req.ID, err.Error(), CodeQueueFull), false
	default:
		return errorResponse(req.ID, err.Error(), CodeUnavailable), false
	}
}

func (s *Server) handleAddWord(req Request) (any, bool) {
	word := strings.TrimSpace(req.Word)
	if word == "" || strings.ContainsAny(word, " \t\n") {
		return errorResponse(req.ID, "'w' must be a single word", CodeBadRequest), false
	}
	added := s.engine.AddWord(word)
	if s.store != nil {
		if _, err := s.store.Add(word); err != nil {
			s.logger.Errorf("Persisting %q: %v", word, err)
			return errorResponse(req.ID, "word added but not persisted", CodeInternal), false
		}
	}
	return StatusResponse{ID: req.ID, Status: "ok", Added: &added}, true
}

func (s *Server) handleComplete(req Request) (any, bool) {
	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" {
		return errorResponse(req.ID, "missing 'p'", CodeBadRequest), false
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	start := time.Now()
	var entries []dictionary.FrequencyEntry
	if utils.IsValidInput(prefix) {
		entries = s.engine.Complete(prefix, limit)
	}
	ranks := utils.CreateRankList(len(entries))
	suggestions := make([]CompletionSuggestion, len(entries))
	for i, e := range entries {
		suggestions[i] = CompletionSuggestion{Word: e.Word, Rank: ranks[i], Frequency: e.Score}
	}
	return CompletionResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	}, true
}

func (s *Server) handleVariants(req Request) (any, bool) {
	word := dictionary.Fold(strings.TrimSpace(req.Word))
	if word == "" {
		return errorResponse(req.ID, "missing 'w'", CodeBadRequest), false
	}
	variants := phonetic.GenerateVariants(word)
	return VariantsResponse{
		ID:       req.ID,
		Key:      phonetic.Normalize(word),
		Variants: variants,
		Count:    len(variants),
	}, true
}

func (s *Server) health(id string) HealthResponse {
	resp := HealthResponse{ID: id, Status: "ok", Stats: s.engine.Stats()}
	if id == "" {
		resp.Status = "ready"
	}
	if s.escalator != nil {
		resp.Inference = s.escalator.Ready()
		resp.Pending = s.escalator.Pending()
	}
	return resp
}

func errorResponse(id, message string, code int) ErrorResponse {
	return ErrorResponse{ID: id, Error: message, Code: code}
}

// send encodes one frame and flushes it.
func (s *Server) send(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		s.logger.Errorf("Marshaling response: %v", err)
		return
	}
	if err := s.w.Flush(); err != nil {
		s.logger.Errorf("Writing response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.send(errorResponse(id, message, code))
}
