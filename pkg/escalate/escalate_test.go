package escalate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPredictor struct {
	mu     sync.Mutex
	calls  []string
	answer func(string) (string, bool)
	block  chan struct{}
}

func (s *stubPredictor) Ready() bool { return true }

func (s *stubPredictor) Predict(_ context.Context, text string) (string, bool) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	if s.answer == nil {
		return "", false
	}
	return s.answer(text)
}

func (s *stubPredictor) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type recorder struct {
	mu         sync.Mutex
	outcomes   []string
	rejections []string
}

func (r *recorder) RecordEscalation(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorder) RecordRejection(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejections = append(r.rejections, reason)
}

func receive(t *testing.T, ch <-chan Response) Response {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no response")
		return Response{}
	}
}

func TestUnchangedTextAfterDebounce(t *testing.T) {
	responses := make(chan Response, 1)
	stub := &stubPredictor{}
	e := New(responses, "", WithPredictor(stub))
	defer e.Close()

	start := time.Now()
	require.NoError(t, e.RequestCorrection("eu vou la", 7))
	resp := receive(t, responses)

	assert.GreaterOrEqual(t, time.Since(start), DefaultDebounce)
	assert.Equal(t, Response{Original: "eu vou la", Corrected: "eu vou la", ContextID: 7}, resp)
	assert.Equal(t, []string{"eu vou la"}, stub.seen())
}

func TestInferenceAnswerIsAdopted(t *testing.T) {
	responses := make(chan Response, 1)
	rec := &recorder{}
	stub := &stubPredictor{answer: func(s string) (string, bool) { return strings.ReplaceAll(s, "la", "lá"), true }}
	e := New(responses, "", WithPredictor(stub), WithDebounce(0), WithRecorder(rec))
	defer e.Close()

	require.NoError(t, e.RequestCorrection("eu vou la", 1))
	assert.Equal(t, "eu vou lá", receive(t, responses).Corrected)
	assert.True(t, e.Ready())

	e.Close()
	assert.Equal(t, []string{"inference"}, rec.outcomes)
}

func TestLocalPassSkipsInference(t *testing.T) {
	responses := make(chan Response, 2)
	rec := &recorder{}
	stub := &stubPredictor{}
	e := New(responses, "",
		WithPredictor(stub),
		WithDebounce(0),
		WithRecorder(rec),
		WithLocalPass(func(s string) string { return strings.ReplaceAll(s, "vc", "você") }),
	)

	require.NoError(t, e.RequestCorrection("vc vem", 1))
	require.NoError(t, e.RequestCorrection("eu vou", 2))
	assert.Equal(t, Response{Original: "vc vem", Corrected: "você vem", ContextID: 1}, receive(t, responses))
	assert.Equal(t, Response{Original: "eu vou", Corrected: "eu vou", ContextID: 2}, receive(t, responses))
	e.Close()

	assert.Equal(t, []string{"eu vou"}, stub.seen())
	assert.Equal(t, []string{"local", "unchanged"}, rec.outcomes)
}

func TestResponsesKeepArrivalOrder(t *testing.T) {
	responses := make(chan Response, 50)
	e := New(responses, "", WithPredictor(&stubPredictor{}), WithDebounce(time.Millisecond))

	for i := 0; i < 50; i++ {
		require.NoError(t, e.RequestCorrection(fmt.Sprintf("t%d", i), uint32(i)))
	}
	e.Close()
	close(responses)

	i := 0
	for r := range responses {
		assert.Equal(t, uint32(i), r.ContextID)
		assert.Equal(t, fmt.Sprintf("t%d", i), r.Original)
		i++
	}
	assert.Equal(t, 50, i)
}

func TestQueueFullRejects(t *testing.T) {
	responses := make(chan Response, 10)
	rec := &recorder{}
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	local := func(s string) string {
		if s == "first" {
			started <- struct{}{}
			<-release
		}
		return s
	}
	e := New(responses, "",
		WithPredictor(&stubPredictor{}),
		WithDebounce(0),
		WithQueueSize(2),
		WithLocalPass(local),
		WithRecorder(rec),
	)

	require.NoError(t, e.RequestCorrection("first", 0))
	<-started
	require.NoError(t, e.RequestCorrection("second", 1))
	require.NoError(t, e.RequestCorrection("third", 2))
	assert.Equal(t, 2, e.Pending())
	assert.ErrorIs(t, e.RequestCorrection("fourth", 3), ErrQueueFull)

	close(release)
	for i := 0; i < 3; i++ {
		assert.Equal(t, uint32(i), receive(t, responses).ContextID)
	}
	e.Close()
	assert.Equal(t, []string{"full"}, rec.rejections)
}

func TestClosedRejects(t *testing.T) {
	responses := make(chan Response, 1)
	e := New(responses, "", WithDebounce(0))
	e.Close()
	e.Close()
	assert.ErrorIs(t, e.RequestCorrection("x", 1), ErrClosed)
}

func TestCloseAnswersQueuedRequests(t *testing.T) {
	responses := make(chan Response, 3)
	e := New(responses, "", WithDebounce(5*time.Millisecond))
	for i := 0; i < 3; i++ {
		require.NoError(t, e.RequestCorrection("x", uint32(i)))
	}
	e.Close()
	assert.Len(t, responses, 3)
}

func TestInferenceTimeout(t *testing.T) {
	responses := make(chan Response, 1)
	rec := &recorder{}
	stub := &stubPredictor{
		block:  make(chan struct{}),
		answer: func(string) (string, bool) { return "tarde demais", true },
	}
	e := New(responses, "",
		WithPredictor(stub),
		WithDebounce(0),
		WithInferenceTimeout(20*time.Millisecond),
		WithRecorder(rec),
	)

	start := time.Now()
	require.NoError(t, e.RequestCorrection("agora", 9))
	resp := receive(t, responses)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "agora", resp.Corrected)

	close(stub.block)
	e.Close()
	assert.Equal(t, []string{"timeout"}, rec.outcomes)
}

func TestMissingModelDirDisablesInference(t *testing.T) {
	responses := make(chan Response, 1)
	e := New(responses, t.TempDir(), WithDebounce(0))
	defer e.Close()

	assert.False(t, e.Ready())
	require.NoError(t, e.RequestCorrection("texto", 3))
	assert.Equal(t, "texto", receive(t, responses).Corrected)
}

func TestConcurrentProducers(t *testing.T) {
	responses := make(chan Response, 1000)
	e := New(responses, "", WithDebounce(0), WithQueueSize(1000))

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if e.RequestCorrection("x", uint32(g*100+i)) == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}
		}(g)
	}
	wg.Wait()
	e.Close()
	assert.Equal(t, accepted, len(responses))
	assert.Equal(t, 500, accepted)
}

func TestReadyWhileInferenceRuns(t *testing.T) {
	responses := make(chan Response, 1)
	stub := &stubPredictor{block: make(chan struct{})}
	e := New(responses, "", WithPredictor(stub), WithDebounce(0))

	require.NoError(t, e.RequestCorrection("eu vou la", 1))
	require.Eventually(t, func() bool { return len(stub.seen()) == 1 }, 2*time.Second, time.Millisecond)

	done := make(chan bool, 1)
	go func() { done <- e.Ready() }()
	select {
	case ready := <-done:
		assert.True(t, ready)
	case <-time.After(time.Second):
		t.Fatal("Ready blocked behind a running inference call")
	}

	close(stub.block)
	receive(t, responses)
	e.Close()
}
