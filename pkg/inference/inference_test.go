package inference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stub struct {
	ready  bool
	answer string
	ok     bool

	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (s *stub) Ready() bool { return s.ready }

func (s *stub) Predict(_ context.Context, text string) (string, bool) {
	if s.inFlight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.inFlight.Add(-1)
	time.Sleep(time.Millisecond)
	return s.answer, s.ok
}

func TestNop(t *testing.T) {
	var p Predictor = Nop{}
	assert.False(t, p.Ready())
	out, ok := p.Predict(context.Background(), "texto")
	assert.False(t, ok)
	assert.Empty(t, out)
}

func TestGuardedFiltersAnswers(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		s    *stub
		want string
		ok   bool
	}{
		{"not ready", &stub{ready: false, answer: "x", ok: true}, "", false},
		{"no answer", &stub{ready: true, ok: false}, "", false},
		{"empty answer", &stub{ready: true, answer: "", ok: true}, "", false},
		{"unchanged", &stub{ready: true, answer: "eu vou", ok: true}, "", false},
		{"rewrite", &stub{ready: true, answer: "eu vou lá", ok: true}, "eu vou lá", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := Guard(tt.s).Predict(ctx, "eu vou")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestGuardNilAndIdempotent(t *testing.T) {
	g := Guard(nil)
	assert.False(t, g.Ready())
	assert.Same(t, g, Guard(g))
}

func TestGuardedSerialises(t *testing.T) {
	s := &stub{ready: true, answer: "b", ok: true}
	g := Guard(s)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Predict(context.Background(), "a")
		}()
	}
	wg.Wait()
	assert.False(t, s.overlap.Load(), "backend was entered concurrently")
}

type blockingStub struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingStub) Ready() bool { return true }

func (b *blockingStub) Predict(context.Context, string) (string, bool) {
	close(b.started)
	<-b.release
	return "", false
}

func TestGuardedReadyDoesNotWaitForPredict(t *testing.T) {
	b := &blockingStub{started: make(chan struct{}), release: make(chan struct{})}
	g := Guard(b)
	defer close(b.release)

	go g.Predict(context.Background(), "texto")
	<-b.started

	done := make(chan bool, 1)
	go func() { done <- g.Ready() }()
	select {
	case ready := <-done:
		assert.True(t, ready)
	case <-time.After(time.Second):
		t.Fatal("Ready blocked while Predict was running")
	}
}

func TestGuardedReadyTracksBackend(t *testing.T) {
	s := &stub{ready: true}
	g := Guard(s)
	assert.True(t, g.Ready())

	s.ready = false
	g.Predict(context.Background(), "a")
	assert.False(t, g.Ready())
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(content), 0o644))
	return dir
}

func TestLoadManifest(t *testing.T) {
	t.Setenv("REVISA_TEST_KEY", "segredo")
	dir := writeManifest(t, `
backend = "OpenAI"
base_url = "http://127.0.0.1:8080/v1"
model = "corretor"
api_key_env = "REVISA_TEST_KEY"
min_similarity = 0.75
`)
	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", m.Backend)
	assert.Equal(t, "corretor", m.Model)
	assert.Equal(t, 0.75, m.MinSimilarity)
	assert.Equal(t, "segredo", m.APIKey())
	assert.Equal(t, dir, m.Dir)
}

func TestLoadManifestErrors(t *testing.T) {
	_, err := LoadManifest("")
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = LoadManifest(t.TempDir())
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = LoadManifest(writeManifest(t, `model = "x"`))
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = LoadManifest(writeManifest(t, `backend = `))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoModel))
}

func TestOpen(t *testing.T) {
	s := &stub{ready: true, answer: "ok", ok: true}
	Register("stub-open-test", func(m Manifest) (Predictor, error) {
		if m.Model == "broken" {
			return nil, errors.New("boom")
		}
		return s, nil
	})
	assert.Contains(t, Backends(), "stub-open-test")

	p, err := Open(writeManifest(t, `backend = "stub-open-test"`))
	require.NoError(t, err)
	assert.Same(t, s, p)

	_, err = Open(writeManifest(t, "backend = \"stub-open-test\"\nmodel = \"broken\""))
	assert.Error(t, err)

	_, err = Open(writeManifest(t, `backend = "missing"`))
	assert.ErrorIs(t, err, ErrNoModel)

	assert.Panics(t, func() { Register("stub-open-test", func(Manifest) (Predictor, error) { return nil, nil }) })
}
