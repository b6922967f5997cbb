//go:build test

package correct

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/revisa/pkg/dictionary"
	"github.com/bastiangx/revisa/pkg/typo"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

var memInputs = []string{
	"casa", "csaa", "cassa", "caza", "voce", "vc", "computaodr", "pao", "naum",
	"xato", "mesa", "meda", "exceção", "excessão", "Brasil", "BRASIL", "amanha",
}

func memEngine(cacheSize int) *Engine {
	e := New(WithTypoModel(typo.New()), WithCacheSize(cacheSize))
	var freq []dictionary.FrequencyEntry
	var words []string
	for i := 0; i < 2000; i++ {
		w := fmt.Sprintf("palavra%04d", i)
		freq = append(freq, dictionary.FrequencyEntry{Word: w, Score: uint32(50000 - i)})
		words = append(words, w)
	}
	words = append(words, "casa", "caça", "computador", "pão", "chato", "mesa", "exceção", "brasil")
	e.LoadFrequencyData(freq)
	e.LoadDictionary(words)
	return e
}

func heapAlloc() int64 {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc)
}

func TestMemoryStableAcrossIterations(t *testing.T) {
	for _, iterations := range []int{100, 1000, 5000} {
		t.Run(fmt.Sprintf("iterations_%d", iterations), func(t *testing.T) {
			e := memEngine(256)
			e.Correct("warmup", 1)
			baseline := heapAlloc()
			goroutines := runtime.NumGoroutine()

			for i := 0; i < iterations; i++ {
				for _, w := range memInputs {
					e.Correct(w, i%2)
					e.Correct(fmt.Sprintf("%s%d", w, i%512), 1)
				}
			}

			ops := iterations * len(memInputs) * 2
			perOp := float64(heapAlloc()-baseline) / float64(ops)
			t.Logf("ops=%d mem_per_op=%.2f cached=%d", ops, perOp, e.Stats()["cachedResults"])

			if perOp > 200 {
				t.Errorf("heap grows by %.2f bytes per correction", perOp)
			}
			if e.Stats()["cachedResults"] > 256 {
				t.Errorf("cache exceeded its bound: %d", e.Stats()["cachedResults"])
			}
			if d := runtime.NumGoroutine() - goroutines; d > 0 {
				t.Errorf("goroutine leak: %d", d)
			}
		})
	}
}

func TestMemoryStableConcurrent(t *testing.T) {
	for _, workers := range []int{2, 4, 8} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			e := memEngine(512)
			baseline := heapAlloc()

			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 1000/workers; i++ {
						for _, in := range memInputs {
							e.Correct(fmt.Sprintf("%s%d", in, (i+w)%300), 1)
						}
					}
				}(w)
			}
			wg.Wait()

			growth := heapAlloc() - baseline
			t.Logf("workers=%d growth=%d bytes", workers, growth)
			if growth > 8<<20 {
				t.Errorf("heap grew by %d bytes", growth)
			}
		})
	}
}
