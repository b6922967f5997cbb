package correct

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bastiangx/revisa/pkg/dictionary"
	"github.com/bastiangx/revisa/pkg/phonetic"
	"github.com/bastiangx/revisa/pkg/trie"
	"github.com/bastiangx/revisa/pkg/typo"
)

// DefaultCacheSize is the number of cached results per engine.
const DefaultCacheSize = 4096

type cacheKey struct {
	word       string
	aggressive bool
}

// Engine runs the correction cascade. Reads run concurrently under a shared
// lock; loading and AddWord take the exclusive lock and purge the cache.
type Engine struct {
	mu       sync.RWMutex
	trie     *trie.Trie
	phonetic *phonetic.Index
	typos    *typo.Model
	freq     *dictionary.FrequencyTable
	policy   Policy

	cacheSize int
	cache     *lru.Cache[cacheKey, Result]

	logger   *log.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithTypoModel replaces the embedded typo table.
func WithTypoModel(m *typo.Model) Option {
	return func(e *Engine) {
		if m != nil {
			e.typos = m
		}
	}
}

// WithPolicy replaces the default thresholds.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithCacheSize sets the result cache size. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New creates an empty engine. Load frequencies before dictionary words so the
// trie carries the right scores.
func New(opts ...Option) *Engine {
	e := &Engine{
		trie:      trie.New(),
		phonetic:  phonetic.NewIndex(),
		freq:      dictionary.NewFrequencyTable(),
		policy:    DefaultPolicy(),
		cacheSize: DefaultCacheSize,
		logger:    log.Default(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.typos == nil {
		e.typos = typo.New()
	}
	if e.cacheSize > 0 {
		cache, err := lru.New[cacheKey, Result](e.cacheSize)
		if err != nil {
			e.logger.Warnf("Result cache disabled: %v", err)
		} else {
			e.cache = cache
		}
	}
	return e
}

// LoadFrequencyData records scores and inserts the words into the trie.
// A word listed twice keeps its highest score.
func (e *Engine) LoadFrequencyData(entries []dictionary.FrequencyEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, entry := range entries {
		word := dictionary.Fold(strings.TrimSpace(entry.Word))
		if word == "" {
			continue
		}
		e.freq.Set(word, entry.Score)
		e.trie.Insert(word, entry.Score)
	}
	e.purge()
	e.logger.Debugf("Frequency data loaded: %d entries, %d words known", len(entries), e.trie.Len())
}

// LoadDictionary inserts words into the trie and the phonetic index, using
// whatever score the frequency table already holds.
func (e *Engine) LoadDictionary(words []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, w := range words {
		e.insertLocked(w)
	}
	e.purge()
	e.logger.Debugf("Dictionary loaded: %d words given, %d words known", len(words), e.trie.Len())
}

// LoadCorpus loads frequencies first, then the word lists.
func (e *Engine) LoadCorpus(c *dictionary.Corpus) {
	if c == nil {
		return
	}
	e.LoadFrequencyData(c.Frequencies)
	e.LoadDictionary(c.Words)
}

// AddWord merges a single custom word into the live dictionary. It reports
// whether the word was new.
func (e *Engine) AddWord(word string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	added := e.insertLocked(word)
	if added {
		e.purge()
	}
	return added
}

func (e *Engine) insertLocked(raw string) bool {
	word := dictionary.Fold(strings.TrimSpace(raw))
	if word == "" || !utf8.ValidString(word) {
		return false
	}
	existed := e.trie.Contains(word)
	e.freq.Set(word, 0)
	e.trie.Insert(word, e.freq.Get(word))
	e.phonetic.Insert(word)
	return !existed
}

func (e *Engine) purge() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// Contains reports whether word is a dictionary member.
func (e *Engine) Contains(word string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trie.Contains(dictionary.Fold(word))
}

// Correct returns the corrected form of word. It never fails: unknown input
// comes back unchanged.
func (e *Engine) Correct(word string, aggressiveness int) string {
	return e.Explain(word, aggressiveness).Corrected
}

// Explain runs the cascade and reports which stage answered.
func (e *Engine) Explain(word string, aggressiveness int) Result {
	if word == "" {
		return Result{Stage: StageNone}
	}
	key := cacheKey{word: word, aggressive: aggressiveness > 0}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.cache != nil {
		if res, ok := e.cache.Get(key); ok {
			return res
		}
	}

	start := time.Now()
	res := e.run(word, key.aggressive)
	e.recorder.RecordCorrection(string(res.Stage), time.Since(start))

	if e.cache != nil {
		e.cache.Add(key, res)
	}
	return res
}

// Complete lists known words starting with prefix, most frequent first.
func (e *Engine) Complete(prefix string, limit int) []dictionary.FrequencyEntry {
	p := dictionary.Fold(strings.TrimSpace(prefix))
	if p == "" {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.freq.WithPrefix(p, limit)
}

// Stats returns counters about the loaded data.
func (e *Engine) Stats() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := map[string]int{
		"words":         e.trie.Len(),
		"phoneticKeys":  e.phonetic.Keys(),
		"phoneticWords": e.phonetic.Len(),
		"typoEntries":   e.typos.Len(),
		"scoredWords":   e.freq.Len(),
	}
	if e.cache != nil {
		stats["cachedResults"] = e.cache.Len()
	}
	return stats
}
