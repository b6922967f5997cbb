// Package correct is the synchronous correction cascade. It owns the trie, the
// phonetic index, the typo model and the frequency table, and decides for a
// single typed word whether and how to rewrite it.
package correct

import (
	"time"

	"github.com/bastiangx/revisa/pkg/dictionary"
)

// Corrector is what the IPC server and the debug CLI need from an engine.
type Corrector interface {
	// Correct returns the corrected form of a single word.
	Correct(word string, aggressiveness int) string

	// Explain is Correct plus the stage that produced the answer.
	Explain(word string, aggressiveness int) Result

	// CorrectText corrects every word of text, keeping separators as they are.
	CorrectText(text string, aggressiveness int) string

	// AddWord merges a custom word into the live dictionary.
	AddWord(word string) bool

	// Complete lists known words starting with prefix, most frequent first.
	Complete(prefix string, limit int) []dictionary.FrequencyEntry

	// Stats returns counters about the loaded data.
	Stats() map[string]int
}

// Recorder receives one observation per uncached correction.
type Recorder interface {
	RecordCorrection(stage string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordCorrection(string, time.Duration) {}
