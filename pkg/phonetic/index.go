package phonetic

// Index maps a canonical sound key to the dictionary words sharing it, in insertion order.
// It is not safe for concurrent mutation.
type Index struct {
	buckets map[string][]string
	words   int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{buckets: make(map[string][]string)}
}

// Insert files word under its canonical key. Inserting the same word twice is a no-op.
func (ix *Index) Insert(word string) {
	if word == "" {
		return
	}
	key := Normalize(word)
	bucket := ix.buckets[key]
	for _, w := range bucket {
		if w == word {
			return
		}
	}
	ix.buckets[key] = append(bucket, word)
	ix.words++
}

// FindMatches returns the words that share word's canonical key, or nil.
// The returned slice is a copy.
func (ix *Index) FindMatches(word string) []string {
	bucket := ix.buckets[Normalize(word)]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]string, len(bucket))
	copy(out, bucket)
	return out
}

// Len returns the number of indexed words.
func (ix *Index) Len() int {
	return ix.words
}

// Keys returns the number of distinct canonical keys.
func (ix *Index) Keys() int {
	return len(ix.buckets)
}
