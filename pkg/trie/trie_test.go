package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertKeepsHighestFrequency(t *testing.T) {
	tr := New()
	tr.Insert("casa", 100)
	tr.Insert("casa", 40)
	tr.Insert("casa", 250)

	freq, ok := tr.Frequency("casa")
	require.True(t, ok)
	assert.Equal(t, uint32(250), freq)
	assert.Equal(t, 1, tr.Len())
}

func TestContainsOnlyTerminals(t *testing.T) {
	tr := New()
	tr.Insert("computador", 10)

	assert.True(t, tr.Contains("computador"))
	assert.False(t, tr.Contains("compu"), "prefix is not a word")
	assert.False(t, tr.Contains("computadores"))
	assert.False(t, tr.Contains(""))

	_, ok := tr.Frequency("comp")
	assert.False(t, ok)
}

func TestInsertEmptyIsIgnored(t *testing.T) {
	tr := New()
	tr.Insert("", 10)
	assert.Equal(t, 0, tr.Len())
}

func TestMultibyteRunes(t *testing.T) {
	tr := New()
	tr.Insert("caça", 10)
	tr.Insert("você", 20)

	assert.True(t, tr.Contains("caça"))
	got := tr.Suggestions("voce", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "você", got[0].Word)
	assert.Equal(t, 1, got[0].Distance, "ê vs e is one substitution, not two bytes")
}

func TestSuggestionsOrdering(t *testing.T) {
	tr := New()
	tr.Insert("casa", 100)
	tr.Insert("caso", 900)
	tr.Insert("cada", 500)
	tr.Insert("casas", 50)
	tr.Insert("carro", 800)
	tr.Insert("asa", 700)
	// carro is three edits away and must not appear at all.

	got := tr.Suggestions("casa", 2)
	require.NotEmpty(t, got)

	assert.Equal(t, Suggestion{Word: "casa", Distance: 0, Frequency: 100}, got[0])
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if prev.Distance == cur.Distance {
			assert.GreaterOrEqual(t, prev.Frequency, cur.Frequency, "%v before %v", prev, cur)
		} else {
			assert.Less(t, prev.Distance, cur.Distance)
		}
	}

	words := make([]string, 0, len(got))
	for _, s := range got {
		words = append(words, s.Word)
	}
	assert.Equal(t, []string{"casa", "caso", "asa", "cada", "casas"}, words)
}

func TestSuggestionsRespectBound(t *testing.T) {
	tr := New()
	tr.Insert("computador", 10)
	tr.Insert("casa", 10)

	assert.Empty(t, tr.Suggestions("computaodr", 1), "transposition costs two plain edits")
	got := tr.Suggestions("computaodr", 2)
	require.Len(t, got, 1)
	assert.Equal(t, "computador", got[0].Word)
	assert.Equal(t, 2, got[0].Distance)

	assert.Nil(t, tr.Suggestions("casa", -1))
}

func TestSuggestionsEqualScoresAreStable(t *testing.T) {
	tr := New()
	tr.Insert("mala", 5)
	tr.Insert("bala", 5)
	tr.Insert("fala", 5)

	for i := 0; i < 10; i++ {
		got := tr.Suggestions("gala", 1)
		require.Len(t, got, 3)
		assert.Equal(t, "bala", got[0].Word)
		assert.Equal(t, "fala", got[1].Word)
		assert.Equal(t, "mala", got[2].Word)
	}
}

func TestSuggestionsOnEmptyTrieAndQuery(t *testing.T) {
	tr := New()
	assert.Empty(t, tr.Suggestions("qualquer", 2))

	tr.Insert("a", 1)
	tr.Insert("ab", 1)
	tr.Insert("abc", 1)
	got := tr.Suggestions("", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Word)
	assert.Equal(t, "ab", got[1].Word)
}

func BenchmarkSuggestions(b *testing.B) {
	tr := New()
	for _, w := range []string{"casa", "carro", "computador", "português", "você", "brasileiro", "amanhã", "caso", "causa"} {
		tr.Insert(w, 10)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr.Suggestions("computaodr", 2)
	}
}
