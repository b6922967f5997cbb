package phonetic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"cassa", "casa"},
		{"caça", "casa"},
		{"casa", "casa"},
		{"caza", "casa"},
		{"nascer", "naser"},
		{"exceção", "excesão"},
		{"", ""},
		{"123", "123"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeSharesKeyAcrossSibilants(t *testing.T) {
	forms := []string{"passo", "paço", "paso", "pazo", "pasco"}
	key := Normalize(forms[0])
	for _, f := range forms[1:] {
		assert.Equal(t, key, Normalize(f), f)
	}
}

func TestGenerateVariants(t *testing.T) {
	got := GenerateVariants("caça")
	require.NotEmpty(t, got)
	assert.Equal(t, "caça", got[0], "the input comes first")
	assert.Contains(t, got, "cassa")
	assert.Contains(t, got, "casa")
	assert.Contains(t, got, "caca")
	assert.Contains(t, got, "caza")

	seen := map[string]bool{}
	for _, v := range got {
		assert.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
	}
}

func TestGenerateVariantsDigraphs(t *testing.T) {
	assert.Contains(t, GenerateVariants("xuva"), "chuva")
	assert.Contains(t, GenerateVariants("chuva"), "xuva")
	assert.Contains(t, GenerateVariants("gente"), "jente")
	assert.Contains(t, GenerateVariants("jeito"), "geito")
	assert.Contains(t, GenerateVariants("voltou"), "voltol")
	assert.Contains(t, GenerateVariants("banho"), "banio")
	assert.Contains(t, GenerateVariants("filho"), "filio")
}

func TestGenerateVariantsWithoutRules(t *testing.T) {
	assert.Equal(t, []string{"rua"}, GenerateVariants("rua"))
	assert.Equal(t, []string{""}, GenerateVariants(""))
}

func TestGenerateVariantsIsBounded(t *testing.T) {
	long := strings.Repeat("sxchgeou", 20)
	got := GenerateVariants(long)
	assert.LessOrEqual(t, len(got), maxVariants)
	assert.Equal(t, long, got[0])
}

func TestIndex(t *testing.T) {
	ix := NewIndex()
	ix.Insert("caça")
	ix.Insert("casa")
	ix.Insert("caça")
	ix.Insert("carro")
	ix.Insert("")

	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, 2, ix.Keys())

	assert.Equal(t, []string{"caça", "casa"}, ix.FindMatches("cassa"))
	assert.Equal(t, []string{"carro"}, ix.FindMatches("carro"))
	assert.Nil(t, ix.FindMatches("computador"))
}

func TestIndexMatchesAreCopies(t *testing.T) {
	ix := NewIndex()
	ix.Insert("caça")
	got := ix.FindMatches("casa")
	got[0] = "mutated"
	assert.Equal(t, []string{"caça"}, ix.FindMatches("casa"))
}
