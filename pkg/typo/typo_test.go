package typo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTable(t *testing.T) {
	m := New()
	assert.Greater(t, m.Len(), 350)
	require.Len(t, m.Suffixes(), 3)
	assert.Equal(t, SuffixRule{From: "cao", To: "ção"}, m.Suffixes()[0])
}

func TestEmbeddedTableHasNoSelfMappings(t *testing.T) {
	m := New()
	for k, v := range m.words {
		assert.NotEqual(t, k, v)
		assert.Equal(t, strings.ToLower(k), k, "keys are lowercase")
	}
	_, ok := m.words["aonde"]
	assert.False(t, ok, "aonde is a valid word and must not be listed")
}

func TestCorrection(t *testing.T) {
	m := New()
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"vc", "você", true},
		{"voce", "você", true},
		{"amanha", "amanhã", true},
		{"par", "para", true},
		{"oque", "o que", true},
		{"concerteza", "com certeza", true},
		{"informacao", "informação", true},
		// suffix rules
		{"tributacao", "tributação", true},
		{"mamoes", "mamões", true},
		{"feijao", "feijão", true},
		// too short for suffix rules
		{"mao", "mão", true},
		{"xao", "", false},
		{"tcao", "", false},
		// stem shorter than two letters after stripping
		{"acao", "ação", true},
		{"casa", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := m.Correction(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuffixRulesUseLetterCounts(t *testing.T) {
	m, err := Load(strings.NewReader(`
[[suffix]]
from = "ao"
to = "ão"
`))
	require.NoError(t, err)

	// five letters but more than five bytes
	got, ok := m.Correction("çãbao")
	assert.True(t, ok)
	assert.Equal(t, "çãbão", got)

	// four letters, six bytes: not eligible
	_, ok = m.Correction("çãao")
	assert.False(t, ok)
}

func TestSuffixRuleOrder(t *testing.T) {
	m, err := Load(strings.NewReader(`
[[suffix]]
from = "cao"
to = "ção"

[[suffix]]
from = "ao"
to = "ão"
`))
	require.NoError(t, err)
	got, ok := m.Correction("eleicao")
	require.True(t, ok)
	assert.Equal(t, "eleição", got)
}

func TestLoadSkipsInvalidEntries(t *testing.T) {
	m, err := Load(strings.NewReader(`
[words]
aonde = "aonde"
VC = "você"
blank = ""

[[suffix]]
from = ""
to = "x"
`))
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	got, ok := m.Correction("vc")
	assert.True(t, ok)
	assert.Equal(t, "você", got)
	_, ok = m.Correction("aonde")
	assert.False(t, ok)
	assert.Empty(t, m.Suffixes())
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	_, err := Load(strings.NewReader(`
[words]
vc = "você"
vc = "vocês"
`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typos.toml")
	require.NoError(t, os.WriteFile(path, []byte("[words]\nqeu = \"que\"\n"), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	got, ok := m.Correction("qeu")
	assert.True(t, ok)
	assert.Equal(t, "que", got)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEmpty(t *testing.T) {
	m := Empty()
	_, ok := m.Correction("vc")
	assert.False(t, ok)
}
