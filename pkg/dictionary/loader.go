package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxRank is the rank ceiling of the bundled frequency list. Rank 1
// scores DefaultMaxRank and ranks past the ceiling score 0.
const DefaultMaxRank = 50000

// minFrequencyWordLen drops single letters from frequency lists.
const minFrequencyWordLen = 2

// maxLineBytes bounds a single line so a binary file fed by mistake cannot
// grow the scanner buffer without limit.
const maxLineBytes = 1 << 20

// FrequencyEntry is a word with its rank-derived score.
type FrequencyEntry struct {
	Word  string
	Score uint32
}

// Corpus is everything LoadDir found in a data directory.
type Corpus struct {
	Frequencies []FrequencyEntry
	Words       []string
	Files       []string
}

// Fold returns the form used as a dictionary key: NFC composed and lowercased.
func Fold(word string) string {
	return strings.ToLower(norm.NFC.String(word))
}

// Score maps a 1-based rank to its score under maxRank.
func Score(rank, maxRank int) uint32 {
	if rank < 1 || rank > maxRank {
		return 0
	}
	return uint32(maxRank + 1 - rank)
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

// ReadWords reads a newline separated word list. Lines are trimmed, blank
// lines and lines that are not valid UTF-8 are skipped. Words keep their case.
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := newScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !utf8.ValidString(line) {
			continue
		}
		words = append(words, norm.NFC.String(line))
	}
	if err := scanner.Err(); err != nil {
		return words, fmt.Errorf("read word list: %w", err)
	}
	return words, nil
}

// LoadWords reads a word list from disk.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word list %s: %w", path, err)
	}
	defer file.Close()

	words, err := ReadWords(file)
	if err != nil {
		return words, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Loaded %d words from %s", len(words), path)
	return words, nil
}

// ReadFrequency reads a "<word> <count...>" list ordered from most to least
// common. Only the first field is used. Rank counts accepted lines only.
func ReadFrequency(r io.Reader, maxRank int) ([]FrequencyEntry, error) {
	if maxRank <= 0 {
		maxRank = DefaultMaxRank
	}

	var entries []FrequencyEntry
	rank := 0
	scanner := newScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || !utf8.ValidString(fields[0]) {
			continue
		}
		word := Fold(fields[0])
		if utf8.RuneCountInString(word) < minFrequencyWordLen {
			continue
		}
		rank++
		entries = append(entries, FrequencyEntry{Word: word, Score: Score(rank, maxRank)})
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read frequency list: %w", err)
	}
	return entries, nil
}

// LoadFrequency reads a frequency list from disk.
func LoadFrequency(path string, maxRank int) ([]FrequencyEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frequency list %s: %w", path, err)
	}
	defer file.Close()

	entries, err := ReadFrequency(file, maxRank)
	if err != nil {
		return entries, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Loaded %d frequency entries from %s", len(entries), path)
	return entries, nil
}

// LoadDir sniffs every dictionary file in dir and collects frequency lists and
// word lists separately, so callers can load frequencies first. Files are read
// in lexical order. Unreadable or unrecognised files are logged and skipped.
func LoadDir(dir string, maxRank int) (*Corpus, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat data directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path %s is not a directory", dir)
	}

	var files []string
	for _, f := range ListSupportedFormats() {
		for _, ext := range f.Extensions {
			matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
			if err != nil {
				return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
			}
			files = append(files, matches...)
		}
	}
	sort.Strings(files)
	files = dedupeSorted(files)

	corpus := &Corpus{}
	for _, path := range files {
		format, err := DetectFormat(path)
		if err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			continue
		}

		switch format {
		case FormatFrequency:
			entries, err := LoadFrequency(path, maxRank)
			if err != nil {
				log.Warnf("Partial frequency load: %v", err)
			}
			corpus.Frequencies = append(corpus.Frequencies, entries...)
		case FormatWordList:
			words, err := LoadWords(path)
			if err != nil {
				log.Warnf("Partial word list load: %v", err)
			}
			corpus.Words = append(corpus.Words, words...)
		}
		corpus.Files = append(corpus.Files, path)
	}

	log.Debugf("Data directory %s: %d files, %d frequency entries, %d words",
		dir, len(corpus.Files), len(corpus.Frequencies), len(corpus.Words))
	return corpus, nil
}

func dedupeSorted(in []string) []string {
	out := in[:0]
	for i, s := range in {
		if i > 0 && s == in[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// LoadFiles builds a Corpus from explicitly named files. Relative paths are
// resolved against dir. Files that fail to load are logged and skipped.
func LoadFiles(dir string, wordFiles []string, frequencyFile string, maxRank int) *Corpus {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	corpus := &Corpus{}
	if frequencyFile != "" {
		path := resolve(frequencyFile)
		entries, err := LoadFrequency(path, maxRank)
		if err != nil {
			log.Warnf("Frequency list not loaded: %v", err)
		} else {
			corpus.Files = append(corpus.Files, path)
		}
		corpus.Frequencies = entries
	}
	for _, f := range wordFiles {
		path := resolve(f)
		words, err := LoadWords(path)
		if err != nil {
			log.Warnf("Word list not loaded: %v", err)
		} else {
			corpus.Files = append(corpus.Files, path)
		}
		corpus.Words = append(corpus.Words, words...)
	}
	return corpus
}
