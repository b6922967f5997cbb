package dictionary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrUnknownFormat is returned when a file is neither a word list nor a frequency list.
var ErrUnknownFormat = errors.New("unknown dictionary format")

// FileFormat represents the dictionary file layouts the loader understands
type FileFormat int

const (
	FormatUnknown   FileFormat = iota
	FormatWordList             // one word per line
	FormatFrequency            // "<word> <count>" per line, most common first
)

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// FormatInfo contains metadata about a dictionary file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatWordList: {
		Format:      FormatWordList,
		Description: "word list",
		Extensions:  []string{".txt", ".dic"},
	},
	FormatFrequency: {
		Format:      FormatFrequency,
		Description: "frequency list",
		Extensions:  []string{".txt", ".freq"},
	},
}

// sniffLines is how many non-blank lines DetectFormat looks at.
const sniffLines = 32

// DetectFormat reads the head of a file and decides whether it is a plain word
// list or a frequency list. A frequency list has a numeric second field on most
// lines.
func DetectFormat(path string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !hasSupportedExtension(ext) {
		return FormatUnknown, fmt.Errorf("%s: extension %q: %w", path, ext, ErrUnknownFormat)
	}

	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var lines, single, counted int
	scanner := newScanner(file)
	for scanner.Scan() && lines < sniffLines {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		lines++
		switch {
		case len(fields) == 1:
			single++
		case isCount(fields[1]):
			counted++
		}
	}
	if err := scanner.Err(); err != nil {
		return FormatUnknown, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var format FileFormat
	switch {
	case lines == 0:
		format = FormatUnknown
	case ext == ".freq" || counted*2 > lines:
		format = FormatFrequency
	case ext != ".freq" && single*2 > lines:
		format = FormatWordList
	}
	if format == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}

	log.Debugf("Detected %s for %s (%d/%d counted lines)", format, path, counted, lines)
	return format, nil
}

func isCount(s string) bool {
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func hasSupportedExtension(ext string) bool {
	for _, info := range supportedFormats {
		for _, e := range info.Extensions {
			if e == ext {
				return true
			}
		}
	}
	return false
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// ListSupportedFormats returns all supported formats in a stable order
func ListSupportedFormats() []FormatInfo {
	return []FormatInfo{supportedFormats[FormatWordList], supportedFormats[FormatFrequency]}
}
