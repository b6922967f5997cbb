package cli

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/revisa/internal/utils"
	"github.com/bastiangx/revisa/pkg/correct"
	"github.com/bastiangx/revisa/pkg/dictionary"
)

var (
	styleWord    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	styleChanged = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	styleStage   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.AdaptiveColor{Light: "#797593", Dark: "#908caa"})
)

const (
	maxShownVariants = 20
	wordColumn       = 30
)

func printHelp(out *log.Logger) {
	out.Print("commands:")
	out.Print("  :add <word>        add a word to the dictionary")
	out.Print("  :complete <prefix> list known words by frequency")
	out.Print("  :variants <word>   show phonetic spellings")
	out.Print("  :agg <n>           set aggressiveness (0 = conservative)")
	out.Print("  :stage             toggle stage display")
	out.Print("  :stats             show dictionary counters")
	out.Print("  :quit")
}

func printResult(out *log.Logger, res correct.Result, showStage bool) {
	word := styleWord.Render(res.Corrected)
	if res.Changed() {
		word = styleChanged.Render(res.Corrected)
	}
	line := res.Original + " -> " + word
	if showStage {
		line += "  " + styleStage.Render("["+string(res.Stage)+"]")
	}
	out.Print(line)
}

func printText(out *log.Logger, in, corrected string) {
	if in == corrected {
		out.Print(styleWord.Render(corrected))
		return
	}
	out.Print(styleChanged.Render(corrected))
}

func printCompletions(out *log.Logger, prefix string, entries []dictionary.FrequencyEntry) {
	out.Printf("Found %d words for prefix '%s':", len(entries), prefix)
	for i, e := range entries {
		out.Printf("%2d. %-30s (freq: %8s)", i+1, styleWord.Render(utils.Truncate(e.Word, wordColumn)), utils.FormatWithCommas(e.Score))
	}
}

func printVariants(out *log.Logger, word string, variants []string) {
	out.Printf("%d spellings of '%s':", len(variants), word)
	shown := variants
	if len(shown) > maxShownVariants {
		shown = shown[:maxShownVariants]
	}
	out.Print("  " + strings.Join(shown, ", "))
	if len(variants) > len(shown) {
		out.Printf("  ... and %d more", len(variants)-len(shown))
	}
}

func printStats(out *log.Logger, stats map[string]int) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Printf("%-14s %s", k, utils.FormatWithCommas(stats[k]))
	}
}
