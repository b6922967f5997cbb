// Package cli is an interactive loop for trying the correction engine by hand.
// Plain lines are corrected; lines starting with ':' are commands.
package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/revisa/internal/logger"
	"github.com/bastiangx/revisa/internal/utils"
	"github.com/bastiangx/revisa/pkg/correct"
	"github.com/bastiangx/revisa/pkg/phonetic"
)

const defaultLimit = 10

// WordStore persists words added from the prompt.
type WordStore interface {
	Add(word string) (bool, error)
}

// InputHandler reads lines from its input and prints what the engine makes
// of them.
type InputHandler struct {
	engine         correct.Corrector
	store          WordStore
	aggressiveness int
	showStage      bool
	limit          int

	in  io.Reader
	out *log.Logger

	requestCount int
}

// Option configures an InputHandler.
type Option func(*InputHandler)

// WithAggressiveness sets the starting aggressiveness, changeable with :agg.
func WithAggressiveness(n int) Option {
	return func(h *InputHandler) { h.aggressiveness = n }
}

// WithShowStage prints the cascade stage next to each correction.
func WithShowStage(show bool) Option {
	return func(h *InputHandler) { h.showStage = show }
}

// WithLimit sets how many completions :complete prints.
func WithLimit(n int) Option {
	return func(h *InputHandler) {
		if n > 0 {
			h.limit = n
		}
	}
}

// WithWordStore persists words added with :add.
func WithWordStore(s WordStore) Option {
	return func(h *InputHandler) { h.store = s }
}

// WithIO replaces stdin and stderr.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(h *InputHandler) {
		h.in = in
		h.out = logger.NewWithConfig(out, "", log.DebugLevel, false, false, log.TextFormatter)
	}
}

// NewInputHandler creates a handler reading stdin.
func NewInputHandler(engine correct.Corrector, opts ...Option) *InputHandler {
	h := &InputHandler{
		engine:         engine,
		aggressiveness: 1,
		showStage:      true,
		limit:          defaultLimit,
		in:             os.Stdin,
		out:            logger.Default(""),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var errQuit = errors.New("quit")

// Start runs the loop until EOF or :quit.
func (h *InputHandler) Start() error {
	h.out.Print("revisa CLI")
	h.out.Print("type a word or a sentence and press Enter (:help for commands, Ctrl+D to exit)")

	scanner := bufio.NewScanner(h.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := h.handleInput(line); errors.Is(err, errQuit) {
			return nil
		}
	}
	return scanner.Err()
}

func (h *InputHandler) handleInput(line string) error {
	h.requestCount++
	if !strings.HasPrefix(line, ":") {
		h.correct(line)
		return nil
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "q", "quit":
		return errQuit
	case "help":
		printHelp(h.out)
	case "add":
		h.addWord(arg)
	case "complete", "c":
		h.complete(arg)
	case "variants", "v":
		h.variants(arg)
	case "agg":
		n, err := strconv.Atoi(arg)
		if err != nil {
			h.out.Errorf("aggressiveness must be a number, got %q", arg)
			return nil
		}
		h.aggressiveness = n
		h.out.Printf("aggressiveness set to %d", n)
	case "stage":
		h.showStage = !h.showStage
		h.out.Printf("show stage: %t", h.showStage)
	case "stats":
		printStats(h.out, h.engine.Stats())
	default:
		h.out.Errorf("unknown command :%s (try :help)", cmd)
	}
	return nil
}

func (h *InputHandler) correct(line string) {
	start := time.Now()
	if strings.ContainsAny(line, " \t") {
		out := h.engine.CorrectText(line, h.aggressiveness)
		log.Debugf("Took [ %v ] for %q", time.Since(start), line)
		printText(h.out, line, out)
		return
	}
	res := h.engine.Explain(line, h.aggressiveness)
	log.Debugf("Took [ %v ] for %q", time.Since(start), line)
	printResult(h.out, res, h.showStage)
}

func (h *InputHandler) addWord(word string) {
	if word == "" {
		h.out.Error("usage: :add <word>")
		return
	}
	added := h.engine.AddWord(word)
	if h.store != nil {
		if _, err := h.store.Add(word); err != nil {
			h.out.Errorf("could not persist %q: %v", word, err)
		}
	}
	if added {
		h.out.Printf("added %s", styleWord.Render(word))
	} else {
		h.out.Printf("%s is already known", styleWord.Render(word))
	}
}

func (h *InputHandler) complete(prefix string) {
	if !utils.IsValidInput(prefix) {
		h.out.Warnf("No completions for prefix: '%s' (filtered out)", prefix)
		return
	}
	entries := h.engine.Complete(prefix, h.limit)
	if len(entries) == 0 {
		h.out.Warnf("No completions for prefix: '%s'", prefix)
		return
	}
	printCompletions(h.out, prefix, entries)
}

func (h *InputHandler) variants(word string) {
	if word == "" {
		h.out.Error("usage: :variants <word>")
		return
	}
	printVariants(h.out, word, phonetic.GenerateVariants(strings.ToLower(word)))
}
