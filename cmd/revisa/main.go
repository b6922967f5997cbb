/*
Package main runs revisa, a real-time spelling corrector for Brazilian
Portuguese.

By default it serves the msgpack IPC protocol on stdin/stdout (see package
server). With -c it starts an interactive prompt for trying corrections by
hand.

# Usage

	revisa                      serve IPC with the config file defaults
	revisa -d -data ./data      debug logging, explicit data directory
	revisa -c                   interactive prompt
	revisa -metrics :9464       also expose Prometheus metrics

# Data

The data directory holds plain word lists (one word per line, .dic or .txt)
and frequency lists ("word count" per line, most common first, .freq or .txt).
Frequency lists are loaded before word lists so dictionary words pick up
their scores. Missing or unreadable files are logged and skipped; the
corrector still runs on whatever loaded.

# Configuration

The TOML config lives in ~/.config/revisa/config.toml and is created with
defaults on first run. REVISA_* environment variables override it, and a
.env file in the working directory is read first when present.

	[engine]
	aggressiveness = 1
	cache_size = 4096

	[dict]
	data_dir = "data"
	user_dict_dir = ""

	[escalation]
	enabled = true
	model_dir = ""
	inference_timeout_ms = 0

	[server]
	metrics_addr = ""
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/bastiangx/revisa/internal/cli"
	"github.com/bastiangx/revisa/internal/logger"
	"github.com/bastiangx/revisa/internal/observe"
	"github.com/bastiangx/revisa/internal/utils"
	"github.com/bastiangx/revisa/pkg/config"
	"github.com/bastiangx/revisa/pkg/correct"
	"github.com/bastiangx/revisa/pkg/dictionary"
	"github.com/bastiangx/revisa/pkg/escalate"
	_ "github.com/bastiangx/revisa/pkg/inference/openai"
	"github.com/bastiangx/revisa/pkg/server"
	"github.com/bastiangx/revisa/pkg/typo"
	"github.com/bastiangx/revisa/pkg/userdict"
)

const (
	Version = "0.3.0"
	AppName = "revisa"
	gh      = "https://github.com/bastiangx/revisa"
)

type flags struct {
	showVersion   bool
	rebuildConfig bool
	configPath    string
	envFile       string
	dataDir       string
	modelDir      string
	metricsAddr   string
	debug         bool
	cliMode       bool
	aggressive    int
	noEscalation  bool
}

func parseFlags() (*flags, map[string]bool) {
	f := &flags{}
	flag.BoolVar(&f.showVersion, "version", false, "Show current version")
	flag.BoolVar(&f.rebuildConfig, "rebuild-config", false, "Rewrite the default config file and exit")
	flag.StringVar(&f.configPath, "config", "", "Path to a config file (default: ~/.config/revisa/config.toml)")
	flag.StringVar(&f.envFile, "env", ".env", "Optional .env file with REVISA_* overrides")
	flag.StringVar(&f.dataDir, "data", "", "Directory containing word and frequency lists")
	flag.StringVar(&f.modelDir, "model", "", "Inference model directory (holds inference.toml)")
	flag.StringVar(&f.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address")
	flag.BoolVar(&f.debug, "d", false, "Toggle debug mode")
	flag.BoolVar(&f.cliMode, "c", false, "Run CLI -- useful for testing and debugging")
	flag.IntVar(&f.aggressive, "agg", 1, "Aggressiveness: 0 = conservative, 1 = allow distance 2 corrections")
	flag.BoolVar(&f.noEscalation, "no-escalation", false, "Disable the asynchronous escalation path")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set
}

// applyFlags lets explicit flags win over config and environment.
func applyFlags(cfg *config.Config, f *flags, set map[string]bool) {
	if set["data"] {
		cfg.Dict.DataDir = f.dataDir
	}
	if set["model"] {
		cfg.Escalation.ModelDir = f.modelDir
	}
	if set["metrics"] {
		cfg.Server.MetricsAddr = f.metricsAddr
	}
	if set["agg"] {
		cfg.Engine.Aggressiveness = f.aggressive
		cfg.CLI.Aggressiveness = f.aggressive
	}
	if f.noEscalation {
		cfg.Escalation.Enabled = false
	}
}

func main() {
	f, set := parseFlags()
	if f.showVersion {
		printVersion()
		return
	}

	logger.Setup(os.Stderr, f.debug)
	if err := config.LoadDotEnv(f.envFile); err != nil {
		log.Warnf("Ignoring env file: %v", err)
	}

	if f.rebuildConfig {
		path, err := config.RebuildConfigFile()
		if err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Printf("Wrote default config to %s", path)
		return
	}

	cfg, cfgPath, err := config.LoadConfigWithPriority(f.configPath)
	if err != nil {
		log.Warnf("Environment overrides not applied: %v", err)
	}
	applyFlags(cfg, f, set)
	log.Debugf("Using config: %s", config.GetActiveConfigPath(cfgPath))

	if err := run(cfg, f.cliMode); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config, cliMode bool) error {
	var (
		provider *observe.Provider
		metrics  *observe.Metrics
	)
	if cfg.Server.MetricsAddr != "" && !cliMode {
		p, err := observe.InitProvider(observe.ProviderConfig{ServiceVersion: Version})
		if err != nil {
			log.Warnf("Metrics disabled: %v", err)
		} else if m, err := observe.NewMetrics(p.MeterProvider); err != nil {
			log.Warnf("Metrics disabled: %v", err)
		} else {
			provider, metrics = p, m
			defer p.Shutdown(context.Background())
		}
	}

	engine := newEngine(cfg, metrics)

	var store *userdict.Store
	if cfg.Dict.UserDictDir != "" {
		s, err := userdict.Open(cfg.Dict.UserDictDir)
		if err != nil {
			log.Warnf("Custom words will not be saved: %v", err)
		} else {
			store = s
			defer store.Close()
			replayUserWords(engine, store)
		}
	}

	if cliMode {
		log.SetReportTimestamp(false)
		opts := []cli.Option{
			cli.WithAggressiveness(cfg.CLI.Aggressiveness),
			cli.WithShowStage(cfg.CLI.ShowStage),
		}
		if store != nil {
			opts = append(opts, cli.WithWordStore(store))
		}
		return cli.NewInputHandler(engine, opts...).Start()
	}

	return serve(cfg, engine, store, provider, metrics)
}

func newEngine(cfg *config.Config, metrics *observe.Metrics) *correct.Engine {
	model := typo.New()
	if cfg.Dict.TypoFile != "" {
		m, err := typo.LoadFile(cfg.Dict.TypoFile)
		if err != nil {
			log.Warnf("Using built-in typo table: %v", err)
		} else {
			model = m
		}
	}

	opts := []correct.Option{
		correct.WithTypoModel(model),
		correct.WithPolicy(cfg.Policy()),
		correct.WithCacheSize(cfg.Engine.CacheSize),
		correct.WithLogger(logger.New("engine")),
	}
	if metrics != nil {
		opts = append(opts, correct.WithRecorder(metrics))
	}
	engine := correct.New(opts...)

	engine.LoadCorpus(loadCorpus(cfg))
	if stats := engine.Stats(); stats["words"] == 0 {
		log.Warn("No dictionary loaded, only the typo table is active")
	} else {
		log.Debugf("Engine ready: %s words, %s typo entries",
			utils.FormatWithCommas(stats["words"]), utils.FormatWithCommas(stats["typoEntries"]))
	}
	return engine
}

func loadCorpus(cfg *config.Config) *dictionary.Corpus {
	dataDir := cfg.Dict.DataDir
	if resolver, err := utils.NewPathResolver(); err != nil {
		log.Warnf("Failed to initialize path resolver: %v", err)
	} else {
		dataDir = resolver.GetDataDir(dataDir)
	}
	log.Debugf("Using data dir at: %s", dataDir)

	if len(cfg.Dict.DictionaryFiles) > 0 || cfg.Dict.FrequencyFile != "" {
		return dictionary.LoadFiles(dataDir, cfg.Dict.DictionaryFiles, cfg.Dict.FrequencyFile, cfg.Dict.MaxRank)
	}
	corpus, err := dictionary.LoadDir(dataDir, cfg.Dict.MaxRank)
	if err != nil {
		log.Warnf("No dictionary data: %v", err)
		return nil
	}
	return corpus
}

func replayUserWords(engine *correct.Engine, store *userdict.Store) {
	words, err := store.Words()
	if err != nil {
		log.Warnf("Custom words not loaded: %v", err)
		return
	}
	engine.LoadDictionary(words)
	log.Debugf("Loaded %d custom words", len(words))
}

// serve runs the IPC loop, the escalation pump and the metrics endpoint
// until stdin closes or a signal arrives.
func serve(cfg *config.Config, engine *correct.Engine, store *userdict.Store, provider *observe.Provider, metrics *observe.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	sessionCtx, endSession := context.WithCancel(gctx)
	defer endSession()

	srvOpts := []server.Option{
		server.WithAggressiveness(cfg.Engine.Aggressiveness),
		server.WithLogger(logger.New("server")),
	}
	if store != nil {
		srvOpts = append(srvOpts, server.WithWordStore(store))
	}
	if metrics != nil {
		srvOpts = append(srvOpts, server.WithRecorder(metrics))
	}

	var (
		esc       *escalate.Escalator
		responses chan escalate.Response
	)
	if cfg.Escalation.Enabled {
		responses = make(chan escalate.Response, cfg.Escalation.QueueSize)
		agg := cfg.Engine.Aggressiveness
		escOpts := []escalate.Option{
			escalate.WithLocalPass(func(text string) string { return engine.CorrectText(text, agg) }),
			escalate.WithDebounce(cfg.Debounce()),
			escalate.WithInferenceTimeout(cfg.InferenceTimeout()),
			escalate.WithQueueSize(cfg.Escalation.QueueSize),
			escalate.WithLogger(logger.New("escalate")),
		}
		if metrics != nil {
			escOpts = append(escOpts, escalate.WithRecorder(metrics))
		}
		esc = escalate.New(responses, cfg.Escalation.ModelDir, escOpts...)
		srvOpts = append(srvOpts, server.WithEscalator(esc))
	}

	srv := server.NewServer(engine, srvOpts...)
	showStartupInfo(cfg, engine, esc)

	g.Go(func() error {
		defer endSession()
		defer func() {
			if esc != nil {
				esc.Close()
				close(responses)
			}
		}()
		return srv.Start(sessionCtx)
	})
	if esc != nil {
		// The pump must outlive the session so Close can drain the queue.
		g.Go(func() error { return srv.ForwardEscalations(context.Background(), responses) })
	}
	if provider != nil {
		g.Go(func() error { return provider.Serve(sessionCtx, cfg.Server.MetricsAddr) })
	}

	// A blocked stdin read only returns once stdin is closed.
	go func() {
		<-sessionCtx.Done()
		_ = os.Stdin.Close()
	}()

	return g.Wait()
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(cfg *config.Config, engine *correct.Engine, esc *escalate.Escalator) {
	l := logger.Default(AppName)
	l.SetLevel(log.InfoLevel)
	stats := engine.Stats()
	l.Infof("Version: %s", Version)
	l.Infof("Process ID: [ %d ]", os.Getpid())
	l.Infof("words: %s", utils.FormatWithCommas(stats["words"]))
	if esc != nil {
		l.Infof("escalation: on (inference %t)", esc.Ready())
	} else {
		l.Info("escalation: off")
	}
	if cfg.Server.MetricsAddr != "" {
		l.Infof("metrics: http://%s/metrics", cfg.Server.MetricsAddr)
	}
	l.Info("status: ready")
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print(fmt.Sprintf("[ %s ] corrige o que você digita, em tempo real", AppName))
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}
