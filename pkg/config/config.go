/*
Package config manages the TOML config for revisa.

Values are layered: built-in defaults, then the TOML file, then REVISA_*
environment variables (optionally read from a .env file first).
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/bastiangx/revisa/internal/utils"
	"github.com/bastiangx/revisa/pkg/correct"
)

const (
	appDir     = "revisa"
	configName = "config.toml"
)

// Config holds the entire config structure
type Config struct {
	Engine     EngineConfig     `toml:"engine"`
	Dict       DictConfig       `toml:"dict"`
	Escalation EscalationConfig `toml:"escalation"`
	Server     ServerConfig     `toml:"server"`
	CLI        CliConfig        `toml:"cli"`
}

// EngineConfig tunes the correction cascade.
type EngineConfig struct {
	Aggressiveness   int `toml:"aggressiveness" env:"REVISA_AGGRESSIVENESS"`
	UpgradeRatio     int `toml:"upgrade_ratio" env:"REVISA_UPGRADE_RATIO"`
	UpgradeMinLen    int `toml:"upgrade_min_len"`
	UpgradeMaxLen    int `toml:"upgrade_max_len"`
	ShortWordLen     int `toml:"short_word_len"`
	ShortWordMinFreq int `toml:"short_word_min_freq"`
	MaxLengthDelta   int `toml:"max_length_delta"`
	CacheSize        int `toml:"cache_size" env:"REVISA_CACHE_SIZE"`
}

// DictConfig says where the word data lives.
type DictConfig struct {
	DataDir         string   `toml:"data_dir" env:"REVISA_DATA_DIR"`
	DictionaryFiles []string `toml:"dictionary_files,omitempty" env:"REVISA_DICTIONARY_FILES"`
	FrequencyFile   string   `toml:"frequency_file" env:"REVISA_FREQUENCY_FILE"`
	MaxRank         int      `toml:"max_rank" env:"REVISA_MAX_RANK"`
	TypoFile        string   `toml:"typo_file" env:"REVISA_TYPO_FILE"`
	UserDictDir     string   `toml:"user_dict_dir" env:"REVISA_USER_DICT_DIR"`
}

// EscalationConfig holds the slow path options.
type EscalationConfig struct {
	Enabled            bool   `toml:"enabled" env:"REVISA_ESCALATION"`
	QueueSize          int    `toml:"queue_size"`
	DebounceMS         int    `toml:"debounce_ms" env:"REVISA_DEBOUNCE_MS"`
	ModelDir           string `toml:"model_dir" env:"REVISA_MODEL_DIR"`
	InferenceTimeoutMS int    `toml:"inference_timeout_ms" env:"REVISA_INFERENCE_TIMEOUT_MS"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxWordLength int    `toml:"max_word_length"`
	MetricsAddr   string `toml:"metrics_addr" env:"REVISA_METRICS_ADDR"`
}

// CliConfig holds debug CLI options.
type CliConfig struct {
	Aggressiveness int  `toml:"aggressiveness"`
	ShowStage      bool `toml:"show_stage"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	p := correct.DefaultPolicy()
	return &Config{
		Engine: EngineConfig{
			Aggressiveness:   1,
			UpgradeRatio:     int(p.UpgradeRatio),
			UpgradeMinLen:    p.UpgradeMinLen,
			UpgradeMaxLen:    p.UpgradeMaxLen,
			ShortWordLen:     p.ShortWordLen,
			ShortWordMinFreq: int(p.ShortWordMinFreq),
			MaxLengthDelta:   p.MaxLengthDelta,
			CacheSize:        4096,
		},
		Dict: DictConfig{
			DataDir: "data",
			MaxRank: 50000,
		},
		Escalation: EscalationConfig{
			Enabled:    true,
			QueueSize:  100,
			DebounceMS: 150,
		},
		Server: ServerConfig{
			MaxWordLength: p.MaxWordLen,
		},
		CLI: CliConfig{
			Aggressiveness: 1,
			ShowStage:      true,
		},
	}
}

// Policy converts the engine section into cascade thresholds.
func (c *Config) Policy() correct.Policy {
	return correct.Policy{
		UpgradeRatio:     uint32(c.Engine.UpgradeRatio),
		UpgradeMinLen:    c.Engine.UpgradeMinLen,
		UpgradeMaxLen:    c.Engine.UpgradeMaxLen,
		ShortWordLen:     c.Engine.ShortWordLen,
		ShortWordMinFreq: uint32(c.Engine.ShortWordMinFreq),
		MaxLengthDelta:   c.Engine.MaxLengthDelta,
		MaxWordLen:       c.Server.MaxWordLength,
	}
}

// Debounce returns the escalation debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Escalation.DebounceMS) * time.Millisecond
}

// InferenceTimeout returns the bound on a single inference call, zero for none.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Escalation.InferenceTimeoutMS) * time.Millisecond
}

// Sanitize replaces values that would break the engine with their defaults
// and logs every replacement.
func (c *Config) Sanitize() {
	d := DefaultConfig()
	fix := func(name string, v *int, min int, def int) {
		if *v < min {
			log.Warnf("Invalid %s=%d, using %d", name, *v, def)
			*v = def
		}
	}
	fix("engine.upgrade_ratio", &c.Engine.UpgradeRatio, 1, d.Engine.UpgradeRatio)
	fix("engine.upgrade_min_len", &c.Engine.UpgradeMinLen, 0, d.Engine.UpgradeMinLen)
	fix("engine.upgrade_max_len", &c.Engine.UpgradeMaxLen, c.Engine.UpgradeMinLen, d.Engine.UpgradeMaxLen)
	fix("engine.short_word_len", &c.Engine.ShortWordLen, 0, d.Engine.ShortWordLen)
	fix("engine.short_word_min_freq", &c.Engine.ShortWordMinFreq, 0, d.Engine.ShortWordMinFreq)
	fix("engine.max_length_delta", &c.Engine.MaxLengthDelta, 0, d.Engine.MaxLengthDelta)
	fix("engine.cache_size", &c.Engine.CacheSize, 0, d.Engine.CacheSize)
	fix("dict.max_rank", &c.Dict.MaxRank, 1, d.Dict.MaxRank)
	fix("escalation.queue_size", &c.Escalation.QueueSize, 1, d.Escalation.QueueSize)
	fix("escalation.debounce_ms", &c.Escalation.DebounceMS, 0, d.Escalation.DebounceMS)
	fix("escalation.inference_timeout_ms", &c.Escalation.InferenceTimeoutMS, 0, 0)
	fix("server.max_word_length", &c.Server.MaxWordLength, 1, d.Server.MaxWordLength)
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/revisa
// 2. ~/Library/Application Support/revisa (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", appDir)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", appDir)
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configName), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from the -config flag
// 2. Default path: [UserConfigDir]/revisa/config.toml
// 3. Builtin defaults
//
// Environment overrides are applied on top of whichever source won.
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	cfg, path := loadFile(customConfigPath)
	if err := ApplyEnv(cfg); err != nil {
		return cfg, path, err
	}
	cfg.Sanitize()
	return cfg, path, nil
}

func loadFile(customConfigPath string) (*Config, string) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			cfg, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return cfg, customConfigPath
			}
			log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), ""
	}
	cfg, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), ""
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return cfg, defaultPath
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Debugf("Loaded environment from %s", path)
	return nil
}

// ApplyEnv overrides cfg with the REVISA_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config: read env: %w", err)
	}
	return nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return cfg, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. Keys missing from the file keep their
// defaults; a file that does not parse is salvaged section by section.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, cfg); err != nil {
		return tryPartialParse(configPath)
	}
	return cfg, nil
}

// tryPartialParse keeps the well-typed keys of a file whose strict decode
// failed, for instance because one value has the wrong type.
func tryPartialParse(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return cfg, nil
	}

	if section, ok := utils.ExtractSection(raw, "engine"); ok {
		extractEngineConfig(section, &cfg.Engine)
	}
	if section, ok := utils.ExtractSection(raw, "dict"); ok {
		extractDictConfig(section, &cfg.Dict)
	}
	if section, ok := utils.ExtractSection(raw, "escalation"); ok {
		extractEscalationConfig(section, &cfg.Escalation)
	}
	if section, ok := utils.ExtractSection(raw, "server"); ok {
		extractServerConfig(section, &cfg.Server)
	}
	if section, ok := utils.ExtractSection(raw, "cli"); ok {
		extractCliConfig(section, &cfg.CLI)
	}
	return cfg, nil
}

func setInt(data map[string]any, key string, dst *int) {
	if val, ok := utils.ExtractInt64(data, key); ok {
		*dst = val
	}
}

func setBool(data map[string]any, key string, dst *bool) {
	if val, ok := utils.ExtractBool(data, key); ok {
		*dst = val
	}
}

func setString(data map[string]any, key string, dst *string) {
	if val, ok := utils.ExtractString(data, key); ok {
		*dst = val
	}
}

func extractEngineConfig(data map[string]any, e *EngineConfig) {
	setInt(data, "aggressiveness", &e.Aggressiveness)
	setInt(data, "upgrade_ratio", &e.UpgradeRatio)
	setInt(data, "upgrade_min_len", &e.UpgradeMinLen)
	setInt(data, "upgrade_max_len", &e.UpgradeMaxLen)
	setInt(data, "short_word_len", &e.ShortWordLen)
	setInt(data, "short_word_min_freq", &e.ShortWordMinFreq)
	setInt(data, "max_length_delta", &e.MaxLengthDelta)
	setInt(data, "cache_size", &e.CacheSize)
}

func extractDictConfig(data map[string]any, d *DictConfig) {
	setString(data, "data_dir", &d.DataDir)
	if files, ok := utils.ExtractStrings(data, "dictionary_files"); ok {
		d.DictionaryFiles = files
	}
	setString(data, "frequency_file", &d.FrequencyFile)
	setInt(data, "max_rank", &d.MaxRank)
	setString(data, "typo_file", &d.TypoFile)
	setString(data, "user_dict_dir", &d.UserDictDir)
}

func extractEscalationConfig(data map[string]any, e *EscalationConfig) {
	setBool(data, "enabled", &e.Enabled)
	setInt(data, "queue_size", &e.QueueSize)
	setInt(data, "debounce_ms", &e.DebounceMS)
	setString(data, "model_dir", &e.ModelDir)
	setInt(data, "inference_timeout_ms", &e.InferenceTimeoutMS)
}

func extractServerConfig(data map[string]any, s *ServerConfig) {
	setInt(data, "max_word_length", &s.MaxWordLength)
	setString(data, "metrics_addr", &s.MetricsAddr)
}

func extractCliConfig(data map[string]any, c *CliConfig) {
	setInt(data, "aggressiveness", &c.Aggressiveness)
	setBool(data, "show_stage", &c.ShowStage)
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() (string, error) {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return "", err
	}
	return defaultPath, SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		return "built-in defaults"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(cfg *Config, configPath string) error {
	return utils.SaveTOMLFile(cfg, configPath)
}
