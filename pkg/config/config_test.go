package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/revisa/pkg/correct"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsMatchEnginePolicy(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, correct.DefaultPolicy(), cfg.Policy())
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce())
	assert.Zero(t, cfg.InferenceTimeout())
	assert.Equal(t, 100, cfg.Escalation.QueueSize)
	assert.Equal(t, 50000, cfg.Dict.MaxRank)
}

func TestInitConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", configName)

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfigKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), configName, `
[engine]
aggressiveness = 0
upgrade_ratio = 20

[dict]
dictionary_files = ["pt_BR.dic", "extra.txt"]
frequency_file = "pt_br_50k.txt"

[escalation]
inference_timeout_ms = 800
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Engine.Aggressiveness)
	assert.Equal(t, uint32(20), cfg.Policy().UpgradeRatio)
	assert.Equal(t, 6, cfg.Engine.UpgradeMaxLen)
	assert.Equal(t, []string{"pt_BR.dic", "extra.txt"}, cfg.Dict.DictionaryFiles)
	assert.Equal(t, 800*time.Millisecond, cfg.InferenceTimeout())
	assert.Equal(t, 150, cfg.Escalation.DebounceMS)
}

func TestPartialParseRecoversTypedKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), configName, `
[engine]
cache_size = "big"
upgrade_ratio = 9

[server]
metrics_addr = "127.0.0.1:9464"

[cli]
show_stage = false
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Engine.UpgradeRatio)
	assert.Equal(t, 4096, cfg.Engine.CacheSize)
	assert.Equal(t, "127.0.0.1:9464", cfg.Server.MetricsAddr)
	assert.False(t, cfg.CLI.ShowStage)
}

func TestBrokenFileFallsBackToDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), configName, "[engine\nupgrade_ratio = ")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), configName, "[escalation]\nmodel_dir = \"/file/model\"\n")
	t.Setenv("REVISA_MODEL_DIR", "/env/model")
	t.Setenv("REVISA_AGGRESSIVENESS", "0")
	t.Setenv("REVISA_DICTIONARY_FILES", "a.dic,b.txt")

	cfg, used, err := LoadConfigWithPriority(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "/env/model", cfg.Escalation.ModelDir)
	assert.Equal(t, 0, cfg.Engine.Aggressiveness)
	assert.Equal(t, []string{"a.dic", "b.txt"}, cfg.Dict.DictionaryFiles)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "REVISA_METRICS_ADDR=:9999\n")

	t.Setenv("REVISA_METRICS_ADDR", "")
	require.NoError(t, os.Unsetenv("REVISA_METRICS_ADDR"))

	require.NoError(t, LoadDotEnv(path))
	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, ":9999", cfg.Server.MetricsAddr)

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadDotEnv(""))
}

func TestSanitize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.UpgradeRatio = 0
	cfg.Engine.UpgradeMinLen = 5
	cfg.Engine.UpgradeMaxLen = 3
	cfg.Escalation.QueueSize = -1
	cfg.Escalation.InferenceTimeoutMS = -5
	cfg.Server.MaxWordLength = 0
	cfg.Sanitize()

	d := DefaultConfig()
	assert.Equal(t, d.Engine.UpgradeRatio, cfg.Engine.UpgradeRatio)
	assert.Equal(t, 5, cfg.Engine.UpgradeMinLen)
	assert.Equal(t, d.Engine.UpgradeMaxLen, cfg.Engine.UpgradeMaxLen)
	assert.Equal(t, d.Escalation.QueueSize, cfg.Escalation.QueueSize)
	assert.Zero(t, cfg.Escalation.InferenceTimeoutMS)
	assert.Equal(t, d.Server.MaxWordLength, cfg.Server.MaxWordLength)
}

func TestGetActiveConfigPath(t *testing.T) {
	assert.Equal(t, "built-in defaults", GetActiveConfigPath(""))
	assert.True(t, filepath.IsAbs(GetActiveConfigPath("rel.toml")))
}
