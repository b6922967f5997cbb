package inference

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// ManifestFile is the file a model directory must contain.
const ManifestFile = "inference.toml"

// Manifest describes the backend living in a model directory:
//
//	backend = "openai"
//	base_url = "http://127.0.0.1:8080/v1"
//	model = "corretor-pt-br"
//	api_key_env = "REVISA_INFERENCE_KEY"
//	min_similarity = 0.8
type Manifest struct {
	Backend       string  `toml:"backend"`
	BaseURL       string  `toml:"base_url"`
	Model         string  `toml:"model"`
	APIKeyEnv     string  `toml:"api_key_env"`
	SystemPrompt  string  `toml:"system_prompt"`
	Temperature   float64 `toml:"temperature"`
	MaxTokens     int     `toml:"max_tokens"`
	MaxRetries    int     `toml:"max_retries"`
	MinSimilarity float64 `toml:"min_similarity"`

	// Dir is where the manifest was read from.
	Dir string `toml:"-"`
}

// APIKey resolves the key from the environment variable the manifest names.
func (m Manifest) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}

// LoadManifest reads dir/inference.toml. A missing directory or manifest is
// reported as ErrNoModel.
func LoadManifest(dir string) (Manifest, error) {
	if strings.TrimSpace(dir) == "" {
		return Manifest{}, ErrNoModel
	}
	path := filepath.Join(dir, ManifestFile)

	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, fmt.Errorf("%s: %w", path, ErrNoModel)
		}
		return Manifest{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	m.Backend = strings.ToLower(strings.TrimSpace(m.Backend))
	if m.Backend == "" {
		return Manifest{}, fmt.Errorf("%s: backend not set: %w", path, ErrNoModel)
	}
	m.Dir = dir
	return m, nil
}

// Factory builds a Predictor from a manifest.
type Factory func(Manifest) (Predictor, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// Register makes a backend available to Open. Backends register from init.
func Register(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if f == nil {
		panic("inference: Register factory is nil")
	}
	name = strings.ToLower(name)
	if _, dup := backends[name]; dup {
		panic("inference: Register called twice for backend " + name)
	}
	backends[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open reads the manifest in dir and builds its backend.
func Open(dir string) (Predictor, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	backendsMu.RLock()
	f, ok := backends[m.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("backend %q is not compiled in (have %v): %w", m.Backend, Backends(), ErrNoModel)
	}

	p, err := f(m)
	if err != nil {
		return nil, fmt.Errorf("backend %q: %w", m.Backend, err)
	}
	log.Debugf("Inference backend %q ready from %s", m.Backend, dir)
	return p, nil
}
