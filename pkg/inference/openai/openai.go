// Package openai is an inference backend talking to any OpenAI compatible
// chat endpoint, typically a local model server. It registers itself as the
// "openai" backend.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/charmbracelet/log"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/bastiangx/revisa/internal/logger"
	"github.com/bastiangx/revisa/pkg/inference"
)

// DefaultSystemPrompt asks for a corrected copy and nothing else.
const DefaultSystemPrompt = "Você corrige erros de digitação e ortografia em português do Brasil. " +
	"Responda apenas com o texto corrigido, sem explicações. Se não houver erro, repita o texto."

// DefaultMinSimilarity rejects answers that drift too far from the input.
const DefaultMinSimilarity = 0.7

// placeholderKey is sent when no key is configured; local servers ignore it.
const placeholderKey = "sk-no-key"

func init() {
	inference.Register("openai", func(m inference.Manifest) (inference.Predictor, error) {
		opts := []Option{
			WithAPIKey(m.APIKey()),
			WithSystemPrompt(m.SystemPrompt),
			WithMaxRetries(m.MaxRetries),
		}
		if m.BaseURL != "" {
			opts = append(opts, WithBaseURL(m.BaseURL))
		}
		if m.Temperature > 0 {
			opts = append(opts, WithTemperature(m.Temperature))
		}
		if m.MaxTokens > 0 {
			opts = append(opts, WithMaxTokens(m.MaxTokens))
		}
		if m.MinSimilarity > 0 {
			opts = append(opts, WithMinSimilarity(m.MinSimilarity))
		}
		return New(m.Model, opts...)
	})
}

// Predictor implements inference.Predictor over the chat completions API.
type Predictor struct {
	client oai.Client
	model  string
	cfg    config
	logger *log.Logger
}

type config struct {
	apiKey        string
	baseURL       string
	systemPrompt  string
	temperature   float64
	maxTokens     int
	maxRetries    int
	minSimilarity float64
	timeout       time.Duration
}

// Option is a functional option for Predictor.
type Option func(*config)

// WithAPIKey sets the bearer key. Empty keeps the placeholder.
func WithAPIKey(key string) Option {
	return func(c *config) {
		if key != "" {
			c.apiKey = key
		}
	}
}

// WithBaseURL points the client at a compatible server.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithSystemPrompt replaces DefaultSystemPrompt. Empty keeps the default.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) {
		if prompt != "" {
			c.systemPrompt = prompt
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *config) { c.temperature = t }
}

// WithMaxTokens bounds the completion length.
func WithMaxTokens(n int) Option {
	return func(c *config) { c.maxTokens = n }
}

// WithMaxRetries sets the client retry count.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithMinSimilarity sets the Jaro-Winkler floor an answer must reach.
func WithMinSimilarity(s float64) Option {
	return func(c *config) { c.minSimilarity = s }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New builds a Predictor for model.
func New(model string, opts ...Option) (*Predictor, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := config{
		apiKey:        placeholderKey,
		systemPrompt:  DefaultSystemPrompt,
		minSimilarity: DefaultMinSimilarity,
	}
	for _, o := range opts {
		o(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Predictor{
		client: oai.NewClient(reqOpts...),
		model:  model,
		cfg:    cfg,
		logger: logger.New("openai"),
	}, nil
}

// Ready is true once constructed; reachability is only known per request.
func (p *Predictor) Ready() bool {
	return true
}

// Predict asks the model for a corrected copy of text. Transport errors,
// empty answers and answers that are not similar enough to the input all
// come back as no suggestion.
func (p *Predictor) Predict(ctx context.Context, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(text))
	if err != nil {
		p.logger.Debugf("chat completion failed: %v", err)
		return "", false
	}
	if len(resp.Choices) == 0 {
		p.logger.Debug("empty choices in response")
		return "", false
	}

	out := cleanAnswer(resp.Choices[0].Message.Content)
	if out == "" || out == text {
		return "", false
	}
	if score := matchr.JaroWinkler(text, out, false); score < p.cfg.minSimilarity {
		p.logger.Debugf("answer %q too far from %q (%.2f)", out, text, score)
		return "", false
	}
	return out, true
}

func (p *Predictor) buildParams(text string) oai.ChatCompletionNewParams {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(p.cfg.systemPrompt),
			oai.UserMessage(text),
		},
	}
	if p.cfg.temperature > 0 {
		params.Temperature = param.NewOpt(p.cfg.temperature)
	}
	if p.cfg.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(p.cfg.maxTokens))
	}
	return params
}

// cleanAnswer strips whitespace and one pair of wrapping quotes.
func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, "'", "“"} {
		closing := q
		if q == "“" {
			closing = "”"
		}
		if len(s) >= len(q)+len(closing) && strings.HasPrefix(s, q) && strings.HasSuffix(s, closing) {
			return strings.TrimSpace(s[len(q) : len(s)-len(closing)])
		}
	}
	return s
}
