// Package resolver proposes alternate ticker symbols when every data source
// has failed to recognise one. Deterministic spelling variations are tried
// first; an OpenAI-compatible model is consulted as the final tier. Resolver
// failures never affect provider or backoff state.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoCandidate signals that no plausible alternate symbol was found. The
// enrichment attempt simply ends there.
var ErrNoCandidate = errors.New("resolver: no candidate symbol")

// Resolution is the structured answer produced for an unresolved ticker.
type Resolution struct {
	AlternativeSymbols []string `json:"alternative_symbols"`
	CompanyName        string   `json:"company_name"`
	Confidence         string   `json:"confidence"`
	Reasoning          string   `json:"reasoning,omitempty"`
}

// Resolver produces candidate symbols for tickers the provider chain could
// not resolve.
type Resolver struct {
	config       *Config
	openaiClient *openai.Client
	retryHandler *retryHandler
}

// Option configures optional resolver behaviour.
type Option func(*resolverOptions)

type resolverOptions struct {
	httpClient   *http.Client
	openaiClient *openai.Client
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *resolverOptions) {
		opts.httpClient = client
	}
}

// WithOpenAIClient injects a pre-configured OpenAI client (primarily for testing).
func WithOpenAIClient(client *openai.Client) Option {
	return func(opts *resolverOptions) {
		opts.openaiClient = client
	}
}

// New constructs a resolver from configuration.
func New(cfg *Config, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	optState := resolverOptions{}
	for _, opt := range opts {
		opt(&optState)
	}

	var oaClient *openai.Client
	if optState.openaiClient != nil {
		oaClient = optState.openaiClient
	} else {
		oaOpts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
		}
		if cfg.Timeout > 0 {
			oaOpts = append(oaOpts, option.WithRequestTimeout(cfg.Timeout))
		}
		if optState.httpClient != nil {
			oaOpts = append(oaOpts, option.WithHTTPClient(optState.httpClient))
		}
		clientVal := openai.NewClient(oaOpts...)
		oaClient = &clientVal
	}

	return &Resolver{
		config:       cfg,
		openaiClient: oaClient,
		retryHandler: newRetryHandler(cfg.MaxRetries),
	}, nil
}

// Resolve returns candidate symbols for an unresolved ticker. Deterministic
// variations are free and satisfy the call on their own; the model is
// consulted only when none apply. It returns ErrNoCandidate when neither
// tier produces anything new.
func (r *Resolver) Resolve(ctx context.Context, ticker string) ([]string, error) {
	original := strings.ToUpper(strings.TrimSpace(ticker))
	candidates := make([]string, 0, 8)
	for _, v := range Variations(original) {
		if v != original {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) > 0 {
		return candidates, nil
	}

	resolution, err := r.resolveWithModel(ctx, original)
	if err != nil {
		if errors.Is(err, ErrNoCandidate) {
			return nil, err
		}
		return nil, fmt.Errorf("resolver: %w", errors.Join(ErrNoCandidate, err))
	}
	for _, s := range resolution.AlternativeSymbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || s == original || contains(candidates, s) {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidate
	}
	return candidates, nil
}

const resolvePromptTemplate = `Research the stock ticker symbol %q.

This ticker may be a broker-specific format (for example "GEO.US") that is not
accepted by standard market-data APIs.

Respond ONLY with valid JSON in this exact format:
{"alternative_symbols": ["TICKER1", "TICKER2"], "company_name": "Company Name Inc.", "confidence": "high|medium|low", "reasoning": "brief explanation"}

If you cannot determine the ticker with reasonable confidence, respond with:
{"alternative_symbols": [], "company_name": null, "confidence": "none", "reasoning": "could not identify this ticker"}`

func (r *Resolver) resolveWithModel(ctx context.Context, ticker string) (*Resolution, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(resolvePromptTemplate, ticker)),
		},
		MaxCompletionTokens: openai.Int(500),
		Temperature:         openai.Float(0),
	}

	var completion *openai.ChatCompletion
	err := r.retryHandler.do(ctx, func() error {
		resp, callErr := r.openaiClient.Chat.Completions.New(ctx, params)
		if callErr != nil {
			return callErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if completion == nil || len(completion.Choices) == 0 {
		return nil, errors.New("resolver: empty completion")
	}

	resolution, err := parseResolution(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(resolution.Confidence, "none") {
		return nil, ErrNoCandidate
	}
	return resolution, nil
}

// parseResolution decodes the model output, tolerating markdown code fences.
func parseResolution(content string) (*Resolution, error) {
	jsonStr := strings.TrimSpace(content)
	if idx := strings.Index(jsonStr, "```json"); idx >= 0 {
		jsonStr = jsonStr[idx+len("```json"):]
		if end := strings.Index(jsonStr, "```"); end >= 0 {
			jsonStr = jsonStr[:end]
		}
	} else if idx := strings.Index(jsonStr, "```"); idx >= 0 {
		jsonStr = jsonStr[idx+len("```"):]
		if end := strings.Index(jsonStr, "```"); end >= 0 {
			jsonStr = jsonStr[:end]
		}
	}
	jsonStr = strings.TrimSpace(jsonStr)

	var resolution Resolution
	if err := json.Unmarshal([]byte(jsonStr), &resolution); err != nil {
		return nil, fmt.Errorf("resolver: parse model output: %w", err)
	}
	return &resolution, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
