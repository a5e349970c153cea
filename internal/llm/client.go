package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/errors"
)

const (
	defaultDeepSeekBaseURL = "https://api.deepseek.com"
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOllamaBaseURL   = "http://localhost:11434"

	defaultTimeout = 120 * time.Second
	maxErrorBody   = 300
)

// apiKeyEnvVars are checked in order when no key is configured explicitly.
var apiKeyEnvVars = []string{"DEEPSEEK_API_KEY", "DEEPSEEK_KEY", "DEEPSEEK_TOKEN"}

// Config selects the provider and model. APIKey may be left empty for
// hosted providers, in which case the environment is consulted.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// Client implements Service over HTTP for all supported providers.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates the configuration, fills in provider defaults and
// resolves the API key.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New(errors.ErrTypeConfig, "model name is required")
	}

	switch cfg.Provider {
	case ProviderDeepSeek:
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultDeepSeekBaseURL
		}

		if cfg.APIKey = ResolveAPIKey(cfg.APIKey); cfg.APIKey == "" {
			return nil, errors.New(errors.ErrTypeConfig, "DeepSeek API key is not configured").
				WithSuggestion("Set the DEEPSEEK_API_KEY environment variable or the llm.api_key config field")
		}
	case ProviderOpenAI:
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultOpenAIBaseURL
		}

		if cfg.APIKey = ResolveAPIKey(cfg.APIKey); cfg.APIKey == "" {
			return nil, errors.New(errors.ErrTypeConfig, "OpenAI API key is not configured").
				WithSuggestion("Set the llm.api_key config field")
		}
	case ProviderOllama:
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultOllamaBaseURL
		}
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported LLM provider: %s", cfg.Provider)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// ResolveAPIKey returns the explicit key if set, otherwise the first
// non-empty key found in the environment. Surrounding quotes, which often
// leak in from .env files, are stripped.
func ResolveAPIKey(explicit string) string {
	if explicit != "" {
		return explicit
	}

	for _, name := range apiKeyEnvVars {
		if value := strings.Trim(strings.TrimSpace(os.Getenv(name)), `"'`); value != "" {
			return value
		}
	}

	return ""
}

// Complete sends the prompt to the configured provider and returns the
// trimmed model text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	var (
		text string
		err  error
	)

	switch c.cfg.Provider {
	case ProviderDeepSeek, ProviderOpenAI:
		text, err = c.completeChat(ctx, prompt)
	case ProviderOllama:
		text, err = c.completeOllama(ctx, prompt)
	default:
		return "", errors.Newf(errors.ErrTypeLLM, "unsupported LLM provider: %s", c.cfg.Provider)
	}

	if err != nil {
		return "", err
	}

	c.logger.Debug("model responded",
		zap.String("provider", c.cfg.Provider),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(text)))

	return strings.TrimSpace(text), nil
}

// OpenAI-compatible chat completion structures, also used by DeepSeek.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) completeChat(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		Stream:      false,
	}

	body, err := c.post(ctx, c.cfg.BaseURL+"/chat/completions", reqBody, c.cfg.APIKey)
	if err != nil {
		return "", err
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeLLM, "failed to decode model response")
	}

	if response.Error != nil {
		return "", errors.Newf(errors.ErrTypeLLM, "model API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", errors.New(errors.ErrTypeLLM, "model returned no choices")
	}

	return response.Choices[0].Message.Content, nil
}

// Ollama generate structures.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) completeOllama(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
	}

	body, err := c.post(ctx, c.cfg.BaseURL+"/api/generate", reqBody, "")
	if err != nil {
		return "", err
	}

	var response ollamaResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeLLM, "failed to decode model response")
	}

	if response.Error != "" {
		return "", errors.Newf(errors.ErrTypeLLM, "model API error: %s", response.Error)
	}

	return response.Response, nil
}

// post sends a JSON payload and returns the response body. A non-empty
// apiKey is attached as a bearer token.
func (c *Client) post(ctx context.Context, url string, payload any, apiKey string) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to encode model request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to create model request")
	}

	req.Header.Set("Content-Type", "application/json")

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "model request failed").
			WithSuggestion("Check network connectivity and the configured base URL")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeLLM, "failed to read model response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrTypeLLM, "model API returned status %d: %s",
			resp.StatusCode, truncate(string(body), maxErrorBody))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
