// Package llm calls the configured language model to turn a question and a
// schema excerpt into SQL text. The model is treated as untrusted: its
// output always passes through validation before execution.
package llm

import "context"

// Service is implemented by model backends. Complete sends a fully built
// prompt and returns the raw model text.
type Service interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Supported providers.
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
)
