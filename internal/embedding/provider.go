// Package embedding computes per-table embedding vectors that are stored in
// the artifact cache alongside the schema snapshot. Embeddings are optional
// metadata: when the provider is disabled the rest of the system runs
// unchanged.
package embedding

import (
	"context"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/schema"
)

// Provider computes one vector per table and returns them keyed by table
// name. A disabled provider returns a nil map and no error.
type Provider interface {
	EmbedTables(ctx context.Context, tables []schema.Table) (map[string][]float32, error)
	Enabled() bool
	Name() string
}

// Supported providers.
const (
	ProviderDisabled = "disabled"
	ProviderOllama   = "ollama"
)

// NewProvider builds the provider named in the configuration.
func NewProvider(provider, model, baseURL string) (Provider, error) {
	switch provider {
	case ProviderDisabled, "":
		return Disabled{}, nil
	case ProviderOllama:
		return NewOllamaProvider(baseURL, model), nil
	default:
		return nil, errors.Newf(errors.ErrTypeEmbedding, "unsupported embedding provider: %s", provider)
	}
}

// Disabled is the no-op provider.
type Disabled struct{}

func (Disabled) EmbedTables(ctx context.Context, tables []schema.Table) (map[string][]float32, error) {
	return nil, nil
}

func (Disabled) Enabled() bool { return false }

func (Disabled) Name() string { return ProviderDisabled }
