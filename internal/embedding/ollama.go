package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/schema"
)

const embedTimeout = 120 * time.Second

// OllamaProvider calls the Ollama /api/embed endpoint with one rendered
// description per table.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: embedTimeout},
	}
}

func (p *OllamaProvider) Enabled() bool { return true }

func (p *OllamaProvider) Name() string { return ProviderOllama }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// EmbedTables embeds every table in one batch request. The result maps
// table names to vectors in input order.
func (p *OllamaProvider) EmbedTables(ctx context.Context, tables []schema.Table) (map[string][]float32, error) {
	if len(tables) == 0 {
		return nil, nil
	}

	input := make([]string, 0, len(tables))
	for _, table := range tables {
		input = append(input, schema.RenderTables([]schema.Table{table}))
	}

	body, err := json.Marshal(embedRequest{Model: p.model, Input: input})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to encode embed request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to create embed request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "embed request failed").
			WithSuggestion("Check that Ollama is running and reachable at the configured base URL")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)

		return nil, errors.Newf(errors.ErrTypeEmbedding, "embedding API returned status %d: %s",
			resp.StatusCode, string(respBody))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to decode embed response")
	}

	if result.Error != "" {
		return nil, errors.Newf(errors.ErrTypeEmbedding, "embedding API error: %s", result.Error)
	}

	if len(result.Embeddings) != len(tables) {
		return nil, errors.Newf(errors.ErrTypeEmbedding, "expected %d embeddings, got %d",
			len(tables), len(result.Embeddings))
	}

	vectors := make(map[string][]float32, len(tables))
	for i, table := range tables {
		vectors[table.Name] = result.Embeddings[i]
	}

	return vectors, nil
}
