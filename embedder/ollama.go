package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// OllamaOptions configure the Ollama embedder.
type OllamaOptions struct {
	// Host is the base URL of the Ollama server.
	Host string
	// Model selects the embedding model.
	Model string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Ollama implements Embedder against a local Ollama server.
type Ollama struct {
	host   string
	model  string
	client *http.Client

	// Ollama's llama runner crashes on concurrent embedding requests, so
	// all calls are serialized.
	mu sync.Mutex
}

// NewOllama creates an Ollama embedder. Defaults target a local server with
// the nomic-embed-text model.
func NewOllama(optFns ...func(o *OllamaOptions)) *Ollama {
	opts := OllamaOptions{
		Host:  "http://localhost:11434",
		Model: "nomic-embed-text",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Ollama{host: opts.Host, model: opts.Model, client: client}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements Embedder.
func (e *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var decoded ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("received empty embedding from ollama")
	}

	return decoded.Embedding, nil
}

// EmbedBatch implements Embedder. The embeddings endpoint takes one prompt
// per call, so the batch is processed sequentially.
func (e *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}

		vectors = append(vectors, vec)
	}

	return vectors, nil
}
