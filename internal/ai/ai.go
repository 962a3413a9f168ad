// Package ai wraps the external embedding and generation services.
package ai

import (
	"context"
	"fmt"
)

// Embedder maps text to vectors. The same Embedder must serve both
// ingestion and queries so that both live in one embedding space.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Model names the embedding model; it is recorded with the index.
	Model() string
}

// Generator turns a prompt into a completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
}

// Provider bundles the embedder and generator built from one Config.
type Provider struct {
	Embedder  Embedder
	Generator Generator
}

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg Config) (*Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		client := NewOpenAICompatibleClient(cfg)
		return &Provider{Embedder: client, Generator: client}, nil
	case "langchain":
		lc, err := NewLangChainClient(cfg)
		if err != nil {
			return nil, err
		}
		return &Provider{Embedder: lc, Generator: lc}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
