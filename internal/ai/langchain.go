package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient serves both roles through langchaingo's OpenAI driver.
type LangChainClient struct {
	llm      *openai.LLM
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

func NewLangChainClient(cfg Config) (*LangChainClient, error) {
	token := cfg.APIKey
	if token == "" {
		// Local OpenAI-compatible servers accept any token.
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain llm failed: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create langchain embedder failed: %w", err)
	}
	return &LangChainClient{
		llm:      llm,
		embedder: embedder,
		model:    cfg.EmbeddingModel,
		logger:   slog.Default().With("component", "langchain-client"),
	}, nil
}

func (c *LangChainClient) Model() string {
	return c.model
}

func (c *LangChainClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	c.logger.Debug("embedding texts", "count", len(texts))
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d want %d", len(vectors), len(texts))
	}
	return vectors, nil
}

func (c *LangChainClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	return vector, nil
}

func (c *LangChainClient) Generate(ctx context.Context, prompt string) (string, error) {
	answer, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	return answer, nil
}
