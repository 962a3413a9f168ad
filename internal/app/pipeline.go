package app

import (
	"context"
	"fmt"
	"math"

	"knowledge-assistant/internal/access"
	"knowledge-assistant/internal/ai"
	"knowledge-assistant/internal/index"
	"knowledge-assistant/internal/model"
)

const (
	MsgNoDocuments = "No documents uploaded yet."
	MsgNotFound    = "Information not found in knowledge base."

	defaultTopK = 3
)

const (
	SimilarityInverse = "inverse"
	SimilarityLinear  = "linear"
)

type PipelineConfig struct {
	TopK int
	// Similarity maps a distance d to a score: "inverse" is 1/(1+d),
	// "linear" is 1-d.
	Similarity string
	// Prefilter restricts the search to the role's departments instead of
	// filtering the top-k afterwards.
	Prefilter bool
}

// Answer is the pipeline outcome before timing is attached.
type Answer struct {
	Text       string
	Confidence float64
	Sources    []string
}

// Pipeline answers a question from the chunks the role may see.
type Pipeline struct {
	index     *index.Manager
	embedder  ai.Embedder
	generator ai.Generator
	cfg       PipelineConfig
}

func NewPipeline(mgr *index.Manager, embedder ai.Embedder, generator ai.Generator, cfg PipelineConfig) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.Similarity == "" {
		cfg.Similarity = SimilarityInverse
	}
	return &Pipeline{index: mgr, embedder: embedder, generator: generator, cfg: cfg}
}

func (p *Pipeline) Answer(ctx context.Context, question, role string) (*Answer, error) {
	if p.index.Len() == 0 {
		return emptyAnswer(MsgNoDocuments), nil
	}

	vec, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question failed: %w", err)
	}

	visible := func(md model.Metadata) bool { return access.Visible(role, md.Department) }
	var searchFilter index.Filter
	if p.cfg.Prefilter {
		searchFilter = visible
	}
	hits, err := p.index.Search(vec, p.cfg.TopK, searchFilter)
	if err != nil {
		return nil, fmt.Errorf("search index failed: %w", err)
	}

	kept := make([]model.Chunk, 0, len(hits))
	scores := make([]float64, 0, len(hits))
	for _, h := range hits {
		if !visible(h.Chunk.Metadata) {
			continue
		}
		kept = append(kept, h.Chunk)
		scores = append(scores, p.similarity(float64(h.Distance)))
	}
	if len(kept) == 0 {
		return emptyAnswer(MsgNotFound), nil
	}

	text, err := p.generator.Generate(ctx, buildPrompt(question, kept))
	if err != nil {
		return nil, fmt.Errorf("generate answer failed: %w", err)
	}

	return &Answer{
		Text:       text,
		Confidence: confidence(scores),
		Sources:    uniqueSources(kept),
	}, nil
}

func (p *Pipeline) similarity(d float64) float64 {
	if p.cfg.Similarity == SimilarityLinear {
		return 1 - d
	}
	return 1 / (1 + d)
}

func emptyAnswer(msg string) *Answer {
	return &Answer{Text: msg, Confidence: 0, Sources: []string{}}
}

// minConfidence is the lowest confidence a non-empty result set reports,
// so that 0 always means nothing was retrieved.
const minConfidence = 0.01

// confidence averages scores, scales to a percentage, clamps to [0,100]
// and rounds to two decimals.
func confidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	pct := sum / float64(len(scores)) * 100
	pct = round2(math.Max(0, math.Min(100, pct)))
	return math.Max(minConfidence, pct)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func uniqueSources(chunks []model.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.Metadata.Source]; ok {
			continue
		}
		seen[c.Metadata.Source] = struct{}{}
		out = append(out, c.Metadata.Source)
	}
	return out
}

// Documents lists the indexed sources role may see.
func (p *Pipeline) Documents(role string) []model.DocumentSummary {
	docs := p.index.Documents(func(md model.Metadata) bool { return access.Visible(role, md.Department) })
	if docs == nil {
		return []model.DocumentSummary{}
	}
	return docs
}

// IndexedChunks reports the number of entries in the index.
func (p *Pipeline) IndexedChunks() int {
	return p.index.Len()
}
