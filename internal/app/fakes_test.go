package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"knowledge-assistant/internal/chunker"
	"knowledge-assistant/internal/index"
	"knowledge-assistant/internal/model"
)

var vocabulary = []string{"leave", "salary", "deploy", "server", "holiday"}

// keywordEmbedder counts vocabulary words; the last component is a constant
// so no vector is all zeros.
type keywordEmbedder struct {
	mu      sync.Mutex
	calls   int
	failOn  string
	queries []string
}

func embedKeywords(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocabulary)+1)
	for i, w := range vocabulary {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(vocabulary)] = 1
	return vec
}

func (e *keywordEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if e.failOn != "" && strings.Contains(t, e.failOn) {
			return nil, errors.New("embedding service unavailable")
		}
		out[i] = embedKeywords(t)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queries = append(e.queries, text)
	e.mu.Unlock()
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding service unavailable")
	}
	return embedKeywords(text), nil
}

func (e *keywordEmbedder) Model() string { return "keyword-test" }

type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if g.reply == "" {
		return "generated answer", nil
	}
	return g.reply, nil
}

func (g *recordingGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type memoryStore struct {
	mu      sync.Mutex
	snap    *index.Snapshot
	saveErr error
}

func (s *memoryStore) Load(context.Context) (*index.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, index.ErrNoSnapshot
	}
	return s.snap, nil
}

func (s *memoryStore) Save(_ context.Context, snap *index.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap
	return nil
}

func (s *memoryStore) Close() error { return nil }

type fixture struct {
	store     *memoryStore
	index     *index.Manager
	embedder  *keywordEmbedder
	generator *recordingGenerator
	ingest    *IngestService
	pipeline  *Pipeline
}

func newFixture(t *testing.T, cfg PipelineConfig, opts ...IngestOption) *fixture {
	t.Helper()
	f := &fixture{
		store:     &memoryStore{},
		embedder:  &keywordEmbedder{},
		generator: &recordingGenerator{},
	}
	var err error
	f.index, err = index.Open(context.Background(), f.store, f.embedder.Model())
	require.NoError(t, err)

	f.ingest, err = NewIngestService(f.index, f.embedder, chunker.NewWindow(chunker.DefaultSize, chunker.DefaultOverlap), opts...)
	require.NoError(t, err)
	t.Cleanup(f.ingest.Release)

	f.pipeline = NewPipeline(f.index, f.embedder, f.generator, cfg)
	return f
}

func (f *fixture) mustIngest(t *testing.T, filename, text string) *IngestResult {
	t.Helper()
	res, err := f.ingest.Ingest(context.Background(), filename, text)
	require.NoError(t, err)
	return res
}

type invalidatorFunc func(ctx context.Context) error

func (f invalidatorFunc) Invalidate(ctx context.Context) error { return f(ctx) }

type recorderFunc func(ctx context.Context, row model.QueryLog) error

func (f recorderFunc) Record(ctx context.Context, row model.QueryLog) error { return f(ctx, row) }

func reopen(f *fixture) (*index.Manager, error) {
	return index.Open(context.Background(), f.store, f.embedder.Model())
}
