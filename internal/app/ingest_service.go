package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"knowledge-assistant/internal/access"
	"knowledge-assistant/internal/ai"
	"knowledge-assistant/internal/chunker"
	"knowledge-assistant/internal/index"
	"knowledge-assistant/internal/model"
)

const (
	defaultBatchSize = 16
	defaultPoolSize  = 4
)

// Invalidator drops answers cached before an ingestion.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// IngestResult describes an indexed document.
type IngestResult struct {
	Source     string           `json:"source"`
	Department model.Department `json:"department"`
	ChunkCount int              `json:"chunk_count"`
}

// IngestService turns raw document text into indexed chunks.
type IngestService struct {
	index       *index.Manager
	embedder    ai.Embedder
	chunker     chunker.Chunker
	classifier  access.Classifier
	invalidator Invalidator
	pool        *ants.Pool
	batchSize   int
	logger      *slog.Logger
}

type IngestOption func(*IngestService) error

// WithBatchSize sets how many chunks go into one embedding request.
func WithBatchSize(n int) IngestOption {
	return func(s *IngestService) error {
		if n <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		s.batchSize = n
		return nil
	}
}

// WithPoolSize sets the number of concurrent embedding requests.
func WithPoolSize(n int) IngestOption {
	return func(s *IngestService) error {
		if n <= 0 {
			return fmt.Errorf("pool size must be positive, got %d", n)
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return fmt.Errorf("create embedding pool failed: %w", err)
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

func WithClassifier(c access.Classifier) IngestOption {
	return func(s *IngestService) error {
		s.classifier = c
		return nil
	}
}

func WithInvalidator(inv Invalidator) IngestOption {
	return func(s *IngestService) error {
		s.invalidator = inv
		return nil
	}
}

func NewIngestService(mgr *index.Manager, embedder ai.Embedder, chk chunker.Chunker, opts ...IngestOption) (*IngestService, error) {
	pool, err := ants.NewPool(defaultPoolSize)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool failed: %w", err)
	}
	s := &IngestService{
		index:      mgr,
		embedder:   embedder,
		chunker:    chk,
		classifier: access.FilenameClassifier{},
		pool:       pool,
		batchSize:  defaultBatchSize,
		logger:     slog.Default().With("component", "ingest"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}
	return s, nil
}

// Release stops the embedding pool.
func (s *IngestService) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Ingest classifies, chunks, embeds and indexes one document. It returns
// only after the index has been persisted.
func (s *IngestService) Ingest(ctx context.Context, filename, text string) (*IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}

	doc := model.Document{
		Content: text,
		Metadata: model.Metadata{
			Source:     filename,
			Department: s.classifier.Classify(filename, text),
		},
	}

	if !doc.Metadata.Department.Valid() {
		return nil, fmt.Errorf("classify %s failed: unknown department %q", filename, doc.Metadata.Department)
	}

	pieces, err := s.chunker.Split(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("split document failed: %w", err)
	}
	chunks := make([]model.Chunk, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) == "" {
			continue
		}
		chunks = append(chunks, model.Chunk{ID: uuid.NewString(), Text: p, Metadata: doc.Metadata})
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	entries := make([]index.Entry, len(chunks))
	for i := range chunks {
		entries[i] = index.Entry{Vector: vectors[i], Chunk: chunks[i]}
	}
	if err := s.index.Add(ctx, entries); err != nil {
		return nil, fmt.Errorf("index document failed: %w", err)
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("invalidate answer cache failed", "err", err)
		}
	}

	s.logger.Info("document indexed",
		"source", doc.Metadata.Source,
		"department", doc.Metadata.Department,
		"chunks", len(chunks))
	return &IngestResult{
		Source:     doc.Metadata.Source,
		Department: doc.Metadata.Department,
		ChunkCount: len(chunks),
	}, nil
}

// embed sends chunk batches through the pool. Vectors come back in chunk
// order; the first failing batch fails the whole call.
func (s *IngestService) embed(ctx context.Context, chunks []model.Chunk) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(chunks))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			out, err := s.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				fail(fmt.Errorf("embed chunks %d-%d failed: %w", start, end, err))
				return
			}
			if len(out) != len(texts) {
				fail(fmt.Errorf("embed chunks %d-%d failed: got %d vectors for %d texts", start, end, len(out), len(texts)))
				return
			}
			copy(vectors[start:end], out)
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit embedding batch failed: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}
