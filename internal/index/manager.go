package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"knowledge-assistant/internal/model"
)

// Store persists snapshots.
type Store interface {
	// Load returns ErrNoSnapshot when nothing was saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the persisted snapshot atomically.
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Manager owns the shared index. Searches run under a read lock; Add and
// Reset hold the write lock across the in-memory change and the persist,
// so readers never observe an entry that is not on disk.
type Manager struct {
	mu             sync.RWMutex
	index          *Index
	store          Store
	embeddingModel string
	logger         *slog.Logger
}

// Open loads the persisted snapshot, if any. A snapshot built with another
// embedding model is refused.
func Open(ctx context.Context, store Store, embeddingModel string) (*Manager, error) {
	m := &Manager{
		index:          New(),
		store:          store,
		embeddingModel: embeddingModel,
		logger:         slog.Default().With("component", "index"),
	}

	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		m.logger.Info("no persisted index, starting empty")
		return m, nil
	case err != nil:
		return nil, fmt.Errorf("load index failed: %w", err)
	}

	if snap.Meta.EmbeddingModel != "" && embeddingModel != "" && snap.Meta.EmbeddingModel != embeddingModel {
		return nil, fmt.Errorf("%w: index built with %q, configured %q",
			ErrEmbeddingModelMismatch, snap.Meta.EmbeddingModel, embeddingModel)
	}
	if err := m.index.Restore(snap); err != nil {
		return nil, fmt.Errorf("restore index failed: %w", err)
	}
	m.logger.Info("index loaded", "entries", m.index.Len(), "dimension", m.index.Dimension())
	return m, nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Len()
}

func (m *Manager) EmbeddingModel() string {
	return m.embeddingModel
}

func (m *Manager) Search(query []float32, k int, filter Filter) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Search(query, k, filter)
}

func (m *Manager) Documents(filter Filter) []model.DocumentSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Documents(filter)
}

// Add inserts entries and persists the whole index. If the persist fails
// the insert is undone and the error returned.
func (m *Manager) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	prevLen, prevDim := m.index.Len(), m.index.Dimension()
	if err := m.index.Add(entries); err != nil {
		return err
	}
	if err := m.store.Save(ctx, m.index.Snapshot(m.embeddingModel)); err != nil {
		m.index.truncate(prevLen, prevDim)
		return fmt.Errorf("persist index failed: %w", err)
	}
	m.logger.Debug("index persisted", "added", len(entries), "entries", m.index.Len())
	return nil
}

// Reset empties the index and persists the empty state.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fresh := New()
	if err := m.store.Save(ctx, fresh.Snapshot(m.embeddingModel)); err != nil {
		return fmt.Errorf("persist index failed: %w", err)
	}
	m.index = fresh
	return nil
}

func (m *Manager) Close() error {
	return m.store.Close()
}
