package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assistant/internal/model"
)

func sampleSnapshot() *Snapshot {
	ix := New()
	_ = ix.Add([]Entry{
		entry("c-1", "deploy.txt", model.DepartmentEngineering, 0.1, 0.2, 0.3),
		entry("c-2", "hr_policy.txt", model.DepartmentHR, 0.4, 0.5, 0.6),
		entry("c-3", "deploy.txt", model.DepartmentEngineering, 0.7, 0.8, 0.9),
	})
	return ix.Snapshot("embed-v1")
}

func storeRoundTrip(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	want := sampleSnapshot()
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Meta.EmbeddingModel, got.Meta.EmbeddingModel)
	assert.Equal(t, 3, got.Meta.Count)
	assert.Equal(t, 3, got.Meta.Dimension)
	require.Len(t, got.Entries, 3)
	for i := range want.Entries {
		assert.Equal(t, want.Entries[i].Chunk, got.Entries[i].Chunk)
		assert.Equal(t, want.Entries[i].Vector, got.Entries[i].Vector)
	}

	// A second save replaces the first one entirely.
	smaller := &Snapshot{Meta: want.Meta, Entries: want.Entries[:1]}
	require.NoError(t, store.Save(ctx, smaller))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "c-1", got.Entries[0].Chunk.ID)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	store, err := OpenBolt(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	storeRoundTrip(t, store)
}

func TestBoltStoreReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenBolt(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, store.Close())

	store, err = OpenBolt(dir)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Entries, 3)
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := OpenBadger("", true)
	require.NoError(t, err)
	defer store.Close()
	storeRoundTrip(t, store)
}

func TestNewStoreUnknownKind(t *testing.T) {
	_, err := NewStore("faiss", t.TempDir())
	assert.Error(t, err)
}

type memoryStore struct {
	snap    *Snapshot
	saveErr error
	saves   int
}

func (s *memoryStore) Load(context.Context) (*Snapshot, error) {
	if s.snap == nil {
		return nil, ErrNoSnapshot
	}
	return s.snap, nil
}

func (s *memoryStore) Save(_ context.Context, snap *Snapshot) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap
	return nil
}

func (s *memoryStore) Close() error { return nil }

func TestManagerOpenEmpty(t *testing.T) {
	m, err := Open(context.Background(), &memoryStore{}, "embed-v1")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestManagerOpenRejectsOtherModel(t *testing.T) {
	_, err := Open(context.Background(), &memoryStore{snap: sampleSnapshot()}, "embed-v2")
	assert.ErrorIs(t, err, ErrEmbeddingModelMismatch)
}

func TestManagerAddPersists(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	m, err := Open(ctx, store, "embed-v1")
	require.NoError(t, err)

	require.NoError(t, m.Add(ctx, []Entry{entry("a", "a.txt", model.DepartmentHR, 1, 2)}))
	assert.Equal(t, 1, m.Len())
	require.NotNil(t, store.snap)
	assert.Len(t, store.snap.Entries, 1)

	reopened, err := Open(ctx, store, "embed-v1")
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())
}

func TestManagerAddRollsBackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	m, err := Open(ctx, store, "embed-v1")
	require.NoError(t, err)
	require.NoError(t, m.Add(ctx, []Entry{entry("a", "a.txt", model.DepartmentHR, 1, 2)}))

	store.saveErr = errors.New("disk full")
	err = m.Add(ctx, []Entry{entry("b", "b.txt", model.DepartmentHR, 3, 4)})
	require.Error(t, err)
	assert.Equal(t, 1, m.Len())

	hits, err := m.Search([]float32{3, 4}, 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Chunk.ID)
}

func TestManagerRollbackRestoresDimension(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{saveErr: errors.New("read-only")}
	m, err := Open(ctx, store, "embed-v1")
	require.NoError(t, err)

	require.Error(t, m.Add(ctx, []Entry{entry("a", "a.txt", model.DepartmentHR, 1, 2)}))
	store.saveErr = nil
	require.NoError(t, m.Add(ctx, []Entry{entry("b", "b.txt", model.DepartmentHR, 1, 2, 3)}))
	assert.Equal(t, 1, m.Len())
}

func TestManagerReset(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	m, err := Open(ctx, store, "embed-v1")
	require.NoError(t, err)
	require.NoError(t, m.Add(ctx, []Entry{entry("a", "a.txt", model.DepartmentHR, 1)}))

	require.NoError(t, m.Reset(ctx))
	assert.Equal(t, 0, m.Len())
	assert.Empty(t, store.snap.Entries)
}
