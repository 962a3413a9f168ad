package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const boltFileName = "index.db"

var (
	bucketMeta     = []byte("meta")
	bucketEntries  = []byte("entries")
	bucketDocstore = []byte("docstore")
	keyMeta        = []byte("meta")
)

// BoltStore keeps the snapshot in a single bbolt file inside dir. Entries
// are keyed by chunk ID; the docstore bucket maps position to chunk ID.
type BoltStore struct {
	db *bbolt.DB
}

func OpenBolt(dir string) (*BoltStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir failed: %w", err)
	}
	db, err := bbolt.Open(filepath.Join(dir, boltFileName), 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt index failed: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(_ context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(bucketMeta)
		if mb == nil {
			return ErrNoSnapshot
		}
		raw := mb.Get(keyMeta)
		if raw == nil {
			return ErrNoSnapshot
		}
		var meta Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("unmarshal index meta failed: %w", err)
		}

		eb, db := tx.Bucket(bucketEntries), tx.Bucket(bucketDocstore)
		if eb == nil || db == nil {
			return fmt.Errorf("index file is missing buckets")
		}
		entries := make([]Entry, 0, meta.Count)
		c := db.Cursor()
		for k, id := c.First(); k != nil; k, id = c.Next() {
			data := eb.Get(id)
			if data == nil {
				return fmt.Errorf("docstore points at missing entry %s", id)
			}
			e, err := unmarshalEntry(data)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		snap = &Snapshot{Meta: meta, Entries: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *BoltStore) Save(_ context.Context, snap *Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketEntries, bucketDocstore} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
		}
		mb, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		eb, err := tx.CreateBucket(bucketEntries)
		if err != nil {
			return err
		}
		db, err := tx.CreateBucket(bucketDocstore)
		if err != nil {
			return err
		}

		for i, e := range snap.Entries {
			data, err := marshalEntry(e)
			if err != nil {
				return err
			}
			id := []byte(e.Chunk.ID)
			if err := eb.Put(id, data); err != nil {
				return err
			}
			if err := db.Put(positionKey(i), id); err != nil {
				return err
			}
		}

		meta := snap.Meta
		meta.Count = len(snap.Entries)
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal index meta failed: %w", err)
		}
		return mb.Put(keyMeta, raw)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
