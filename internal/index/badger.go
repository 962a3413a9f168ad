package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

var keyCurrent = []byte("current")

// BadgerStore writes each snapshot under a fresh generation prefix and then
// flips the "current" pointer in one transaction, so a crash mid-save leaves
// the previous snapshot intact.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadger opens (creating if needed) a badger database in dir. With
// inMemory set, dir is ignored; that mode is for tests.
func OpenBadger(dir string, inMemory bool) (*BadgerStore, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir failed: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	logger := slog.Default().With("component", "badger")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger index failed: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

func generationPrefix(gen uint64) []byte {
	return []byte("snap/" + strconv.FormatUint(gen, 10) + "/")
}

func (s *BadgerStore) currentGeneration(tx *badger.Txn) (uint64, error) {
	item, err := tx.Get(keyCurrent)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNoSnapshot
	}
	if err != nil {
		return 0, err
	}
	var gen uint64
	err = item.Value(func(val []byte) error {
		var perr error
		gen, perr = strconv.ParseUint(string(val), 10, 64)
		return perr
	})
	return gen, err
}

func (s *BadgerStore) Load(_ context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *badger.Txn) error {
		gen, err := s.currentGeneration(tx)
		if err != nil {
			return err
		}
		prefix := generationPrefix(gen)

		var meta Meta
		item, err := tx.Get(append(append([]byte{}, prefix...), "meta"...))
		if err != nil {
			return fmt.Errorf("read index meta failed: %w", err)
		}
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &meta) }); err != nil {
			return fmt.Errorf("unmarshal index meta failed: %w", err)
		}

		docPrefix := append(append([]byte{}, prefix...), "docstore/"...)
		entryPrefix := append(append([]byte{}, prefix...), "entry/"...)
		entries := make([]Entry, 0, meta.Count)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = docPrefix
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			entryItem, err := tx.Get(append(append([]byte{}, entryPrefix...), id...))
			if err != nil {
				return fmt.Errorf("docstore points at missing entry %s: %w", id, err)
			}
			var e Entry
			if err := entryItem.Value(func(val []byte) error {
				var uerr error
				e, uerr = unmarshalEntry(val)
				return uerr
			}); err != nil {
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

func (s *BadgerStore) Save(_ context.Context, snap *Snapshot) error {
	var prev uint64
	hasPrev := true
	err := s.db.View(func(tx *badger.Txn) error {
		var err error
		prev, err = s.currentGeneration(tx)
		return err
	})
	switch {
	case errors.Is(err, ErrNoSnapshot):
		hasPrev = false
	case err != nil:
		return fmt.Errorf("read index generation failed: %w", err)
	}

	gen := prev + 1
	prefix := generationPrefix(gen)
	// Clear leftovers of an interrupted save of the same generation.
	if err := s.db.DropPrefix(prefix); err != nil {
		return fmt.Errorf("clear index generation failed: %w", err)
	}

	wb := s.db.NewWriteBatch()
	if err := writeEntries(wb, prefix, snap.Entries); err != nil {
		wb.Cancel()
		return err
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("write index entries failed: %w", err)
	}

	meta := snap.Meta
	meta.Count = len(snap.Entries)
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal index meta failed: %w", err)
	}
	err = s.db.Update(func(tx *badger.Txn) error {
		if err := tx.Set(append(append([]byte{}, prefix...), "meta"...), raw); err != nil {
			return err
		}
		return tx.Set(keyCurrent, []byte(strconv.FormatUint(gen, 10)))
	})
	if err != nil {
		return fmt.Errorf("commit index generation failed: %w", err)
	}

	if hasPrev {
		if err := s.db.DropPrefix(generationPrefix(prev)); err != nil {
			s.logger.Warn("drop previous index generation failed", "generation", prev, "err", err)
		}
	}
	return nil
}

func writeEntries(wb *badger.WriteBatch, prefix []byte, entries []Entry) error {
	for i, e := range entries {
		data, err := marshalEntry(e)
		if err != nil {
			return err
		}
		entryKey := append(append(append([]byte{}, prefix...), "entry/"...), e.Chunk.ID...)
		if err := wb.Set(entryKey, data); err != nil {
			return err
		}
		docKey := append(append(append([]byte{}, prefix...), "docstore/"...), positionKey(i)...)
		if err := wb.Set(docKey, []byte(e.Chunk.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
