package loader

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"knowledge-assistant/internal/model"
	"knowledge-assistant/internal/pkg/textextract"
)

const defaultDebounce = 500 * time.Millisecond

// IngestFunc indexes one loaded document.
type IngestFunc func(ctx context.Context, doc model.Document) error

// Watcher ingests supported files created or written in a directory.
// Bursts of events for one file are collapsed. The index is append-only,
// so a source is ingested at most once; later edits are logged and left
// for a rebuild.
type Watcher struct {
	dir      string
	loader   *Loader
	ingest   IngestFunc
	debounce time.Duration
	fsw      *fsnotify.Watcher
	seen     map[string][sha1.Size]byte
	logger   *slog.Logger
}

func NewWatcher(dir string, loader *Loader, ingest IngestFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher failed: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s failed: %w", dir, err)
	}
	return &Watcher{
		dir:      dir,
		loader:   loader,
		ingest:   ingest,
		debounce: defaultDebounce,
		fsw:      fsw,
		seen:     make(map[string][sha1.Size]byte),
		logger:   slog.Default().With("component", "watcher", "dir", dir),
	}, nil
}

// MarkIngested records doc as already indexed so an event for an
// unchanged file does not index it twice. Call it before Run.
func (w *Watcher) MarkIngested(doc model.Document) {
	w.seen[doc.Metadata.Source] = sha1.Sum([]byte(doc.Content))
}

// Sync reconciles the directory with the index before Run. Documents whose
// source is already indexed are marked; the rest are ingested now.
func (w *Watcher) Sync(ctx context.Context, indexed func(source string) bool) error {
	docs, err := w.loader.LoadDirectory(w.dir)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if indexed(doc.Metadata.Source) {
			w.MarkIngested(doc)
			continue
		}
		w.ingestDocument(ctx, doc)
	}
	return nil
}

// Run blocks until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	ready := make(chan string)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !textextract.Supported(ev.Name) {
				continue
			}
			path := ev.Name
			if t, ok := pending[path]; ok {
				t.Reset(w.debounce)
				continue
			}
			pending[path] = time.AfterFunc(w.debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})
		case path := <-ready:
			delete(pending, path)
			w.process(ctx, path)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	doc, err := w.loader.LoadFile(path)
	if errors.Is(err, ErrNoText) {
		w.logger.Debug("skip empty document", "file", filepath.Base(path))
		return
	}
	if err != nil {
		w.logger.Warn("load document failed", "file", filepath.Base(path), "err", err)
		return
	}
	if prev, ok := w.seen[doc.Metadata.Source]; ok {
		if prev != sha1.Sum([]byte(doc.Content)) {
			w.logger.Warn("indexed document changed, run kactl rebuild to replace it", "file", doc.Metadata.Source)
		}
		return
	}
	w.ingestDocument(ctx, doc)
}

func (w *Watcher) ingestDocument(ctx context.Context, doc model.Document) {
	if err := w.ingest(ctx, doc); err != nil {
		w.logger.Error("ingest document failed", "file", doc.Metadata.Source, "err", err)
		return
	}
	w.MarkIngested(doc)
	w.logger.Info("document ingested", "file", doc.Metadata.Source, "department", doc.Metadata.Department)
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
