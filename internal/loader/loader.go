// Package loader reads source documents from a directory and watches it
// for new ones.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"knowledge-assistant/internal/access"
	"knowledge-assistant/internal/model"
	"knowledge-assistant/internal/pkg/textextract"
)

// ErrNoText means a file held no readable text.
var ErrNoText = errors.New("no readable text")

type Loader struct {
	classifier access.Classifier
	logger     *slog.Logger
}

// New returns a loader; a nil classifier means access.FilenameClassifier.
func New(classifier access.Classifier) *Loader {
	if classifier == nil {
		classifier = access.FilenameClassifier{}
	}
	return &Loader{
		classifier: classifier,
		logger:     slog.Default().With("component", "loader"),
	}
}

// LoadFile extracts one file. Source is the base name of path.
func (l *Loader) LoadFile(path string) (model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read %s failed: %w", path, err)
	}
	name := filepath.Base(path)
	text, err := textextract.Extract(name, data)
	if err != nil {
		return model.Document{}, fmt.Errorf("extract %s failed: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return model.Document{}, fmt.Errorf("%s: %w", name, ErrNoText)
	}
	return model.Document{
		Content: text,
		Metadata: model.Metadata{
			Source:     name,
			Department: l.classifier.Classify(name, text),
		},
	}, nil
}

// LoadDirectory loads every supported regular file in dir, sorted by name.
// A missing directory yields no documents. Files that fail to extract are
// logged and skipped.
func (l *Loader) LoadDirectory(dir string) ([]model.Document, error) {
	items, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read documents dir failed: %w", err)
	}

	var docs []model.Document
	for _, item := range items {
		if !item.Type().IsRegular() || !textextract.Supported(item.Name()) {
			continue
		}
		doc, err := l.LoadFile(filepath.Join(dir, item.Name()))
		if err != nil {
			l.logger.Warn("skip document", "file", item.Name(), "err", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
