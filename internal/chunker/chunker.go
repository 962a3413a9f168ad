// Package chunker splits document text into overlapping passages sized for
// embedding and prompt context.
package chunker

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultSize    = 500
	DefaultOverlap = 100
)

// Chunker splits text into passages.
type Chunker interface {
	Split(text string) ([]string, error)
}

// New returns the chunker registered under kind ("window" or "recursive").
func New(kind string, size, overlap int) (Chunker, error) {
	switch kind {
	case "window", "":
		return NewWindow(size, overlap), nil
	case "recursive":
		return NewRecursive(size, overlap), nil
	default:
		return nil, fmt.Errorf("unknown chunker %q", kind)
	}
}

// Window is a fixed-size sliding window over runes. Every passage is at most
// Size runes and consecutive passages share exactly Overlap runes.
type Window struct {
	Size    int
	Overlap int
}

func NewWindow(size, overlap int) *Window {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Window{Size: size, Overlap: overlap}
}

func (w *Window) Split(text string) ([]string, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	step := w.Size - w.Overlap
	var chunks []string
	for start := 0; ; start += step {
		end := start + w.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Recursive splits on paragraph, line, then word boundaries before falling
// back to characters. Overlap is a target, not a guarantee.
type Recursive struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursive(size, overlap int) *Recursive {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
	}
	return &Recursive{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

func (r *Recursive) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	chunks, err := r.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("recursive split failed: %w", err)
	}
	return chunks, nil
}
