package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"knowledge-assistant/internal/model"
)

var csvHeader = []string{"timestamp", "question", "role", "confidence", "response_time"}

// CSVSink appends rows to a CSV file, writing the header when the file is
// new or empty. Appends are serialized.
type CSVSink struct {
	mu   sync.Mutex
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Record(_ context.Context, row model.QueryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir failed: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open query log failed: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat query log failed: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write query log header failed: %w", err)
		}
	}
	ts := row.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	record := []string{
		ts.UTC().Format(time.RFC3339Nano),
		row.Question,
		row.Role,
		strconv.FormatFloat(row.Confidence, 'f', -1, 64),
		strconv.FormatFloat(row.ResponseTime, 'f', -1, 64),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write query log failed: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush query log failed: %w", err)
	}
	return nil
}
