// Package audit records one row per answered query.
package audit

import (
	"context"
	"errors"

	"knowledge-assistant/internal/model"
)

// Sink stores query log rows.
type Sink interface {
	Record(ctx context.Context, row model.QueryLog) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, row model.QueryLog) error

func (f SinkFunc) Record(ctx context.Context, row model.QueryLog) error {
	return f(ctx, row)
}

// Recorder fans a row out to every sink. All sinks are tried; their
// errors come back joined.
type Recorder struct {
	sinks []Sink
}

func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks}
}

func (r *Recorder) Add(s Sink) {
	r.sinks = append(r.sinks, s)
}

func (r *Recorder) Record(ctx context.Context, row model.QueryLog) error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Record(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
