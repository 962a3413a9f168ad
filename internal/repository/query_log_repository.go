package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"knowledge-assistant/internal/model"
)

type QueryLogRepository struct {
	db *gorm.DB
}

func NewQueryLogRepository(db *gorm.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

func (r *QueryLogRepository) Create(ctx context.Context, row *model.QueryLog) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create query log failed: %w", err)
	}
	return nil
}

// Record satisfies audit.Sink.
func (r *QueryLogRepository) Record(ctx context.Context, row model.QueryLog) error {
	return r.Create(ctx, &row)
}

// ListRecent returns the newest rows first, optionally for one role.
func (r *QueryLogRepository) ListRecent(ctx context.Context, role string, limit int) ([]model.QueryLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Order("timestamp DESC").Limit(limit)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var rows []model.QueryLog
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list query logs failed: %w", err)
	}
	return rows, nil
}
