package store

import (
	"context"
	"time"

	"github.com/psds-microservice/apihub-support/internal/model"
	"gorm.io/gorm"
)

// UsageStore holds the API usage log read by the dashboard.
type UsageStore interface {
	Record(ctx context.Context, l *model.UsageLog) error
	Since(ctx context.Context, since time.Time) ([]model.UsageLog, error)
}

type GormUsageStore struct {
	db *gorm.DB
}

func NewUsageStore(db *gorm.DB) *GormUsageStore {
	return &GormUsageStore{db: db}
}

func (s *GormUsageStore) Record(ctx context.Context, l *model.UsageLog) error {
	l.ApplyDefaults(time.Now().UTC())
	return s.db.WithContext(ctx).Create(l).Error
}

func (s *GormUsageStore) Since(ctx context.Context, since time.Time) ([]model.UsageLog, error) {
	var logs []model.UsageLog
	err := s.db.WithContext(ctx).
		Where("timestamp >= ?", since).
		Order("timestamp ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
