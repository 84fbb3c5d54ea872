package store

import (
	"context"
	"errors"
	"time"

	"github.com/psds-microservice/apihub-support/internal/errs"
	"github.com/psds-microservice/apihub-support/internal/model"
	"gorm.io/gorm"
)

// TicketFilter narrows List. Zero values mean "any status" and "no limit".
type TicketFilter struct {
	Status model.TicketStatus
	Limit  int
}

// TicketStore is the persistence boundary for tickets.
type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	List(ctx context.Context, f TicketFilter) ([]model.Ticket, error)
	Close(ctx context.Context, id uint64, at time.Time) (*model.Ticket, error)
	All(ctx context.Context) ([]model.Ticket, error)
}

type GormTicketStore struct {
	db *gorm.DB
}

func NewTicketStore(db *gorm.DB) *GormTicketStore {
	return &GormTicketStore{db: db}
}

func (s *GormTicketStore) Create(ctx context.Context, t *model.Ticket) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *GormTicketStore) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *GormTicketStore) List(ctx context.Context, f TicketFilter) ([]model.Ticket, error) {
	var items []model.Ticket
	tx := s.db.WithContext(ctx).Model(&model.Ticket{})
	if f.Status != "" {
		tx = tx.Where("status = ?", string(f.Status))
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	if err := tx.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Close marks the ticket closed at the given time. Closing twice rewrites closed_at.
func (s *GormTicketStore) Close(ctx context.Context, id uint64, at time.Time) (*model.Ticket, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{
		"status":     string(model.TicketStatusClosed),
		"closed_at":  at,
		"updated_at": at,
	}
	if err := s.db.WithContext(ctx).Model(t).Updates(changes).Error; err != nil {
		return nil, err
	}
	t.Status = model.TicketStatusClosed
	t.ClosedAt = &at
	t.UpdatedAt = at
	return t, nil
}

func (s *GormTicketStore) All(ctx context.Context) ([]model.Ticket, error) {
	var items []model.Ticket
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
