package security

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	List(email string, limit int) ([]Event, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// List returns the newest events first, optionally filtered by email
func (r *repository) List(email string, limit int) ([]Event, error) {
	var events []Event
	q := r.db.Order("created_at DESC").Order("id DESC")
	if email != "" {
		q = q.Where("email = ?", email)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
