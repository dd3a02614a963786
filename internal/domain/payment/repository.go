package payment

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(req *Request) error
	FindByID(id uint) (*Request, error)
	List(status Status) ([]Request, error)
	MarkReviewed(id uint, status Status, by string, at time.Time) (bool, error)
	Reopen(id uint) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(req *Request) error {
	return r.db.Create(req).Error
}

func (r *repository) FindByID(id uint) (*Request, error) {
	var req Request
	if err := r.db.First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// List returns requests newest first, optionally filtered by status
func (r *repository) List(status Status) ([]Request, error) {
	var reqs []Request
	q := r.db.Order("created_at DESC").Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// MarkReviewed moves a pending request to status and reports whether it was still pending
func (r *repository) MarkReviewed(id uint, status Status, by string, at time.Time) (bool, error) {
	res := r.db.Model(&Request{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_at": at,
			"reviewed_by": by,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Reopen puts a request back to pending after a failed approval
func (r *repository) Reopen(id uint) error {
	return r.db.Model(&Request{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      StatusPending,
			"reviewed_at": nil,
			"reviewed_by": "",
		}).Error
}
