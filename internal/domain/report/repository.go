package report

import "gorm.io/gorm"

type Repository interface {
	Create(d *Download) error
	CountByEmail(email string) (int64, error)
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{tx}
}

func (r *repository) Create(d *Download) error {
	return r.db.Create(d).Error
}

func (r *repository) CountByEmail(email string) (int64, error) {
	var n int64
	err := r.db.Model(&Download{}).Where("email = ?", email).Count(&n).Error
	return n, err
}
