package session

import (
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(sess *DeviceSession) error
	ListActive(email string, since time.Time) ([]DeviceSession, error)
	Touch(id uint, t time.Time) error
	EvictStale(email string, before time.Time) (int64, error)
	DeleteByDevice(email, identity string) (int64, error)
	DeleteByEmail(email string) (int64, error)
	DeleteUnknown() (int64, error)
	Prune(before time.Time) (int64, error)
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

func (r *repository) Create(sess *DeviceSession) error {
	return r.db.Create(sess).Error
}

func (r *repository) ListActive(email string, since time.Time) ([]DeviceSession, error) {
	var sessions []DeviceSession
	err := r.db.Where("email = ? AND last_activity >= ?", email, since).
		Order("last_activity DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) Touch(id uint, t time.Time) error {
	return r.db.Model(&DeviceSession{}).
		Where("id = ?", id).
		Update("last_activity", t).Error
}

func (r *repository) EvictStale(email string, before time.Time) (int64, error) {
	res := r.db.Where("email = ? AND last_activity < ?", email, before).Delete(&DeviceSession{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByDevice(email, identity string) (int64, error) {
	res := r.db.Where("email = ? AND device_identity = ?", email, identity).Delete(&DeviceSession{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByEmail(email string) (int64, error) {
	res := r.db.Where("email = ?", email).Delete(&DeviceSession{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteUnknown() (int64, error) {
	res := r.db.Where("device_identity IN ?", []string{"", UnknownIdentity}).Delete(&DeviceSession{})
	return res.RowsAffected, res.Error
}

func (r *repository) Prune(before time.Time) (int64, error) {
	res := r.db.Where("last_activity < ?", before).Delete(&DeviceSession{})
	return res.RowsAffected, res.Error
}
