package access

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	FindByEmail(email string) (*Grant, error)
	FindByEmailForUpdate(email string) (*Grant, error)
	Upsert(grant *Grant) (*Grant, error)
	Delete(email string) (int64, error)
	UpdateMaxDevices(email string, maxDevices int) (int64, error)
	DecrementDownloads(email string) (bool, error)
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

// FindByEmail returns nil without error when the email has no grant
func (r *repository) FindByEmail(email string) (*Grant, error) {
	return r.find(r.db, email)
}

// FindByEmailForUpdate row-locks the grant until the surrounding transaction ends
func (r *repository) FindByEmailForUpdate(email string) (*Grant, error) {
	return r.find(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), email)
}

func (r *repository) find(db *gorm.DB, email string) (*Grant, error) {
	var grant Grant
	if err := db.Where("email = ?", email).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

// Upsert inserts the grant or overwrites plan, expiry, quota and grant metadata
// of the existing row. max_devices of an existing row is kept.
func (r *repository) Upsert(grant *Grant) (*Grant, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan_type", "expires_at", "downloads_left", "granted_at", "granted_by"}),
	}).Create(grant).Error
	if err != nil {
		return nil, err
	}
	return r.find(r.db, grant.Email)
}

func (r *repository) Delete(email string) (int64, error) {
	res := r.db.Where("email = ?", email).Delete(&Grant{})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateMaxDevices(email string, maxDevices int) (int64, error) {
	res := r.db.Model(&Grant{}).Where("email = ?", email).Update("max_devices", maxDevices)
	return res.RowsAffected, res.Error
}

// DecrementDownloads consumes one download and reports whether one was available
func (r *repository) DecrementDownloads(email string) (bool, error) {
	res := r.db.Model(&Grant{}).
		Where("email = ? AND downloads_left > 0", email).
		Update("downloads_left", gorm.Expr("downloads_left - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
