package otp

import (
	"context"
	"errors"
	"time"

	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrOtpNotFound = errors.New("otp record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type OtpModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Mobile     string    `gorm:"index"`
	ElectionID string    `gorm:"index"`
	Code       string
	Expiry     time.Time
	Status     string `gorm:"index"`
	CreatedAt  time.Time
}

func (OtpModel) TableName() string {
	return "otps"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&OtpModel{})
}

type CreateOtpInput struct {
	Mobile     string
	ElectionID string
	Code       string
	Expiry     time.Time
}

// CreateSuperseding inserts a fresh UNUSED record and, in the same
// transaction, marks every prior UNUSED record for the mobile USED, whatever
// election it was issued for. Verification is keyed by mobile alone, so at
// most one UNUSED record per mobile may exist afterwards.
func (r *Repository) CreateSuperseding(ctx context.Context, input CreateOtpInput) (models.OtpRecord, error) {
	record := OtpModel{
		ID:         uuid.New(),
		Mobile:     input.Mobile,
		ElectionID: input.ElectionID,
		Code:       input.Code,
		Expiry:     input.Expiry,
		Status:     models.OtpStatusUnused,
		CreatedAt:  time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&OtpModel{}).
			Where("mobile = ? AND status = ?", input.Mobile, models.OtpStatusUnused).
			Update("status", models.OtpStatusUsed).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return models.OtpRecord{}, err
	}

	return mapOtpModel(record), nil
}

// GetLatest returns the newest record for the mobile regardless of status.
// Status and expiry are evaluated by the caller at the moment of use, so a
// replayed code surfaces as already-used rather than not-found.
func (r *Repository) GetLatest(ctx context.Context, mobile string) (models.OtpRecord, error) {
	var record OtpModel
	err := r.db.WithContext(ctx).
		Where("mobile = ?", mobile).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.OtpRecord{}, ErrOtpNotFound
	}
	if err != nil {
		return models.OtpRecord{}, err
	}
	return mapOtpModel(record), nil
}

// MarkUsed performs the UNUSED -> USED transition guarded by "status still
// UNUSED" at the storage layer. Returns false when a concurrent verifier won
// the race.
func (r *Repository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&OtpModel{}).
		Where("id = ? AND status = ?", id, models.OtpStatusUnused).
		Update("status", models.OtpStatusUsed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteExpiredBefore purges records whose expiry predates the cutoff.
// Storage hygiene only; correctness never depends on it.
func (r *Repository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expiry < ?", cutoff).
		Delete(&OtpModel{})
	return result.RowsAffected, result.Error
}

func mapOtpModel(record OtpModel) models.OtpRecord {
	return models.OtpRecord{
		ID:         record.ID,
		Mobile:     record.Mobile,
		ElectionID: record.ElectionID,
		Code:       record.Code,
		Expiry:     record.Expiry,
		Status:     record.Status,
		CreatedAt:  record.CreatedAt,
	}
}
