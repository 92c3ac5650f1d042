package session

import (
	"context"
	"errors"
	"time"

	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("voting session not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type SessionModel struct {
	Token      string    `gorm:"primaryKey"`
	ElectionID string    `gorm:"index"`
	VoterID    uuid.UUID `gorm:"type:uuid"`
	IssuedAt   time.Time
	Expiry     time.Time
	Redeemed   bool
}

func (SessionModel) TableName() string {
	return "voting_sessions"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&SessionModel{})
}

func (r *Repository) Create(ctx context.Context, session models.VotingSession) error {
	model := SessionModel{
		Token:      session.Token,
		ElectionID: session.ElectionID,
		VoterID:    session.VoterID,
		IssuedAt:   session.IssuedAt,
		Expiry:     session.Expiry,
		Redeemed:   session.Redeemed,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *Repository) GetByToken(ctx context.Context, token string) (models.VotingSession, error) {
	var model SessionModel
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.VotingSession{}, ErrSessionNotFound
	}
	if err != nil {
		return models.VotingSession{}, err
	}
	return mapSessionModel(model), nil
}

// RedeemTx flips redeemed guarded by "still unredeemed", inside the caller's
// transaction so redemption commits or rolls back with the ballot. Returns
// false when a concurrent redeemer won.
func (r *Repository) RedeemTx(tx *gorm.DB, token string) (bool, error) {
	result := tx.Model(&SessionModel{}).
		Where("token = ? AND redeemed = ?", token, false).
		Update("redeemed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func mapSessionModel(model SessionModel) models.VotingSession {
	return models.VotingSession{
		Token:      model.Token,
		ElectionID: model.ElectionID,
		VoterID:    model.VoterID,
		IssuedAt:   model.IssuedAt,
		Expiry:     model.Expiry,
		Redeemed:   model.Redeemed,
	}
}
