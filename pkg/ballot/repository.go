package ballot

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/campuspulse/platform/pkg/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAlreadyVoted           = errors.New("voter already has a ledger entry for this election")
	ErrSessionAlreadyRedeemed = errors.New("voting session already redeemed")
)

// BallotModel deliberately has no voter, session, or mobile column. Adding
// one breaks the unlinkability guarantee.
type BallotModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ElectionID string    `gorm:"index"`
	Choice     string
	CastAt     time.Time
	Nonce      string
}

func (BallotModel) TableName() string {
	return "ballots"
}

// LedgerModel records that a voter voted. The composite primary key is the
// uniqueness barrier for double voting. It lives in a separate table from
// ballots and is never joined to them.
type LedgerModel struct {
	ElectionID string    `gorm:"primaryKey"`
	VoterID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	VotedAt    time.Time
}

func (LedgerModel) TableName() string {
	return "voter_ledger"
}

type Repository struct {
	db       *gorm.DB
	sessions *session.Repository
}

func NewRepository(db *gorm.DB, sessions *session.Repository) *Repository {
	return &Repository{db: db, sessions: sessions}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&BallotModel{}, &LedgerModel{})
}

// Record commits the ledger entry, the anonymized ballot, and the session
// redemption in one transaction. Any failure rolls back all three; no
// partial state is ever observable.
func (r *Repository) Record(ctx context.Context, token, electionID string, voterID uuid.UUID, choice string) (models.Ballot, error) {
	var recorded BallotModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		entry := LedgerModel{
			ElectionID: electionID,
			VoterID:    voterID,
			VotedAt:    now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if isDuplicateErr(err) {
				return ErrAlreadyVoted
			}
			return err
		}

		nonce, err := newNonce()
		if err != nil {
			return err
		}

		recorded = BallotModel{
			ID:         uuid.New(),
			ElectionID: electionID,
			Choice:     choice,
			CastAt:     now,
			Nonce:      nonce,
		}
		if err := tx.Create(&recorded).Error; err != nil {
			return err
		}

		won, err := r.sessions.RedeemTx(tx, token)
		if err != nil {
			return err
		}
		if !won {
			return ErrSessionAlreadyRedeemed
		}
		return nil
	})
	if err != nil {
		return models.Ballot{}, err
	}

	return mapBallotModel(recorded), nil
}

// CountBallots reports committed ballots for an election. Participation
// only; never exposes choices per voter.
func (r *Repository) CountBallots(ctx context.Context, electionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&BallotModel{}).
		Where("election_id = ?", electionID).
		Count(&count).Error
	return count, err
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func mapBallotModel(model BallotModel) models.Ballot {
	return models.Ballot{
		ID:         model.ID,
		ElectionID: model.ElectionID,
		Choice:     model.Choice,
		CastAt:     model.CastAt,
		Nonce:      model.Nonce,
	}
}
