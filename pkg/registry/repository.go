package registry

import (
	"context"
	"errors"
	"time"

	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrVoterNotFound    = errors.New("voter not found")
	ErrElectionNotFound = errors.New("election not found")
)

// Repository is the read model over the campus voter registry. The voting
// core never writes voters or elections outside of catalog seeding.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type ElectionModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Status    string `gorm:"index"`
	StartsAt  time.Time
	EndsAt    time.Time
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ElectionModel) TableName() string {
	return "elections"
}

type VoterModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Mobile      string    `gorm:"index:idx_voters_mobile_election,unique"`
	ElectionID  string    `gorm:"index:idx_voters_mobile_election,unique"`
	DisplayName string
	Eligible    bool
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (VoterModel) TableName() string {
	return "voters"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&ElectionModel{}, &VoterModel{})
}

func (r *Repository) GetElection(ctx context.Context, id string) (models.Election, error) {
	var election ElectionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&election).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Election{}, ErrElectionNotFound
	}
	if err != nil {
		return models.Election{}, err
	}
	return mapElectionModel(election), nil
}

func (r *Repository) GetVoter(ctx context.Context, mobile, electionID string) (models.Voter, error) {
	var voter VoterModel
	err := r.db.WithContext(ctx).
		Where("mobile = ? AND election_id = ?", mobile, electionID).
		First(&voter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Voter{}, ErrVoterNotFound
	}
	if err != nil {
		return models.Voter{}, err
	}
	return mapVoterModel(voter), nil
}

// Seed upserts the catalog snapshot. It is idempotent so the voting service
// can reload the same catalog on every boot.
func (r *Repository) Seed(ctx context.Context, cat Catalog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, election := range cat.Elections {
			model := ElectionModel{
				ID:        election.ID,
				Name:      election.Name,
				Status:    election.Status,
				StartsAt:  election.StartsAt,
				EndsAt:    election.EndsAt,
				Metadata:  datatypes.JSONMap(election.Metadata),
				UpdatedAt: now,
			}
			if err := tx.Where("id = ?", election.ID).
				Assign(map[string]interface{}{
					"name":       election.Name,
					"status":     election.Status,
					"starts_at":  election.StartsAt,
					"ends_at":    election.EndsAt,
					"metadata":   datatypes.JSONMap(election.Metadata),
					"updated_at": now,
				}).
				FirstOrCreate(&model).Error; err != nil {
				return err
			}

			for _, voter := range election.Voters {
				voterModel := VoterModel{
					ID:          uuid.New(),
					Mobile:      voter.Mobile,
					ElectionID:  election.ID,
					DisplayName: voter.DisplayName,
					Eligible:    voter.Eligible,
					Metadata:    datatypes.JSONMap(voter.Metadata),
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				if err := tx.Where("mobile = ? AND election_id = ?", voter.Mobile, election.ID).
					Assign(map[string]interface{}{
						"display_name": voter.DisplayName,
						"eligible":     voter.Eligible,
						"metadata":     datatypes.JSONMap(voter.Metadata),
						"updated_at":   now,
					}).
					FirstOrCreate(&voterModel).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func mapElectionModel(election ElectionModel) models.Election {
	return models.Election{
		ID:       election.ID,
		Name:     election.Name,
		Status:   election.Status,
		StartsAt: election.StartsAt,
		EndsAt:   election.EndsAt,
		Metadata: map[string]interface{}(election.Metadata),
	}
}

func mapVoterModel(voter VoterModel) models.Voter {
	return models.Voter{
		ID:          voter.ID,
		Mobile:      voter.Mobile,
		DisplayName: voter.DisplayName,
		ElectionID:  voter.ElectionID,
		Eligible:    voter.Eligible,
		Metadata:    map[string]interface{}(voter.Metadata),
	}
}
