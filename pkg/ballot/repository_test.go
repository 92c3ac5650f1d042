package ballot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/campuspulse/platform/pkg/session"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupRepos(t *testing.T) (*Repository, *session.Repository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sessions := session.NewRepository(db)
	if err := sessions.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate sessions: %v", err)
	}
	repo := NewRepository(db, sessions)
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate ballots: %v", err)
	}
	return repo, sessions
}

func seedSession(t *testing.T, sessions *session.Repository, voterID uuid.UUID, redeemed bool) string {
	t.Helper()
	token := uuid.New().String()
	err := sessions.Create(context.Background(), models.VotingSession{
		Token:      token,
		ElectionID: "E1",
		VoterID:    voterID,
		IssuedAt:   time.Now(),
		Expiry:     time.Now().Add(10 * time.Minute),
		Redeemed:   redeemed,
	})
	if err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return token
}

func TestRecordCommitsLedgerBallotAndRedemption(t *testing.T) {
	repo, sessions := setupRepos(t)
	ctx := context.Background()
	voterID := uuid.New()
	token := seedSession(t, sessions, voterID, false)

	recorded, err := repo.Record(ctx, token, "E1", voterID, "CANDIDATE_A")
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if recorded.Choice != "CANDIDATE_A" || recorded.ElectionID != "E1" {
		t.Fatalf("unexpected ballot: %+v", recorded)
	}
	if len(recorded.Nonce) != 32 {
		t.Fatalf("expected 16-byte hex nonce, got %q", recorded.Nonce)
	}

	redeemed, err := sessions.GetByToken(ctx, token)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if !redeemed.Redeemed {
		t.Fatal("expected session to be redeemed with the ballot")
	}

	count, err := repo.CountBallots(ctx, "E1")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 ballot, got %d", count)
	}
}

func TestRecordRejectsSecondVoteWithoutSideEffects(t *testing.T) {
	repo, sessions := setupRepos(t)
	ctx := context.Background()
	voterID := uuid.New()

	first := seedSession(t, sessions, voterID, false)
	second := seedSession(t, sessions, voterID, false)

	if _, err := repo.Record(ctx, first, "E1", voterID, "CANDIDATE_A"); err != nil {
		t.Fatalf("first record failed: %v", err)
	}

	_, err := repo.Record(ctx, second, "E1", voterID, "CANDIDATE_B")
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	count, err := repo.CountBallots(ctx, "E1")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to keep 1 ballot, got %d", count)
	}

	// The losing session must stay unredeemed; nothing partial commits.
	loser, err := sessions.GetByToken(ctx, second)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if loser.Redeemed {
		t.Fatal("losing session must not be redeemed")
	}
}

func TestRecordRollsBackWhenSessionAlreadyRedeemed(t *testing.T) {
	repo, sessions := setupRepos(t)
	ctx := context.Background()
	voterID := uuid.New()
	token := seedSession(t, sessions, voterID, true)

	_, err := repo.Record(ctx, token, "E1", voterID, "CANDIDATE_A")
	if !errors.Is(err, ErrSessionAlreadyRedeemed) {
		t.Fatalf("expected ErrSessionAlreadyRedeemed, got %v", err)
	}

	count, err := repo.CountBallots(ctx, "E1")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to leave no ballots, got %d", count)
	}

	var ledgerCount int64
	if err := repo.db.Model(&LedgerModel{}).Count(&ledgerCount).Error; err != nil {
		t.Fatalf("ledger count failed: %v", err)
	}
	if ledgerCount != 0 {
		t.Fatalf("expected rollback to leave no ledger entries, got %d", ledgerCount)
	}
}
