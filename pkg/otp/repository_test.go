package otp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/campuspulse/platform/pkg/common/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	repo := NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return repo
}

func TestCreateSupersedingInvalidatesPriorCode(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first, err := repo.CreateSuperseding(ctx, CreateOtpInput{
		Mobile:     "9999999999",
		ElectionID: "E1",
		Code:       "111111",
		Expiry:     time.Now().Add(5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	second, err := repo.CreateSuperseding(ctx, CreateOtpInput{
		Mobile:     "9999999999",
		ElectionID: "E1",
		Code:       "222222",
		Expiry:     time.Now().Add(5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	latest, err := repo.GetLatest(ctx, "9999999999")
	if err != nil {
		t.Fatalf("get latest failed: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("expected latest record %s, got %s", second.ID, latest.ID)
	}

	// The superseded code must never be redeemable again.
	won, err := repo.MarkUsed(ctx, first.ID)
	if err != nil {
		t.Fatalf("mark used failed: %v", err)
	}
	if won {
		t.Fatal("superseded record must not transition to USED")
	}
}

func TestCreateSupersedingSpansElections(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first, err := repo.CreateSuperseding(ctx, CreateOtpInput{
		Mobile:     "9999999999",
		ElectionID: "E1",
		Code:       "111111",
		Expiry:     time.Now().Add(5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("create for E1 failed: %v", err)
	}

	second, err := repo.CreateSuperseding(ctx, CreateOtpInput{
		Mobile:     "9999999999",
		ElectionID: "E2",
		Code:       "222222",
		Expiry:     time.Now().Add(5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("create for E2 failed: %v", err)
	}

	// A voter registered in two elections still holds at most one
	// redeemable code.
	var unused int64
	err = repo.db.Model(&OtpModel{}).
		Where("mobile = ? AND status = ?", "9999999999", models.OtpStatusUnused).
		Count(&unused).Error
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if unused != 1 {
		t.Fatalf("expected 1 UNUSED record for the mobile, got %d", unused)
	}

	latest, err := repo.GetLatest(ctx, "9999999999")
	if err != nil {
		t.Fatalf("get latest failed: %v", err)
	}
	if latest.ID != second.ID || latest.ElectionID != "E2" {
		t.Fatalf("expected the E2 record to be current, got %+v", latest)
	}

	won, err := repo.MarkUsed(ctx, first.ID)
	if err != nil {
		t.Fatalf("mark used failed: %v", err)
	}
	if won {
		t.Fatal("the E1 record must be superseded by the E2 reissue")
	}
}

func TestMarkUsedSingleWinner(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	record, err := repo.CreateSuperseding(ctx, CreateOtpInput{
		Mobile:     "9888888888",
		ElectionID: "E1",
		Code:       "123456",
		Expiry:     time.Now().Add(5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	won, err := repo.MarkUsed(ctx, record.ID)
	if err != nil {
		t.Fatalf("mark used failed: %v", err)
	}
	if !won {
		t.Fatal("expected first transition to win")
	}

	won, err = repo.MarkUsed(ctx, record.ID)
	if err != nil {
		t.Fatalf("second mark used failed: %v", err)
	}
	if won {
		t.Fatal("expected second transition to lose")
	}

	latest, err := repo.GetLatest(ctx, "9888888888")
	if err != nil {
		t.Fatalf("get latest failed: %v", err)
	}
	if latest.Status != models.OtpStatusUsed {
		t.Fatalf("expected USED, got %s", latest.Status)
	}
}

func TestGetLatestUnknownMobile(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetLatest(context.Background(), "9000000000")
	if !errors.Is(err, ErrOtpNotFound) {
		t.Fatalf("expected ErrOtpNotFound, got %v", err)
	}
}

func TestDeleteExpiredBefore(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	stale := OtpModel{
		ID:         uuid.New(),
		Mobile:     "9111111111",
		ElectionID: "E1",
		Code:       "111111",
		Expiry:     time.Now().Add(-48 * time.Hour),
		Status:     models.OtpStatusUnused,
		CreatedAt:  time.Now().Add(-48 * time.Hour),
	}
	if err := repo.db.Create(&stale).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, err := repo.CreateSuperseding(ctx, CreateOtpInput{
		Mobile:     "9222222222",
		ElectionID: "E1",
		Code:       "222222",
		Expiry:     time.Now().Add(5 * time.Minute),
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	purged, err := repo.DeleteExpiredBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected to purge 1 record, purged %d", purged)
	}

	if _, err := repo.GetLatest(ctx, "9222222222"); err != nil {
		t.Fatalf("fresh record must survive the sweep: %v", err)
	}
}
