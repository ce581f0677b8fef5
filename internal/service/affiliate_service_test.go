package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAffiliateServiceTest(t *testing.T) (*AffiliateService, *repository.GormAffiliateRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:affiliate_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	repo := repository.NewAffiliateRepository(db)
	return NewAffiliateService(repo), repo, db
}

func TestAffiliateServiceCreateAndGet(t *testing.T) {
	svc, _, _ := setupAffiliateServiceTest(t)
	profile, err := svc.CreateAffiliate(CreateAffiliateInput{ID: "aff-1", Name: " Alice ", Tier: 2, TotalSales: dec("9500")})
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	if profile.Name != "Alice" || profile.Status != "active" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if _, err := svc.CreateAffiliate(CreateAffiliateInput{ID: "aff-1"}); !errors.Is(err, ErrAffiliateExists) {
		t.Fatalf("duplicate create want ErrAffiliateExists got %v", err)
	}
	if _, err := svc.GetAffiliate("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing affiliate want ErrNotFound got %v", err)
	}
	if _, err := svc.CreateAffiliate(CreateAffiliateInput{ID: "aff-bad", Tier: -1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("negative tier want validation error got %v", err)
	}
	if _, err := svc.CreateAffiliate(CreateAffiliateInput{ID: "aff-bad", Status: "paused"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown status want validation error got %v", err)
	}

	generated, err := svc.CreateAffiliate(CreateAffiliateInput{Name: "Generated"})
	if err != nil {
		t.Fatalf("create with generated id failed: %v", err)
	}
	if generated.ID == "" {
		t.Fatalf("id should be generated")
	}

	upgraded, err := svc.UpdateAffiliateTier("aff-1", 3)
	if err != nil {
		t.Fatalf("update tier failed: %v", err)
	}
	if upgraded.Tier != 3 {
		t.Fatalf("tier want 3 got %d", upgraded.Tier)
	}
}

func TestRepositoryProviderAndUpdaterWithEngine(t *testing.T) {
	svc, repo, _ := setupAffiliateServiceTest(t)
	if _, err := svc.CreateAffiliate(CreateAffiliateInput{ID: "aff-gold", Tier: 3, TotalSales: dec("9500")}); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	engine, err := NewCommissionEngine(multiTierSetting(), repository.NewMemoryCommissionLedger(),
		WithAffiliateSnapshotProvider(NewRepositoryAffiliateSnapshotProvider(repo)),
		WithAffiliateStatsUpdater(NewRepositoryAffiliateStatsUpdater(repo)),
	)
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	ctx := context.Background()
	record, err := engine.TrackCommission(ctx, "aff-gold", TrackCommissionInput{Amount: dec("1000"), TransactionID: "tx-1"})
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if !record.TotalCommission.Equal(dec("300")) {
		t.Fatalf("total want 300 got %s", record.TotalCommission)
	}

	profile, err := svc.GetAffiliate("aff-gold")
	if err != nil {
		t.Fatalf("get affiliate failed: %v", err)
	}
	if !profile.TotalSales.Equal(dec("10500")) || !profile.TotalCommissions.Equal(dec("300")) {
		t.Fatalf("stats not applied: sales=%s commissions=%s", profile.TotalSales, profile.TotalCommissions)
	}

	provider := NewRepositoryAffiliateSnapshotProvider(repo)
	if _, err := provider.GetAffiliateSnapshot(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing snapshot want ErrNotFound got %v", err)
	}
	updater := NewRepositoryAffiliateStatsUpdater(repo)
	if err := updater.UpdateAffiliateStats(ctx, AffiliateStatsDelta{AffiliateID: "nobody", AmountDelta: dec("1"), CommissionDelta: dec("1")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing affiliate update want ErrNotFound got %v", err)
	}
}
