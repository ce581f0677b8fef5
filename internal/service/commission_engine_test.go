package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"

	"github.com/shopspring/decimal"
)

type stubSnapshotProvider struct {
	mu        sync.Mutex
	snapshots map[string]models.AffiliateSnapshot
	err       error
	calls     int
}

func (p *stubSnapshotProvider) GetAffiliateSnapshot(_ context.Context, affiliateID string) (models.AffiliateSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return models.AffiliateSnapshot{}, p.err
	}
	snapshot, ok := p.snapshots[affiliateID]
	if !ok {
		return models.AffiliateSnapshot{}, ErrNotFound
	}
	return snapshot, nil
}

func (p *stubSnapshotProvider) set(snapshot models.AffiliateSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[snapshot.ID] = snapshot
}

type stubStatsUpdater struct {
	mu     sync.Mutex
	deltas []AffiliateStatsDelta
	err    error
}

func (u *stubStatsUpdater) UpdateAffiliateStats(_ context.Context, delta AffiliateStatsDelta) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deltas = append(u.deltas, delta)
	return u.err
}

type memoryStatsCache struct {
	mu      sync.Mutex
	entries map[string]CommissionStats
	gets    int
	hits    int
}

func newMemoryStatsCache() *memoryStatsCache {
	return &memoryStatsCache{entries: map[string]CommissionStats{}}
}

func (c *memoryStatsCache) GetCommissionStats(_ context.Context, key string) (*CommissionStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	stats, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	c.hits++
	return &stats, true, nil
}

func (c *memoryStatsCache) SetCommissionStats(_ context.Context, key string, stats CommissionStats, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats.TierInfo = nil
	c.entries[key] = stats
	return nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type engineFixture struct {
	engine   *CommissionEngine
	ledger   *repository.MemoryCommissionLedger
	provider *stubSnapshotProvider
	updater  *stubStatsUpdater
	clock    *fixedClock
	events   *eventRecorder
}

type eventRecorder struct {
	mu     sync.Mutex
	events []CommissionEvent
}

func (r *eventRecorder) HandleCommissionEvent(_ context.Context, event CommissionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, event := range r.events {
		names = append(names, event.Name)
	}
	return names
}

func (r *eventRecorder) last() CommissionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newEngineFixture(t *testing.T, setting CommissionSetting, opts ...CommissionEngineOption) *engineFixture {
	t.Helper()
	fixture := &engineFixture{
		ledger:   repository.NewMemoryCommissionLedger(),
		provider: &stubSnapshotProvider{snapshots: map[string]models.AffiliateSnapshot{}},
		updater:  &stubStatsUpdater{},
		clock:    &fixedClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)},
		events:   &eventRecorder{},
	}
	seq := 0
	base := []CommissionEngineOption{
		WithAffiliateSnapshotProvider(fixture.provider),
		WithAffiliateStatsUpdater(fixture.updater),
		WithEngineClock(fixture.clock.Now),
		WithRecordIDGenerator(func() string {
			seq++
			return fmt.Sprintf("rec-%03d", seq)
		}),
	}
	engine, err := NewCommissionEngine(setting, fixture.ledger, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	engine.Subscribe(fixture.events)
	fixture.engine = engine
	return fixture
}

func sumHistory(records []models.CommissionRecord) (decimal.Decimal, decimal.Decimal) {
	commissions := decimal.Zero
	amounts := decimal.Zero
	for _, record := range records {
		commissions = commissions.Add(record.TotalCommission)
		amounts = amounts.Add(record.Amount)
	}
	return commissions, amounts
}

func TestNewCommissionEngineRejectsInvalidSetting(t *testing.T) {
	setting := CommissionDefaultSetting()
	setting.Minimum = dec("500")
	setting.Maximum = dec("100")
	if _, err := NewCommissionEngine(setting, repository.NewMemoryCommissionLedger()); !errors.Is(err, ErrCommissionConfigInvalid) {
		t.Fatalf("want config error got %v", err)
	}
	if _, err := NewCommissionEngine(CommissionDefaultSetting(), nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("nil ledger want validation error got %v", err)
	}
}

func TestEngineCalculateCommissionFlatScenario(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "0", "0"))
	record, err := f.engine.CalculateCommission(context.Background(), "aff-1", dec("1000"), models.JSON{"campaign": "spring"})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if !record.TotalCommission.Equal(dec("100")) {
		t.Fatalf("total want 100 got %s", record.TotalCommission)
	}
	if record.Options["campaign"] != "spring" {
		t.Fatalf("options should be kept, got %+v", record.Options)
	}
	if names := f.events.names(); len(names) != 1 || names[0] != "commissionCalculated" {
		t.Fatalf("unexpected events: %v", names)
	}
	if f.ledger.Len() != 1 {
		t.Fatalf("ledger should hold one record, got %d", f.ledger.Len())
	}
}

func TestEngineCalculateCommissionValidation(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "0", "0"))
	ctx := context.Background()
	if _, err := f.engine.CalculateCommission(ctx, "", dec("10"), nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank affiliate want validation error got %v", err)
	}
	if _, err := f.engine.CalculateCommission(ctx, "aff", dec("0"), nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero amount want validation error got %v", err)
	}
	if f.ledger.Len() != 0 || len(f.events.names()) != 0 {
		t.Fatalf("validation failure must not leave state")
	}
	if f.provider.calls != 0 {
		t.Fatalf("validation should run before the snapshot fetch")
	}
}

func TestEngineMultiTierScenarioAndNonRetroactiveTierChange(t *testing.T) {
	f := newEngineFixture(t, multiTierSetting())
	ctx := context.Background()
	f.provider.set(models.AffiliateSnapshot{ID: "aff-gold", Tier: intPtr(3), TotalSales: dec("9500")})

	first, err := f.engine.CalculateCommission(ctx, "aff-gold", dec("1000"), nil)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if !first.BaseCommission.Equal(dec("200")) || !first.VolumeBonus.Equal(dec("100")) || !first.TotalCommission.Equal(dec("300")) {
		t.Fatalf("unexpected multi tier record: %+v", first)
	}

	f.provider.set(models.AffiliateSnapshot{ID: "aff-gold", Tier: intPtr(1), TotalSales: dec("9500")})
	f.clock.Advance(time.Minute)
	second, err := f.engine.CalculateCommission(ctx, "aff-gold", dec("1000"), nil)
	if err != nil {
		t.Fatalf("calculate after tier change failed: %v", err)
	}
	if !second.CommissionRate.Equal(dec("10")) || !second.VolumeBonus.Equal(dec("100")) {
		t.Fatalf("only the rate component should change: %+v", second)
	}

	history, err := f.engine.GetCommissionHistory(ctx, "aff-gold", HistoryQuery{})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history.History) != 2 || history.History[1].ID != first.ID || !history.History[1].TotalCommission.Equal(dec("300")) {
		t.Fatalf("stored record must stay untouched: %+v", history.History)
	}
}

func TestEngineMinimumClampScenario(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "50", "0"))
	record, err := f.engine.CalculateCommission(context.Background(), "aff-min", dec("300"), nil)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if !record.TotalCommission.Equal(dec("50")) {
		t.Fatalf("total want 50 got %s", record.TotalCommission)
	}
}

func TestEngineSnapshotFailureFallsBackToNeutral(t *testing.T) {
	f := newEngineFixture(t, multiTierSetting())
	f.provider.err = errors.New("affiliate store unavailable")
	record, err := f.engine.CalculateCommission(context.Background(), "aff-x", dec("1000"), nil)
	if err != nil {
		t.Fatalf("calculate must survive provider failure: %v", err)
	}
	if !record.CommissionRate.Equal(dec("5")) || !record.VolumeBonus.IsZero() {
		t.Fatalf("neutral snapshot should use flat rate and no bonus: %+v", record)
	}
}

func TestEngineTrackCommission(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "0", "0"))
	ctx := context.Background()
	record, err := f.engine.TrackCommission(ctx, "aff-t", TrackCommissionInput{
		Amount:        dec("250"),
		TransactionID: " tx-1 ",
		CustomerID:    "cust-9",
		ProductID:     "prod-3",
		Options:       models.JSON{"channel": "email"},
	})
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if record.Options["transaction_id"] != "tx-1" || record.Options["customer_id"] != "cust-9" || record.Options["channel"] != "email" {
		t.Fatalf("unexpected record options: %+v", record.Options)
	}
	names := f.events.names()
	if len(names) != 2 || names[0] != "commissionCalculated" || names[1] != "commissionTracked" {
		t.Fatalf("unexpected events: %v", names)
	}
	tracked := f.events.last()
	if tracked.Transaction == nil || tracked.Transaction.TransactionID != "tx-1" || tracked.Commission.ID != record.ID {
		t.Fatalf("unexpected tracked payload: %+v", tracked)
	}
	if len(f.updater.deltas) != 1 {
		t.Fatalf("stats updater want one call got %d", len(f.updater.deltas))
	}
	delta := f.updater.deltas[0]
	if delta.AffiliateID != "aff-t" || !delta.AmountDelta.Equal(dec("250")) || !delta.CommissionDelta.Equal(dec("25")) || delta.CommissionID != record.ID {
		t.Fatalf("unexpected delta: %+v", delta)
	}
}

func TestEngineTrackCommissionValidation(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "0", "0"))
	ctx := context.Background()
	if _, err := f.engine.TrackCommission(ctx, "aff", TrackCommissionInput{Amount: dec("10")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing transaction id want validation error got %v", err)
	}
	if _, err := f.engine.TrackCommission(ctx, "aff", TrackCommissionInput{TransactionID: "tx"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing amount want validation error got %v", err)
	}
	if f.ledger.Len() != 0 || len(f.updater.deltas) != 0 {
		t.Fatalf("validation failure must not record anything")
	}
}

func TestEngineTrackCommissionStatsUpdateFailureKeepsRecord(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "0", "0"))
	f.updater.err = fmt.Errorf("%w: affiliate aff-z", ErrNotFound)
	record, err := f.engine.TrackCommission(context.Background(), "aff-z", TrackCommissionInput{Amount: dec("100"), TransactionID: "tx-z"})
	if err != nil {
		t.Fatalf("track should not fail on stats update error: %v", err)
	}
	names := f.events.names()
	want := []string{"commissionCalculated", "affiliateStatsUpdateFailed", "commissionTracked"}
	if len(names) != len(want) {
		t.Fatalf("want events %v got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("want events %v got %v", want, names)
		}
	}
	history, err := f.engine.GetCommissionHistory(context.Background(), "aff-z", HistoryQuery{})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if history.Total != 1 || history.History[0].ID != record.ID {
		t.Fatalf("record must remain after stats failure: %+v", history)
	}
}

func TestEngineDuplicateRecordIDIsInvariantViolation(t *testing.T) {
	ledger := repository.NewMemoryCommissionLedger()
	engine, err := NewCommissionEngine(flatSetting("10", "0", "0"), ledger,
		WithRecordIDGenerator(func() string { return "same-id" }))
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	ctx := context.Background()
	if _, err := engine.CalculateCommission(ctx, "aff", dec("10"), nil); err != nil {
		t.Fatalf("first calculate failed: %v", err)
	}
	_, err = engine.CalculateCommission(ctx, "aff", dec("20"), nil)
	if !errors.Is(err, ErrInvariantViolation) || !errors.Is(err, repository.ErrDuplicateCommissionRecord) {
		t.Fatalf("want invariant violation got %v", err)
	}
	if ledger.Len() != 1 {
		t.Fatalf("ledger must keep one record, got %d", ledger.Len())
	}
}

func TestEngineHistoryPaginationAndIdempotentRead(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "0", "0"))
	ctx := context.Background()
	for i := 1; i <= 12; i++ {
		if _, err := f.engine.CalculateCommission(ctx, "aff-h", decimal.NewFromInt(int64(i*10)), nil); err != nil {
			t.Fatalf("calculate %d failed: %v", i, err)
		}
		f.clock.Advance(time.Hour)
	}
	query := HistoryQuery{Limit: 5, Offset: 10}
	first, err := f.engine.GetCommissionHistory(ctx, "aff-h", query)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if first.Total != 12 || len(first.History) != 2 || first.Pagination.HasMore {
		t.Fatalf("unexpected page: total=%d len=%d has_more=%v", first.Total, len(first.History), first.Pagination.HasMore)
	}
	if first.History[0].ID != "rec-002" || first.History[1].ID != "rec-001" {
		t.Fatalf("newest first ordering broken: %s, %s", first.History[0].ID, first.History[1].ID)
	}
	second, err := f.engine.GetCommissionHistory(ctx, "aff-h", query)
	if err != nil {
		t.Fatalf("second history failed: %v", err)
	}
	if len(second.History) != len(first.History) || second.Total != first.Total {
		t.Fatalf("repeated read differs")
	}
	for i := range first.History {
		if first.History[i].ID != second.History[i].ID || !first.History[i].TotalCommission.Equal(second.History[i].TotalCommission) {
			t.Fatalf("repeated read differs at %d", i)
		}
	}

	page, err := f.engine.GetCommissionHistory(ctx, "aff-h", HistoryQuery{Limit: 5})
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !page.Pagination.HasMore || page.Pagination.Limit != 5 || page.AffiliateID != "aff-h" {
		t.Fatalf("unexpected pagination: %+v", page.Pagination)
	}
}

func TestEngineHistoryRejectsInvertedRange(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "0", "0"))
	start := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	if _, err := f.engine.GetCommissionHistory(context.Background(), "aff", HistoryQuery{StartDate: &start, EndDate: &end}); !errors.Is(err, ErrValidation) {
		t.Fatalf("inverted range want validation error got %v", err)
	}
	if _, err := f.engine.GetCommissionStats(context.Background(), " ", StatsQuery{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank affiliate want validation error got %v", err)
	}
}

func TestEngineStatsMatchHistoryTotals(t *testing.T) {
	f := newEngineFixture(t, flatSetting("7.5", "2", "60"))
	ctx := context.Background()
	amounts := []string{"10", "99.99", "250", "1000", "12.34", "5000"}
	for _, amount := range amounts {
		if _, err := f.engine.CalculateCommission(ctx, "aff-s", dec(amount), nil); err != nil {
			t.Fatalf("calculate failed: %v", err)
		}
		f.clock.Advance(20 * 24 * time.Hour)
	}
	if _, err := f.engine.CalculateCommission(ctx, "aff-other", dec("10000"), nil); err != nil {
		t.Fatalf("calculate other failed: %v", err)
	}

	start := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	ranges := []StatsQuery{{}, {StartDate: &start}, {EndDate: &end}, {StartDate: &start, EndDate: &end}}
	for _, query := range ranges {
		stats, err := f.engine.GetCommissionStats(ctx, "aff-s", query)
		if err != nil {
			t.Fatalf("stats failed: %v", err)
		}
		history, err := f.engine.GetCommissionHistory(ctx, "aff-s", HistoryQuery{StartDate: query.StartDate, EndDate: query.EndDate, Limit: 1000})
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		commissions, total := sumHistory(history.History)
		if !stats.TotalCommissions.Equal(commissions) || !stats.TotalAmount.Equal(total) || int64(stats.CommissionCount) != history.Total {
			t.Fatalf("stats %+v disagree with history sum %s/%s", stats, commissions, total)
		}
		if stats.TierInfo != nil {
			t.Fatalf("flat mode stats should not carry tier info")
		}
	}
}

func TestEngineStatsTierInfoResolvedAtQueryTime(t *testing.T) {
	f := newEngineFixture(t, multiTierSetting())
	ctx := context.Background()
	f.provider.set(models.AffiliateSnapshot{ID: "aff-tier", Tier: intPtr(2)})
	if _, err := f.engine.CalculateCommission(ctx, "aff-tier", dec("100"), nil); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	stats, err := f.engine.GetCommissionStats(ctx, "aff-tier", StatsQuery{})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TierInfo == nil || stats.TierInfo.Name != "Silver" {
		t.Fatalf("tier info want Silver got %+v", stats.TierInfo)
	}

	if _, err := f.engine.UpdateTierStructure(ctx, []models.TierDefinition{
		{Level: 2, Rate: dec("18"), Name: "Silver Plus"},
	}); err != nil {
		t.Fatalf("update tiers failed: %v", err)
	}
	updated, err := f.engine.GetCommissionStats(ctx, "aff-tier", StatsQuery{})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if updated.TierInfo == nil || updated.TierInfo.Name != "Silver Plus" {
		t.Fatalf("tier info should follow current tiers, got %+v", updated.TierInfo)
	}
	if !updated.TotalCommissions.Equal(stats.TotalCommissions) {
		t.Fatalf("tier change must not alter past totals")
	}
}

func TestEngineUpdateTierStructure(t *testing.T) {
	f := newEngineFixture(t, multiTierSetting())
	ctx := context.Background()

	_, err := f.engine.UpdateTierStructure(ctx, []models.TierDefinition{
		{Level: 0, Rate: dec("10"), Name: "Zero"},
		{Level: 1, Rate: dec("30"), Name: "Bronze"},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("level 0 want validation error got %v", err)
	}
	if tiers := f.engine.TierStructure(); len(tiers) != 3 || !tiers[0].Rate.Equal(dec("10")) {
		t.Fatalf("prior tiers must be unchanged: %+v", tiers)
	}
	if len(f.events.names()) != 0 {
		t.Fatalf("failed update must not emit events")
	}

	result, err := f.engine.UpdateTierStructure(ctx, []models.TierDefinition{
		{Level: 1, Rate: dec("12"), Name: "Bronze"},
		{Level: 4, Rate: dec("30"), Name: "Diamond", Bonus: decPtr("5")},
	})
	if err != nil {
		t.Fatalf("update tiers failed: %v", err)
	}
	if !result.Success || len(result.Tiers) != 2 || result.Tiers[1].Name != "Diamond" {
		t.Fatalf("unexpected update result: %+v", result)
	}
	event := f.events.last()
	if event.Name != "tierStructureUpdated" || len(event.Tiers) != 2 {
		t.Fatalf("unexpected tier event: %+v", event)
	}

	f.provider.set(models.AffiliateSnapshot{ID: "aff-d", Tier: intPtr(4)})
	record, err := f.engine.CalculateCommission(ctx, "aff-d", dec("100"), nil)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if !record.CommissionRate.Equal(dec("30")) || !record.TotalCommission.Equal(dec("35")) {
		t.Fatalf("new tiers should apply to later calculations: %+v", record)
	}
}

func TestEngineStatsCacheInvalidatedByAppend(t *testing.T) {
	statsCache := newMemoryStatsCache()
	f := newEngineFixture(t, flatSetting("10", "0", "0"), WithCommissionStatsCache(statsCache, time.Minute))
	ctx := context.Background()
	if _, err := f.engine.CalculateCommission(ctx, "aff-c", dec("100"), nil); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	first, err := f.engine.GetCommissionStats(ctx, "aff-c", StatsQuery{})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if _, err := f.engine.GetCommissionStats(ctx, "aff-c", StatsQuery{}); err != nil {
		t.Fatalf("cached stats failed: %v", err)
	}
	if statsCache.hits != 1 {
		t.Fatalf("second read should hit cache, hits=%d", statsCache.hits)
	}

	if _, err := f.engine.CalculateCommission(ctx, "aff-c", dec("200"), nil); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	after, err := f.engine.GetCommissionStats(ctx, "aff-c", StatsQuery{})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if after.CommissionCount != 2 || !after.TotalCommissions.Equal(first.TotalCommissions.Add(dec("20"))) {
		t.Fatalf("append should invalidate cached stats: %+v", after)
	}
}

func TestEngineStatsCacheSharedAcrossInstances(t *testing.T) {
	_, _, db := setupAffiliateServiceTest(t)
	ledger := repository.NewGormCommissionLedger(db)
	statsCache := newMemoryStatsCache()
	ctx := context.Background()

	newInstance := func(prefix string) *CommissionEngine {
		seq := 0
		engine, err := NewCommissionEngine(flatSetting("10", "0", "0"), ledger,
			WithCommissionStatsCache(statsCache, time.Minute),
			WithPurgeOnShutdown(false),
			WithRecordIDGenerator(func() string {
				seq++
				return fmt.Sprintf("%s-%03d", prefix, seq)
			}),
		)
		if err != nil {
			t.Fatalf("new engine failed: %v", err)
		}
		return engine
	}
	reader := newInstance("a")
	writer := newInstance("b")

	if _, err := reader.CalculateCommission(ctx, "aff-s", dec("100"), nil); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if _, err := reader.GetCommissionStats(ctx, "aff-s", StatsQuery{}); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if _, err := writer.GetCommissionStats(ctx, "aff-s", StatsQuery{}); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if statsCache.hits != 1 {
		t.Fatalf("instances sharing a ledger should share cache entries, hits=%d", statsCache.hits)
	}

	if _, err := writer.CalculateCommission(ctx, "aff-s", dec("200"), nil); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	after, err := reader.GetCommissionStats(ctx, "aff-s", StatsQuery{})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if after.CommissionCount != 2 || !after.TotalCommissions.Equal(dec("30")) {
		t.Fatalf("append on another instance should invalidate cached stats: %+v", after)
	}
}

func TestEngineShutdown(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "0", "0"))
	ctx := context.Background()
	if _, err := f.engine.CalculateCommission(ctx, "aff", dec("10"), nil); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if err := f.engine.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if err := f.engine.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown should be a no-op: %v", err)
	}
	if f.ledger.Len() != 0 {
		t.Fatalf("shutdown should purge the ledger")
	}
	names := f.events.names()
	if names[len(names)-1] != "shutdown" {
		t.Fatalf("last event want shutdown got %v", names)
	}
	if _, err := f.engine.CalculateCommission(ctx, "aff", dec("10"), nil); !errors.Is(err, ErrEngineShutdown) {
		t.Fatalf("calculate after shutdown want ErrEngineShutdown got %v", err)
	}
	if _, err := f.engine.GetCommissionHistory(ctx, "aff", HistoryQuery{}); !errors.Is(err, ErrEngineShutdown) {
		t.Fatalf("history after shutdown want ErrEngineShutdown got %v", err)
	}
	if _, err := f.engine.UpdateTierStructure(ctx, nil); !errors.Is(err, ErrEngineShutdown) {
		t.Fatalf("tier update after shutdown want ErrEngineShutdown got %v", err)
	}
}

func TestEngineShutdownWithoutPurgeKeepsLedger(t *testing.T) {
	f := newEngineFixture(t, flatSetting("10", "0", "0"), WithPurgeOnShutdown(false))
	if _, err := f.engine.CalculateCommission(context.Background(), "aff", dec("10"), nil); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if err := f.engine.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if f.ledger.Len() != 1 {
		t.Fatalf("ledger should be kept when purge is disabled")
	}
}

func TestEngineConcurrentCalculateAndRead(t *testing.T) {
	engine, err := NewCommissionEngine(flatSetting("10", "0", "0"), repository.NewMemoryCommissionLedger())
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	ctx := context.Background()
	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter*2)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := engine.CalculateCommission(ctx, "aff-race", dec("10"), nil); err != nil {
					errs <- err
				}
				if _, err := engine.GetCommissionStats(ctx, "aff-race", StatsQuery{}); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if _, err := engine.UpdateTierStructure(ctx, multiTierSetting().Tiers); err != nil {
				errs <- err
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent operation failed: %v", err)
	}

	stats, err := engine.GetCommissionStats(ctx, "aff-race", StatsQuery{})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.CommissionCount != writers*perWriter || !stats.TotalCommissions.Equal(dec("200")) {
		t.Fatalf("unexpected totals after concurrent writes: count=%d total=%s", stats.CommissionCount, stats.TotalCommissions)
	}
}
