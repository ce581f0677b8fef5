package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/affiliate-next/internal/provider"
	"github.com/affiliate-next/internal/queue"
	"github.com/affiliate-next/internal/service"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

type recordingStatsStore struct {
	deltas []service.AffiliateStatsDelta
	err    error
}

func (s *recordingStatsStore) UpdateAffiliateStats(_ context.Context, delta service.AffiliateStatsDelta) error {
	s.deltas = append(s.deltas, delta)
	return s.err
}

func newStatsTask(t *testing.T, payload queue.AffiliateStatsUpdatePayload) *asynq.Task {
	t.Helper()
	task, err := queue.NewAffiliateStatsUpdateTask(payload)
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleAffiliateStatsUpdateAppliesDelta(t *testing.T) {
	store := &recordingStatsStore{}
	consumer := NewConsumer(&provider.Container{AffiliateStatsStore: store})
	task := newStatsTask(t, queue.AffiliateStatsUpdatePayload{
		AffiliateID:     "aff-1",
		AmountDelta:     decimal.NewFromInt(250),
		CommissionDelta: decimal.RequireFromString("25.5"),
		CommissionID:    "c-1",
		TransactionID:   "tx-1",
	})

	if err := consumer.handleAffiliateStatsUpdate(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}
	if len(store.deltas) != 1 {
		t.Fatalf("expected one delta, got %d", len(store.deltas))
	}
	got := store.deltas[0]
	if got.AffiliateID != "aff-1" || got.CommissionID != "c-1" || got.TransactionID != "tx-1" {
		t.Fatalf("unexpected delta identity: %+v", got)
	}
	if !got.AmountDelta.Equal(decimal.NewFromInt(250)) || !got.CommissionDelta.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("unexpected delta amounts: %+v", got)
	}
}

func TestHandleAffiliateStatsUpdateDropsMissingAffiliate(t *testing.T) {
	store := &recordingStatsStore{err: service.ErrNotFound}
	consumer := NewConsumer(&provider.Container{AffiliateStatsStore: store})
	task := newStatsTask(t, queue.AffiliateStatsUpdatePayload{AffiliateID: "ghost", CommissionID: "c-2"})

	if err := consumer.handleAffiliateStatsUpdate(context.Background(), task); err != nil {
		t.Fatalf("missing affiliate should not be retried, got %v", err)
	}
}

func TestHandleAffiliateStatsUpdateRetriesStoreFailure(t *testing.T) {
	storeErr := errors.New("database is locked")
	store := &recordingStatsStore{err: storeErr}
	consumer := NewConsumer(&provider.Container{AffiliateStatsStore: store})
	task := newStatsTask(t, queue.AffiliateStatsUpdatePayload{AffiliateID: "aff-1", CommissionID: "c-3"})

	err := consumer.handleAffiliateStatsUpdate(context.Background(), task)
	if !errors.Is(err, storeErr) {
		t.Fatalf("store failure should be returned for retry, got %v", err)
	}
}

func TestHandleAffiliateStatsUpdateSkipsInvalidPayload(t *testing.T) {
	store := &recordingStatsStore{}
	consumer := NewConsumer(&provider.Container{AffiliateStatsStore: store})
	body, _ := json.Marshal(map[string]string{"commission_id": "c-4"})
	task := asynq.NewTask(queue.TaskAffiliateStatsUpdate, body)

	if err := consumer.handleAffiliateStatsUpdate(context.Background(), task); err != nil {
		t.Fatalf("invalid payload should be dropped, got %v", err)
	}
	if len(store.deltas) != 0 {
		t.Fatalf("invalid payload should not reach store")
	}
}
