package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bizdirect/subscription-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// flakyAuditStore fails its first n appends, then accepts.
type flakyAuditStore struct {
	mu        sync.Mutex
	failures  int
	appends   int
	entries   []models.SubscriptionLog
	succeeded chan struct{}
}

func newFlakyAuditStore(failures int) *flakyAuditStore {
	return &flakyAuditStore{failures: failures, succeeded: make(chan struct{}, 1)}
}

func (f *flakyAuditStore) Append(_ context.Context, entry *models.SubscriptionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.appends <= f.failures {
		return errors.New("socket timeout")
	}
	f.entries = append(f.entries, *entry)
	select {
	case f.succeeded <- struct{}{}:
	default:
	}
	return nil
}

func (f *flakyAuditStore) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appends
}

func (f *flakyAuditStore) Find(context.Context, models.LogFilter) ([]models.SubscriptionLog, error) {
	return nil, nil
}

func (f *flakyAuditStore) RevenueByAction(context.Context, time.Time, time.Time) ([]models.RevenueByAction, error) {
	return nil, nil
}

func TestAuditRecord_AppendsOnFirstTry(t *testing.T) {
	store := newFlakyAuditStore(0)
	svc := NewAuditService(store)

	svc.Record(context.Background(), &models.SubscriptionLog{
		SubscriptionID: primitive.NewObjectID(),
		Action:         models.ActionPurchased,
	})

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.appends != 1 || len(store.entries) != 1 {
		t.Errorf("appends = %d entries = %d, want 1 and 1", store.appends, len(store.entries))
	}
}

func TestAuditRecord_RecoversOnRetry(t *testing.T) {
	// Initial append and first retry fail; the second retry lands.
	store := newFlakyAuditStore(2)
	svc := NewAuditService(store)
	svc.retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	svc.Record(context.Background(), &models.SubscriptionLog{
		SubscriptionID: primitive.NewObjectID(),
		Action:         models.ActionCancelled,
	})

	select {
	case <-store.succeeded:
	case <-time.After(2 * time.Second):
		t.Fatal("retry never recovered the append")
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.entries) != 1 {
		t.Errorf("entries = %d, want exactly 1 after recovery", len(store.entries))
	}
	if store.appends != 3 {
		t.Errorf("appends = %d, want the initial try plus two retries", store.appends)
	}
}

func TestAuditRecord_GivesUpWithoutBlockingCaller(t *testing.T) {
	store := newFlakyAuditStore(100)
	svc := NewAuditService(store)
	svc.retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	start := time.Now()
	svc.Record(context.Background(), &models.SubscriptionLog{
		SubscriptionID: primitive.NewObjectID(),
		Action:         models.ActionExpired,
	})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Record blocked the caller for %v", elapsed)
	}

	// The schedule allows one initial try plus three retries, no more.
	deadline := time.Now().Add(2 * time.Second)
	for store.appendCount() != 4 {
		if time.Now().After(deadline) {
			t.Fatalf("appends = %d, want 4 before giving up", store.appendCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	if got := store.appendCount(); got != 4 {
		t.Errorf("appends = %d after the schedule ran out, want 4", got)
	}
}
