package services

import (
	"context"
	"log"
	"time"

	"bizdirect/subscription-service/internal/models"
)

// AuditStore is append-plus-queries; no update or delete exists.
type AuditStore interface {
	Append(ctx context.Context, entry *models.SubscriptionLog) error
	Find(ctx context.Context, f models.LogFilter) ([]models.SubscriptionLog, error)
	RevenueByAction(ctx context.Context, from, to time.Time) ([]models.RevenueByAction, error)
}

// AuditService writes the lifecycle audit trail. A failed append is a
// compliance defect, not a user-facing error: it is retried in the
// background and must never fail the triggering transaction.
type AuditService struct {
	store       AuditStore
	retryDelays []time.Duration
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{
		store:       store,
		retryDelays: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Record appends an entry, falling back to background retries on
// failure. Always returns to the caller immediately on the happy path.
func (s *AuditService) Record(ctx context.Context, entry *models.SubscriptionLog) {
	err := s.store.Append(ctx, entry)
	if err == nil {
		return
	}
	log.Printf("[AUDIT] append failed for subscription %s action %s: %v",
		entry.SubscriptionID.Hex(), entry.Action, err)

	go s.retry(entry)
}

func (s *AuditService) retry(entry *models.SubscriptionLog) {
	for attempt, delay := range s.retryDelays {
		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.store.Append(ctx, entry)
		cancel()
		if err == nil {
			log.Printf("[AUDIT] append recovered for subscription %s on retry %d",
				entry.SubscriptionID.Hex(), attempt+1)
			return
		}
		log.Printf("[AUDIT] retry %d failed for subscription %s: %v",
			attempt+1, entry.SubscriptionID.Hex(), err)
	}
	log.Printf("[AUDIT] giving up on entry for subscription %s action %s; manual backfill required",
		entry.SubscriptionID.Hex(), entry.Action)
}

func (s *AuditService) Find(ctx context.Context, f models.LogFilter) ([]models.SubscriptionLog, error) {
	return s.store.Find(ctx, f)
}

func (s *AuditService) Revenue(ctx context.Context, from, to time.Time) ([]models.RevenueByAction, error) {
	return s.store.RevenueByAction(ctx, from, to)
}
