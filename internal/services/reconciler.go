package services

import (
	"context"
	"errors"
	"log"
	"time"

	"bizdirect/subscription-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// FailureQueue is the pending-marker store the reconciler drains.
type FailureQueue interface {
	List(ctx context.Context, limit int64) ([]repository.ProjectionFailure, error)
	Resolve(ctx context.Context, id primitive.ObjectID) error
	Touch(ctx context.Context, id primitive.ObjectID) error
}

// Reconciler replays the projection step for ledger writes whose
// business update failed. The ledger is the source of truth, so a replay
// recomputes the projection from the stored subscription rather than
// from whatever the original request carried.
type Reconciler struct {
	failures  FailureQueue
	subs      LedgerStore
	projector Projector
	interval  time.Duration
}

func NewReconciler(failures FailureQueue, subs LedgerStore, projector Projector, interval time.Duration) *Reconciler {
	return &Reconciler{failures: failures, subs: subs, projector: projector, interval: interval}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.RunOnce(ctx)
			case <-ctx.Done():
				log.Println("[RECONCILER] Shutdown")
				return
			}
		}
	}()
}

// RunOnce replays each pending marker; resolved markers are deleted and
// still-failing ones keep their attempt counter growing for alerting.
func (r *Reconciler) RunOnce(ctx context.Context) {
	markers, err := r.failures.List(ctx, 100)
	if err != nil {
		log.Printf("[RECONCILER] list markers: %v", err)
		return
	}

	for _, marker := range markers {
		sub, err := r.subs.GetByID(ctx, marker.SubscriptionID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				log.Printf("[RECONCILER] subscription %s gone, dropping marker", marker.SubscriptionID.Hex())
				_ = r.failures.Resolve(ctx, marker.ID)
				continue
			}
			log.Printf("[RECONCILER] load subscription %s: %v", marker.SubscriptionID.Hex(), err)
			continue
		}

		if err := r.projector.Apply(ctx, marker.BusinessID, sub); err != nil {
			log.Printf("[RECONCILER] replay failed for business %s (attempt %d): %v",
				marker.BusinessID.Hex(), marker.Attempts+1, err)
			_ = r.failures.Touch(ctx, marker.ID)
			continue
		}

		if err := r.failures.Resolve(ctx, marker.ID); err != nil {
			log.Printf("[RECONCILER] resolve marker %s: %v", marker.ID.Hex(), err)
			continue
		}
		log.Printf("[RECONCILER] projection replayed for business %s", marker.BusinessID.Hex())
	}
}
