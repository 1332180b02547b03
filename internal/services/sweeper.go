package services

import (
	"context"
	"errors"
	"log"
	"time"

	"bizdirect/subscription-service/internal/utils"
)

// Sweeper demotes lapsed subscriptions on a fixed interval. Every pass
// is idempotent per subscription id, so overlapping runs and the admin
// trigger endpoint are safe.
type Sweeper struct {
	ledger   *SubscriptionService
	events   EventPublisher
	interval time.Duration
}

func NewSweeper(ledger *SubscriptionService, events EventPublisher, interval time.Duration) *Sweeper {
	return &Sweeper{ledger: ledger, events: events, interval: interval}
}

// Start runs the sweep loop until the context is cancelled.
func (w *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()

		w.RunOnce(ctx)
		for {
			select {
			case <-ticker.C:
				w.RunOnce(ctx)
			case <-ctx.Done():
				log.Println("[SWEEPER] Shutdown")
				return
			}
		}
	}()
}

// RunOnce sweeps everything overdue right now and then sends the
// expiring-soon warnings. Returns how many subscriptions were expired.
func (w *Sweeper) RunOnce(ctx context.Context) int {
	now := time.Now().UTC()

	overdue, err := w.ledger.FindExpired(ctx, now)
	if err != nil {
		log.Printf("[SWEEPER] FindExpired error: %v", err)
		return 0
	}

	expired := 0
	for _, sub := range overdue {
		if err := w.ledger.Expire(ctx, sub.ID); err != nil {
			if errors.Is(err, ErrProjectionInconsistent) {
				// Ledger state is committed; the reconciler will replay
				// the projection.
				expired++
				continue
			}
			log.Printf("[SWEEPER] Failed to expire subscription %s: %v", sub.ID.Hex(), err)
			continue
		}
		expired++
	}
	if len(overdue) > 0 {
		log.Printf("[SWEEPER] Expired %d of %d overdue subscriptions", expired, len(overdue))
	}

	w.warnExpiring(ctx, now)
	return expired
}

// warnExpiring notifies vendors whose subscription ends within the next
// three days. Notification only, no state change.
func (w *Sweeper) warnExpiring(ctx context.Context, now time.Time) {
	if w.events == nil {
		return
	}
	soon, err := w.ledger.FindExpiringBetween(ctx, now, now.Add(72*time.Hour))
	if err != nil {
		log.Printf("[SWEEPER] FindExpiringBetween error: %v", err)
		return
	}
	for _, sub := range soon {
		w.events.Publish(ctx, utils.SubscriptionEvent{
			VendorID:       sub.VendorID.Hex(),
			BusinessID:     sub.BusinessID.Hex(),
			SubscriptionID: sub.ID.Hex(),
			Type:           "subscription_expiring_soon",
			Extra:          map[string]string{"end_date": sub.EndDate.Format("2006-01-02")},
		})
	}
}
