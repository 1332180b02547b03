package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bizdirect/subscription-service/internal/models"
	"bizdirect/subscription-service/internal/repository"
	"bizdirect/subscription-service/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// LedgerStore is the persistence surface of the subscription ledger.
type LedgerStore interface {
	Create(ctx context.Context, s *models.Subscription) error
	Terminate(ctx context.Context, id primitive.ObjectID, status models.SubscriptionStatus, endDate time.Time) (bool, error)
	ReplaceActive(ctx context.Context, prevID primitive.ObjectID, next *models.Subscription) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error)
	FindActiveByBusiness(ctx context.Context, businessID primitive.ObjectID) (*models.Subscription, error)
	GetByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]models.Subscription, error)
	GetByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.Subscription, error)
	GetAll(ctx context.Context) ([]models.Subscription, error)
	FindExpired(ctx context.Context, before time.Time) ([]models.Subscription, error)
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error)
}

// Projector applies a ledger mutation to the business record.
type Projector interface {
	Apply(ctx context.Context, businessID primitive.ObjectID, sub *models.Subscription) error
}

// FailureStore keeps the replay markers for failed projection writes.
type FailureStore interface {
	Record(ctx context.Context, f *repository.ProjectionFailure) error
}

// Auditor records lifecycle transitions; it must never fail the caller.
type Auditor interface {
	Record(ctx context.Context, entry *models.SubscriptionLog)
}

// EventPublisher pushes lifecycle notifications onto the platform bus.
type EventPublisher interface {
	Publish(ctx context.Context, event utils.SubscriptionEvent)
}

// SubscriptionService is the ledger: the only writer of subscription
// documents. Every mutation flows ledger write -> projection -> audit,
// in that order, with an explicit inconsistency marker when the
// projection step fails, never a silent rollback across the two stores.
type SubscriptionService struct {
	subs       LedgerStore
	businesses BusinessStore
	projector  Projector
	failures   FailureStore
	audit      Auditor
	events     EventPublisher
}

func NewSubscriptionService(
	subs LedgerStore,
	businesses BusinessStore,
	projector Projector,
	failures FailureStore,
	audit Auditor,
	events EventPublisher,
) *SubscriptionService {
	return &SubscriptionService{
		subs:       subs,
		businesses: businesses,
		projector:  projector,
		failures:   failures,
		audit:      audit,
		events:     events,
	}
}

// Purchase creates a fresh active subscription for a business with no
// live one. The read-then-decide check gives a friendly error; the
// unique partial index is what actually closes the concurrent-purchase
// race inside Create.
func (s *SubscriptionService) Purchase(ctx context.Context, businessID, vendorID primitive.ObjectID, vp *VerifiedPayment, autoRenewal bool) (*models.Subscription, error) {
	if _, err := s.ownedBusiness(ctx, businessID, vendorID); err != nil {
		return nil, err
	}

	current, err := s.subs.FindActiveByBusiness(ctx, businessID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if current != nil && current.IsLive(time.Now().UTC()) {
		return nil, ErrDuplicateActiveSubscription
	}

	sub := s.buildSubscription(businessID, vendorID, vp, autoRenewal)
	if err := s.subs.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrActiveExists) {
			return nil, ErrDuplicateActiveSubscription
		}
		return nil, err
	}

	return sub, s.finishMutation(ctx, sub, models.ActionPurchased, vendorID.Hex())
}

// ChangePlan terminates the prior active subscription and creates the
// successor as one step, so no moment exists where a business shows two
// live entitlements. The audit action is derived from the rank of the
// new plan against the old one.
func (s *SubscriptionService) ChangePlan(ctx context.Context, businessID, vendorID primitive.ObjectID, vp *VerifiedPayment, autoRenewal bool) (*models.Subscription, error) {
	if _, err := s.ownedBusiness(ctx, businessID, vendorID); err != nil {
		return nil, err
	}

	current, err := s.subs.FindActiveByBusiness(ctx, businessID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Nothing to supersede; a plain purchase.
			return s.Purchase(ctx, businessID, vendorID, vp, autoRenewal)
		}
		return nil, err
	}

	sub := s.buildSubscription(businessID, vendorID, vp, autoRenewal)
	sub.PreviousPlanID = current.PlanID

	if err := s.subs.ReplaceActive(ctx, current.ID, sub); err != nil {
		if errors.Is(err, repository.ErrActiveExists) {
			return nil, ErrDuplicateActiveSubscription
		}
		return nil, err
	}

	action := models.ActionRenewed
	switch {
	case vp.Plan.PriorityRank > current.PriorityRank:
		action = models.ActionUpgraded
	case vp.Plan.PriorityRank < current.PriorityRank:
		action = models.ActionDowngraded
	}

	return sub, s.finishMutation(ctx, sub, action, vendorID.Hex())
}

// Cancel ends a subscription immediately. Only the owning vendor may
// cancel; there is no grace period.
func (s *SubscriptionService) Cancel(ctx context.Context, subscriptionID, requestingVendorID primitive.ObjectID) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.VendorID != requestingVendorID {
		return nil, ErrUnauthorized
	}
	if sub.Status.IsTerminal() {
		return sub, nil
	}

	now := time.Now().UTC()
	terminated, err := s.subs.Terminate(ctx, sub.ID, models.StatusCancelled, now)
	if err != nil {
		return nil, err
	}
	if !terminated {
		// Lost a race with the sweeper or another cancel; nothing left
		// to project or log.
		return s.subs.GetByID(ctx, subscriptionID)
	}

	sub.Status = models.StatusCancelled
	sub.EndDate = now
	return sub, s.finishMutation(ctx, sub, models.ActionCancelled, requestingVendorID.Hex())
}

// Expire is the sweeper's demotion step. Idempotent per subscription id:
// a second call on an already-expired subscription changes nothing and
// produces no second audit entry.
func (s *SubscriptionService) Expire(ctx context.Context, subscriptionID primitive.ObjectID) error {
	sub, err := s.subs.GetByID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.Status.IsTerminal() {
		return nil
	}

	terminated, err := s.subs.Terminate(ctx, sub.ID, models.StatusExpired, sub.EndDate)
	if err != nil {
		return err
	}
	if !terminated {
		return nil
	}

	sub.Status = models.StatusExpired
	return s.finishMutation(ctx, sub, models.ActionExpired, "sweeper")
}

func (s *SubscriptionService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	return s.subs.GetByID(ctx, id)
}

func (s *SubscriptionService) GetByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]models.Subscription, error) {
	return s.subs.GetByBusiness(ctx, businessID)
}

func (s *SubscriptionService) GetByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.Subscription, error) {
	return s.subs.GetByVendor(ctx, vendorID)
}

func (s *SubscriptionService) GetAll(ctx context.Context) ([]models.Subscription, error) {
	return s.subs.GetAll(ctx)
}

func (s *SubscriptionService) FindExpired(ctx context.Context, before time.Time) ([]models.Subscription, error) {
	return s.subs.FindExpired(ctx, before)
}

func (s *SubscriptionService) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	return s.subs.FindExpiringBetween(ctx, from, to)
}

func (s *SubscriptionService) ownedBusiness(ctx context.Context, businessID, vendorID primitive.ObjectID) (*models.Business, error) {
	business, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	if business.VendorID != vendorID {
		return nil, ErrUnauthorized
	}
	return business, nil
}

func (s *SubscriptionService) buildSubscription(businessID, vendorID primitive.ObjectID, vp *VerifiedPayment, autoRenewal bool) *models.Subscription {
	now := time.Now().UTC()
	record := vp.Record
	return &models.Subscription{
		BusinessID:    businessID,
		VendorID:      vendorID,
		PlanID:        vp.Plan.ID,
		PlanName:      vp.Plan.Name,
		StartDate:     now,
		EndDate:       now.AddDate(0, 0, vp.Plan.DurationDays),
		ChargedAmount: record.Total,
		Status:        models.StatusActive,
		Payment:       &record,
		Features:      vp.Plan.Features,
		PriorityRank:  vp.Plan.PriorityRank,
		AutoRenewal:   autoRenewal,
	}
}

// finishMutation runs the projection and audit steps that complete every
// ledger write. A projection failure is recorded for replay and surfaced
// as ErrProjectionInconsistent; the audit entry is appended either way.
func (s *SubscriptionService) finishMutation(ctx context.Context, sub *models.Subscription, action models.LogAction, actor string) error {
	projErr := s.projector.Apply(ctx, sub.BusinessID, sub)
	if projErr != nil {
		log.Printf("[LEDGER] projection failed for business %s subscription %s: %v",
			sub.BusinessID.Hex(), sub.ID.Hex(), projErr)
		if err := s.failures.Record(ctx, &repository.ProjectionFailure{
			BusinessID:     sub.BusinessID,
			SubscriptionID: sub.ID,
			Revoke:         sub.Status.IsTerminal(),
			Reason:         projErr.Error(),
		}); err != nil {
			log.Printf("[LEDGER] failed to record projection failure for business %s: %v",
				sub.BusinessID.Hex(), err)
		}
	}

	entry := &models.SubscriptionLog{
		BusinessID:     sub.BusinessID,
		VendorID:       sub.VendorID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		PreviousPlanID: sub.PreviousPlanID,
		Action:         action,
		Metadata:       map[string]string{"actor": actor},
	}
	if action == models.ActionPurchased || action == models.ActionRenewed ||
		action == models.ActionUpgraded || action == models.ActionDowngraded {
		entry.Amount = sub.ChargedAmount
		entry.Payment = sub.Payment
	}
	s.audit.Record(ctx, entry)

	if s.events != nil {
		go s.events.Publish(context.Background(), utils.SubscriptionEvent{
			VendorID:       sub.VendorID.Hex(),
			BusinessID:     sub.BusinessID.Hex(),
			SubscriptionID: sub.ID.Hex(),
			Type:           "subscription_" + string(action),
		})
	}

	if projErr != nil {
		return fmt.Errorf("%w: %v", ErrProjectionInconsistent, projErr)
	}
	return nil
}
