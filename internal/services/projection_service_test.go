package services

import (
	"testing"
	"time"

	"bizdirect/subscription-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func activeSub(businessID primitive.ObjectID, features models.FeatureSet) *models.Subscription {
	now := time.Now().UTC()
	return &models.Subscription{
		ID:           primitive.NewObjectID(),
		BusinessID:   businessID,
		VendorID:     primitive.NewObjectID(),
		PlanID:       primitive.NewObjectID(),
		PlanName:     "Basic Premium",
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, 365),
		Status:       models.StatusActive,
		Features:     features,
		PriorityRank: 1,
	}
}

func TestProject_ActivatesPendingBusiness(t *testing.T) {
	business := &models.Business{
		ID:     primitive.NewObjectID(),
		Status: models.BusinessPending,
	}
	sub := activeSub(business.ID, models.FeatureSet{models.FeaturePrioritySupport})

	p := Project(business, sub)

	if p.Status != models.BusinessActive {
		t.Errorf("status = %s, want active", p.Status)
	}
	if !p.IsPremium {
		t.Error("is_premium = false, want true")
	}
	if p.PremiumFeatures.FeaturedListing {
		t.Error("featured_listing = true, want false; plan lacks that feature")
	}
	if !p.PremiumFeatures.PrioritySupport {
		t.Error("priority_support = false, want true")
	}
	if p.CurrentSubscription == nil || p.CurrentSubscription.SubscriptionID != sub.ID {
		t.Errorf("current subscription snapshot = %+v, want %s", p.CurrentSubscription, sub.ID.Hex())
	}
	if len(p.SubscriptionHistory) != 1 {
		t.Errorf("history length = %d, want 1", len(p.SubscriptionHistory))
	}
}

func TestProject_NeverUnsuspends(t *testing.T) {
	business := &models.Business{
		ID:     primitive.NewObjectID(),
		Status: models.BusinessSuspended,
	}
	sub := activeSub(business.ID, nil)

	p := Project(business, sub)

	if p.Status != models.BusinessSuspended {
		t.Errorf("status = %s, want suspended; payment must not un-suspend", p.Status)
	}
	if !p.IsPremium {
		t.Error("is_premium = false, want true; the entitlement still exists")
	}
}

func TestProject_RevokeClearsPremiumOnly(t *testing.T) {
	sub := activeSub(primitive.NewObjectID(), models.FeatureSet{models.FeatureFeaturedListing})
	business := &models.Business{
		ID:              sub.BusinessID,
		Status:          models.BusinessActive,
		IsPremium:       true,
		PremiumFeatures: models.PremiumFeatures{FeaturedListing: true},
		CurrentSubscription: &models.SubscriptionSnapshot{
			SubscriptionID: sub.ID,
			Status:         models.StatusActive,
		},
		SubscriptionHistory: []models.SubscriptionSnapshot{{SubscriptionID: sub.ID, Status: models.StatusActive}},
	}

	sub.Status = models.StatusExpired
	p := Project(business, sub)

	if p.Status != models.BusinessActive {
		t.Errorf("status = %s, want active; expiry must not unlist the business", p.Status)
	}
	if p.IsPremium {
		t.Error("is_premium = true, want false after revoke")
	}
	if p.PremiumFeatures != (models.PremiumFeatures{}) {
		t.Errorf("premium features = %+v, want all false", p.PremiumFeatures)
	}
	if p.CurrentSubscription != nil {
		t.Errorf("current subscription = %+v, want nil", p.CurrentSubscription)
	}
	if len(p.SubscriptionHistory) != 1 || p.SubscriptionHistory[0].Status != models.StatusExpired {
		t.Errorf("history = %+v, want single expired entry", p.SubscriptionHistory)
	}
}

func TestProject_RevokeOfSupersededSubscriptionIsNoOp(t *testing.T) {
	old := activeSub(primitive.NewObjectID(), nil)
	current := activeSub(old.BusinessID, nil)
	business := &models.Business{
		ID:        old.BusinessID,
		Status:    models.BusinessActive,
		IsPremium: true,
		CurrentSubscription: &models.SubscriptionSnapshot{
			SubscriptionID: current.ID,
			Status:         models.StatusActive,
		},
	}

	old.Status = models.StatusCancelled
	p := Project(business, old)

	if !p.IsPremium {
		t.Error("is_premium = false; revoking a superseded subscription must not touch the current one")
	}
	if p.CurrentSubscription == nil || p.CurrentSubscription.SubscriptionID != current.ID {
		t.Errorf("current subscription = %+v, want %s untouched", p.CurrentSubscription, current.ID.Hex())
	}
}

func TestProject_HistoryUpdatedInPlace(t *testing.T) {
	sub := activeSub(primitive.NewObjectID(), nil)
	business := &models.Business{
		ID:     sub.BusinessID,
		Status: models.BusinessActive,
		SubscriptionHistory: []models.SubscriptionSnapshot{
			{SubscriptionID: sub.ID, Status: models.StatusActive},
		},
	}

	sub.Status = models.StatusCancelled
	p := Project(business, sub)

	if len(p.SubscriptionHistory) != 1 {
		t.Fatalf("history length = %d, want 1; status changes must update in place", len(p.SubscriptionHistory))
	}
	if p.SubscriptionHistory[0].Status != models.StatusCancelled {
		t.Errorf("history status = %s, want cancelled", p.SubscriptionHistory[0].Status)
	}
}

func TestProject_NilSubscriptionChangesNothing(t *testing.T) {
	business := &models.Business{
		ID:        primitive.NewObjectID(),
		Status:    models.BusinessActive,
		IsPremium: true,
	}
	p := Project(business, nil)

	if p.Status != models.BusinessActive || !p.IsPremium {
		t.Errorf("projection changed with nil subscription: %+v", p)
	}
}
