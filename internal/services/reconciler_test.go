package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bizdirect/subscription-service/internal/models"
	"bizdirect/subscription-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeFailureQueue struct {
	markers  []repository.ProjectionFailure
	resolved []primitive.ObjectID
	touched  []primitive.ObjectID
}

func (f *fakeFailureQueue) List(_ context.Context, limit int64) ([]repository.ProjectionFailure, error) {
	if int64(len(f.markers)) > limit {
		return f.markers[:limit], nil
	}
	return f.markers, nil
}

func (f *fakeFailureQueue) Resolve(_ context.Context, id primitive.ObjectID) error {
	f.resolved = append(f.resolved, id)
	for i, m := range f.markers {
		if m.ID == id {
			f.markers = append(f.markers[:i], f.markers[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeFailureQueue) Touch(_ context.Context, id primitive.ObjectID) error {
	f.touched = append(f.touched, id)
	for i := range f.markers {
		if f.markers[i].ID == id {
			f.markers[i].Attempts++
		}
	}
	return nil
}

type reconcilerFixture struct {
	reconciler *Reconciler
	queue      *fakeFailureQueue
	store      *fakeLedgerStore
	businesses *fakeBusinessStore
	business   *models.Business
}

func newReconcilerFixture() *reconcilerFixture {
	business := &models.Business{
		ID:       primitive.NewObjectID(),
		VendorID: primitive.NewObjectID(),
		Name:     "Harbor Books",
		Status:   models.BusinessPending,
	}
	store := newFakeLedgerStore()
	businesses := newFakeBusinessStore(business)
	queue := &fakeFailureQueue{}
	return &reconcilerFixture{
		reconciler: NewReconciler(queue, store, NewProjectionService(businesses), time.Minute),
		queue:      queue,
		store:      store,
		businesses: businesses,
		business:   business,
	}
}

func (fx *reconcilerFixture) seedSubscription(t *testing.T) *models.Subscription {
	t.Helper()
	now := time.Now().UTC()
	sub := &models.Subscription{
		BusinessID:   fx.business.ID,
		VendorID:     fx.business.VendorID,
		PlanID:       primitive.NewObjectID(),
		PlanName:     "Business Pro",
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, 365),
		Status:       models.StatusActive,
		Features:     models.FeatureSet{models.FeatureFeaturedListing},
		PriorityRank: 2,
	}
	if err := fx.store.Create(context.Background(), sub); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return sub
}

func (fx *reconcilerFixture) seedMarker(subscriptionID primitive.ObjectID) primitive.ObjectID {
	id := primitive.NewObjectID()
	fx.queue.markers = append(fx.queue.markers, repository.ProjectionFailure{
		ID:             id,
		BusinessID:     fx.business.ID,
		SubscriptionID: subscriptionID,
		Reason:         "write concern timeout",
	})
	return id
}

func TestReconciler_ReplaysMarkedProjection(t *testing.T) {
	fx := newReconcilerFixture()
	sub := fx.seedSubscription(t)
	markerID := fx.seedMarker(sub.ID)

	fx.reconciler.RunOnce(context.Background())

	if len(fx.queue.markers) != 0 {
		t.Errorf("markers left = %d, want 0", len(fx.queue.markers))
	}
	if len(fx.queue.resolved) != 1 || fx.queue.resolved[0] != markerID {
		t.Errorf("resolved = %v, want [%s]", fx.queue.resolved, markerID.Hex())
	}
	if !fx.business.IsPremium {
		t.Error("business not premium after replay")
	}
	if fx.business.Status != models.BusinessActive {
		t.Errorf("business status = %s, want active", fx.business.Status)
	}
}

func TestReconciler_KeepsMarkerWhileStoreFails(t *testing.T) {
	fx := newReconcilerFixture()
	sub := fx.seedSubscription(t)
	markerID := fx.seedMarker(sub.ID)
	fx.businesses.updateErr = errors.New("write concern timeout")

	fx.reconciler.RunOnce(context.Background())

	if len(fx.queue.markers) != 1 {
		t.Fatalf("markers left = %d, want the unresolved one", len(fx.queue.markers))
	}
	if fx.queue.markers[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1 after a failed replay", fx.queue.markers[0].Attempts)
	}
	if len(fx.queue.touched) != 1 || fx.queue.touched[0] != markerID {
		t.Errorf("touched = %v, want [%s]", fx.queue.touched, markerID.Hex())
	}

	// The store recovers; the next pass drains the marker.
	fx.businesses.updateErr = nil
	fx.reconciler.RunOnce(context.Background())

	if len(fx.queue.markers) != 0 {
		t.Errorf("markers left after recovery = %d, want 0", len(fx.queue.markers))
	}
	if !fx.business.IsPremium {
		t.Error("business not premium after recovered replay")
	}
}

func TestReconciler_DropsMarkerForMissingSubscription(t *testing.T) {
	fx := newReconcilerFixture()
	markerID := fx.seedMarker(primitive.NewObjectID())

	fx.reconciler.RunOnce(context.Background())

	if len(fx.queue.markers) != 0 {
		t.Errorf("markers left = %d, want 0 when the subscription is gone", len(fx.queue.markers))
	}
	if len(fx.queue.resolved) != 1 || fx.queue.resolved[0] != markerID {
		t.Errorf("resolved = %v, want [%s]", fx.queue.resolved, markerID.Hex())
	}
	if fx.business.IsPremium {
		t.Error("business flipped premium with no subscription to replay")
	}
}
