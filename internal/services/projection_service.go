package services

import (
	"context"
	"errors"

	"bizdirect/subscription-service/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// BusinessStore is the slice of the business collection the projector
// needs: a read, and a partial write of the projection-owned fields.
type BusinessStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error)
	UpdateProjection(ctx context.Context, id primitive.ObjectID, p *models.BusinessProjection) error
}

// ProjectionService derives the business-visible listing state from the
// ledger. The projection is a cache: anything it writes can be rebuilt
// from subscriptions alone.
type ProjectionService struct {
	businesses BusinessStore
}

func NewProjectionService(businesses BusinessStore) *ProjectionService {
	return &ProjectionService{businesses: businesses}
}

// Project computes the projection fields for a business given the
// subscription being applied, or nil on the revoke path. Pure function.
//
// Grant rules: payment activates a pending business but never un-suspends
// one; premium flags mirror the plan's feature set; history keeps one
// entry per subscription id, updated in place on a status change.
//
// Revoke rules: only the current subscription's removal clears premium
// state, and business status is left alone. A lapsed paid listing
// reverts to a free listing, not to an unlisted one.
func Project(business *models.Business, sub *models.Subscription) *models.BusinessProjection {
	p := &models.BusinessProjection{
		Status:              business.Status,
		IsPremium:           business.IsPremium,
		PremiumFeatures:     business.PremiumFeatures,
		CurrentSubscription: business.CurrentSubscription,
		SubscriptionHistory: business.SubscriptionHistory,
		PriorityRank:        business.PriorityRank,
	}

	if sub == nil {
		return p
	}

	snapshot := snapshotOf(sub)
	p.SubscriptionHistory = upsertHistory(p.SubscriptionHistory, snapshot)

	if sub.Status == models.StatusActive {
		if p.Status == models.BusinessPending {
			p.Status = models.BusinessActive
		}
		p.IsPremium = true
		p.PremiumFeatures = models.PremiumFeaturesFrom(sub.Features)
		p.CurrentSubscription = &snapshot
		p.PriorityRank = sub.PriorityRank
		return p
	}

	// Terminal subscription: revoke premium state only if it was the
	// one currently projected.
	if p.CurrentSubscription != nil && p.CurrentSubscription.SubscriptionID == sub.ID {
		p.CurrentSubscription = nil
		p.IsPremium = false
		p.PremiumFeatures = models.PremiumFeatures{}
		p.PriorityRank = 0
	}
	return p
}

// Apply recomputes and persists the projection for one mutation. sub is
// the subscription that just changed; for a revoke it arrives with its
// terminal status already set.
func (s *ProjectionService) Apply(ctx context.Context, businessID primitive.ObjectID, sub *models.Subscription) error {
	business, err := s.businesses.GetByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrBusinessNotFound
		}
		return err
	}
	return s.businesses.UpdateProjection(ctx, businessID, Project(business, sub))
}

func snapshotOf(sub *models.Subscription) models.SubscriptionSnapshot {
	return models.SubscriptionSnapshot{
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		PlanName:       sub.PlanName,
		Status:         sub.Status,
		StartDate:      sub.StartDate,
		EndDate:        sub.EndDate,
		ChargedAmount:  sub.ChargedAmount,
		PriorityRank:   sub.PriorityRank,
	}
}

func upsertHistory(history []models.SubscriptionSnapshot, snapshot models.SubscriptionSnapshot) []models.SubscriptionSnapshot {
	for i, entry := range history {
		if entry.SubscriptionID == snapshot.SubscriptionID {
			out := make([]models.SubscriptionSnapshot, len(history))
			copy(out, history)
			out[i] = snapshot
			return out
		}
	}
	out := make([]models.SubscriptionSnapshot, len(history), len(history)+1)
	copy(out, history)
	return append(out, snapshot)
}
