package repository

import (
	"context"
	"time"

	"bizdirect/subscription-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// BusinessRepository gives the projector access to the business
// collection owned by the directory CRUD service. Reads are unrestricted;
// writes touch projection-owned fields only.
type BusinessRepository struct {
	col *mongo.Collection
}

func NewBusinessRepository(db *mongo.Database) *BusinessRepository {
	return &BusinessRepository{col: db.Collection("businesses")}
}

func (r *BusinessRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error) {
	var biz models.Business
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&biz); err != nil {
		return nil, err
	}
	return &biz, nil
}

// UpdateProjection writes the projection fields with a partial $set so
// name, address and the rest of the listing are never clobbered.
func (r *BusinessRepository) UpdateProjection(ctx context.Context, id primitive.ObjectID, p *models.BusinessProjection) error {
	set := bson.M{
		"status":               p.Status,
		"is_premium":           p.IsPremium,
		"premium_features":     p.PremiumFeatures,
		"subscription_history": p.SubscriptionHistory,
		"priority_rank":        p.PriorityRank,
		"projection_at":        time.Now().UTC(),
	}
	unset := bson.M{}
	if p.CurrentSubscription != nil {
		set["current_subscription"] = p.CurrentSubscription
	} else {
		unset["current_subscription"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
