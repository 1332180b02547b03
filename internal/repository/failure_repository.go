package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProjectionFailure marks a ledger write whose projection step did not
// land. The reconciler replays these until the business record catches
// up with the ledger.
type ProjectionFailure struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	BusinessID     primitive.ObjectID `bson:"business_id"`
	SubscriptionID primitive.ObjectID `bson:"subscription_id,omitempty"`
	Revoke         bool               `bson:"revoke"`
	Reason         string             `bson:"reason"`
	Attempts       int                `bson:"attempts"`
	CreatedAt      time.Time          `bson:"created_at"`
	LastTriedAt    time.Time          `bson:"last_tried_at"`
}

type FailureRepository struct {
	col *mongo.Collection
}

func NewFailureRepository(db *mongo.Database) *FailureRepository {
	return &FailureRepository{col: db.Collection("projection_failures")}
}

// Record upserts per business so repeated failures collapse into one
// marker carrying the newest subscription state.
func (r *FailureRepository) Record(ctx context.Context, f *ProjectionFailure) error {
	now := time.Now().UTC()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"business_id": f.BusinessID},
		bson.M{
			"$set": bson.M{
				"subscription_id": f.SubscriptionID,
				"revoke":          f.Revoke,
				"reason":          f.Reason,
				"last_tried_at":   now,
			},
			"$setOnInsert": bson.M{"created_at": now},
			"$inc":         bson.M{"attempts": 1},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *FailureRepository) List(ctx context.Context, limit int64) ([]ProjectionFailure, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var failures []ProjectionFailure
	if err := cursor.All(ctx, &failures); err != nil {
		return nil, err
	}
	return failures, nil
}

func (r *FailureRepository) Resolve(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *FailureRepository) Touch(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"last_tried_at": time.Now().UTC()},
		"$inc": bson.M{"attempts": 1},
	})
	return err
}
