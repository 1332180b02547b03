package repository

import (
	"context"
	"time"

	"bizdirect/subscription-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PlanRepository struct {
	col *mongo.Collection
}

func NewPlanRepository(db *mongo.Database) *PlanRepository {
	return &PlanRepository{col: db.Collection("plans")}
}

func (r *PlanRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *PlanRepository) Create(ctx context.Context, p *models.Plan) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (r *PlanRepository) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	update["updated_at"] = time.Now().UTC()
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": update})
	return err
}

// Deactivate hides a plan from sale. Plans are never deleted: live
// subscriptions keep referencing them.
func (r *PlanRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return r.Update(ctx, id, bson.M{"is_active": false})
}

func (r *PlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListActive returns purchasable plans ordered by visibility rank.
func (r *PlanRepository) ListActive(ctx context.Context) ([]models.Plan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priority_rank", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"is_active": true}, opts)
	if err != nil {
		return nil, err
	}
	var plans []models.Plan
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *PlanRepository) ListAll(ctx context.Context) ([]models.Plan, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var plans []models.Plan
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}
