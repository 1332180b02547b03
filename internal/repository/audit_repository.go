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

// AuditRepository is append-only over subscription_logs. No update or
// delete methods exist on purpose.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection("subscription_logs")}
}

func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}}},
	})
	return err
}

func (r *AuditRepository) Append(ctx context.Context, entry *models.SubscriptionLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := r.col.InsertOne(ctx, entry)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid
	}
	return nil
}

func (r *AuditRepository) Find(ctx context.Context, f models.LogFilter) ([]models.SubscriptionLog, error) {
	filter := bson.M{}
	if !f.BusinessID.IsZero() {
		filter["business_id"] = f.BusinessID
	}
	if !f.VendorID.IsZero() {
		filter["vendor_id"] = f.VendorID
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	created := bson.M{}
	if !f.From.IsZero() {
		created["$gte"] = f.From
	}
	if !f.To.IsZero() {
		created["$lt"] = f.To
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var logs []models.SubscriptionLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// RevenueByAction rolls charged amounts up per lifecycle action.
func (r *AuditRepository) RevenueByAction(ctx context.Context, from, to time.Time) ([]models.RevenueByAction, error) {
	match := bson.M{}
	created := bson.M{}
	if !from.IsZero() {
		created["$gte"] = from
	}
	if !to.IsZero() {
		created["$lt"] = to
	}
	if len(created) > 0 {
		match["created_at"] = created
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$action",
			"total":   bson.M{"$sum": "$amount"},
			"entries": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"total": -1}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []models.RevenueByAction
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
