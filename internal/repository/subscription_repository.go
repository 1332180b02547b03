package repository

import (
	"context"
	"errors"
	"time"

	"bizdirect/subscription-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrActiveExists is returned when an insert collides with the unique
// partial index guarding one active subscription per business.
var ErrActiveExists = errors.New("active subscription already exists for business")

type SubscriptionRepository struct {
	client *mongo.Client
	col    *mongo.Collection
}

func NewSubscriptionRepository(client *mongo.Client, db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{client: client, col: db.Collection("subscriptions")}
}

// EnsureIndexes creates the indexes the ledger depends on. The first one
// is the concurrency guard: two racing purchases for the same business
// both try to insert an active document and one loses with a duplicate
// key error instead of producing two actives.
func (r *SubscriptionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "business_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.StatusActive}),
		},
		{Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}}},
	})
	return err
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *models.Subscription) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrActiveExists
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		s.ID = oid
	}
	return nil
}

// Terminate moves an active subscription into a terminal status. The
// filter is conditional on status=active, so a second call (or a sweep
// racing a renew) matches nothing and reports terminated=false.
func (r *SubscriptionRepository) Terminate(ctx context.Context, id primitive.ObjectID, status models.SubscriptionStatus, endDate time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusActive},
		bson.M{"$set": bson.M{
			"status":     status,
			"end_date":   endDate,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// ReplaceActive terminates the previous active subscription and inserts
// the successor as one step. On a replica set both writes ride a
// multi-document transaction; on a standalone deployment they run
// sequentially, terminate first so the unique index never sees two
// actives.
func (r *SubscriptionRepository) ReplaceActive(ctx context.Context, prevID primitive.ObjectID, next *models.Subscription) error {
	session, err := r.client.StartSession()
	if err != nil {
		return r.replaceSequential(ctx, prevID, next)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, r.replaceSequential(sc, prevID, next)
	})
	if errors.Is(err, ErrActiveExists) {
		return ErrActiveExists
	}
	if err != nil {
		// Transactions are unsupported on standalone mongod; fall back.
		return r.replaceSequential(ctx, prevID, next)
	}
	return nil
}

func (r *SubscriptionRepository) replaceSequential(ctx context.Context, prevID primitive.ObjectID, next *models.Subscription) error {
	// If someone else closed the previous subscription first the
	// terminate matches nothing; the insert below still decides the race
	// via the unique index.
	if _, err := r.Terminate(ctx, prevID, models.StatusCancelled, time.Now().UTC()); err != nil {
		return err
	}
	return r.Create(ctx, next)
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindActiveByBusiness returns the live subscription for a business, or
// mongo.ErrNoDocuments.
func (r *SubscriptionRepository) FindActiveByBusiness(ctx context.Context, businessID primitive.ObjectID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.col.FindOne(ctx, bson.M{
		"business_id": businessID,
		"status":      models.StatusActive,
	}).Decode(&sub)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]models.Subscription, error) {
	return r.find(ctx, bson.M{"business_id": businessID})
}

func (r *SubscriptionRepository) GetByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.Subscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"vendor_id": vendorID}, opts)
	if err != nil {
		return nil, err
	}
	var subs []models.Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *SubscriptionRepository) GetAll(ctx context.Context) ([]models.Subscription, error) {
	return r.find(ctx, bson.M{})
}

// FindExpired returns active subscriptions whose end date has passed.
// Uses the (status, end_date) index.
func (r *SubscriptionRepository) FindExpired(ctx context.Context, before time.Time) ([]models.Subscription, error) {
	return r.find(ctx, bson.M{
		"status":   models.StatusActive,
		"end_date": bson.M{"$lt": before},
	})
}

// FindExpiringBetween returns active subscriptions ending inside the
// window, used for the expiring-soon warning pass.
func (r *SubscriptionRepository) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	return r.find(ctx, bson.M{
		"status":   models.StatusActive,
		"end_date": bson.M{"$gte": from, "$lt": to},
	})
}

func (r *SubscriptionRepository) find(ctx context.Context, filter bson.M) ([]models.Subscription, error) {
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var subs []models.Subscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}
