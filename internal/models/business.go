package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BusinessStatus string

const (
	BusinessPending   BusinessStatus = "pending"
	BusinessActive    BusinessStatus = "active"
	BusinessInactive  BusinessStatus = "inactive"
	BusinessSuspended BusinessStatus = "suspended"
)

// SubscriptionSnapshot is the denormalized copy of a subscription kept on
// the business record for fast reads. The ledger stays the source of
// truth; a snapshot can always be rebuilt from it.
type SubscriptionSnapshot struct {
	SubscriptionID primitive.ObjectID `bson:"subscription_id" json:"subscription_id"`
	PlanID         primitive.ObjectID `bson:"plan_id"         json:"plan_id"`
	PlanName       string             `bson:"plan_name"       json:"plan_name"`
	Status         SubscriptionStatus `bson:"status"          json:"status"`
	StartDate      time.Time          `bson:"start_date"      json:"start_date"`
	EndDate        time.Time          `bson:"end_date"        json:"end_date"`
	ChargedAmount  float64            `bson:"charged_amount"  json:"charged_amount"`
	PriorityRank   int                `bson:"priority_rank"   json:"priority_rank"`
}

// Business carries the fields this service reads plus the projection
// fields it owns. Name, address and the rest of the listing belong to the
// directory CRUD service; the projector only ever writes the
// projection-owned subset via a partial update.
type Business struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VendorID primitive.ObjectID `bson:"vendor_id"     json:"vendor_id"`
	Name     string             `bson:"name"          json:"name"`

	Status              BusinessStatus         `bson:"status"                         json:"status"`
	IsPremium           bool                   `bson:"is_premium"                     json:"is_premium"`
	PremiumFeatures     PremiumFeatures        `bson:"premium_features"               json:"premium_features"`
	CurrentSubscription *SubscriptionSnapshot  `bson:"current_subscription,omitempty" json:"current_subscription,omitempty"`
	SubscriptionHistory []SubscriptionSnapshot `bson:"subscription_history"           json:"subscription_history"`
	PriorityRank        int                    `bson:"priority_rank"                  json:"priority_rank"`
}

// BusinessProjection is the projector's output: exactly the fields the
// projector owns on the business document.
type BusinessProjection struct {
	Status              BusinessStatus         `bson:"status"                         json:"status"`
	IsPremium           bool                   `bson:"is_premium"                     json:"is_premium"`
	PremiumFeatures     PremiumFeatures        `bson:"premium_features"               json:"premium_features"`
	CurrentSubscription *SubscriptionSnapshot  `bson:"current_subscription,omitempty" json:"current_subscription,omitempty"`
	SubscriptionHistory []SubscriptionSnapshot `bson:"subscription_history"           json:"subscription_history"`
	PriorityRank        int                    `bson:"priority_rank"                  json:"priority_rank"`
}
