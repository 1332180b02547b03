package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LogAction string

const (
	ActionPurchased  LogAction = "purchased"
	ActionRenewed    LogAction = "renewed"
	ActionCancelled  LogAction = "cancelled"
	ActionExpired    LogAction = "expired"
	ActionUpgraded   LogAction = "upgraded"
	ActionDowngraded LogAction = "downgraded"
)

func ParseLogAction(s string) (LogAction, bool) {
	switch LogAction(s) {
	case ActionPurchased, ActionRenewed, ActionCancelled, ActionExpired, ActionUpgraded, ActionDowngraded:
		return LogAction(s), true
	}
	return "", false
}

// SubscriptionLog is an append-only audit fact. Entries are never updated
// or deleted; history must be reconstructable from them alone.
type SubscriptionLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"              json:"id"`
	BusinessID     primitive.ObjectID `bson:"business_id"                json:"business_id"`
	VendorID       primitive.ObjectID `bson:"vendor_id"                  json:"vendor_id"`
	SubscriptionID primitive.ObjectID `bson:"subscription_id"            json:"subscription_id"`
	PlanID         primitive.ObjectID `bson:"plan_id"                    json:"plan_id"`
	PreviousPlanID primitive.ObjectID `bson:"previous_plan_id,omitempty" json:"previous_plan_id,omitempty"`
	Action         LogAction          `bson:"action"                     json:"action"`
	Amount         float64            `bson:"amount"                     json:"amount"`
	Payment        *PaymentRecord     `bson:"payment,omitempty"          json:"payment,omitempty"`
	Metadata       map[string]string  `bson:"metadata,omitempty"         json:"metadata,omitempty"`
	Notes          string             `bson:"notes,omitempty"            json:"notes,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"                 json:"created_at"`
}

// LogFilter narrows audit queries; zero values mean "any".
type LogFilter struct {
	BusinessID primitive.ObjectID
	VendorID   primitive.ObjectID
	Action     LogAction
	From       time.Time
	To         time.Time
}

// RevenueByAction is one row of the revenue rollup aggregation.
type RevenueByAction struct {
	Action  LogAction `bson:"_id"     json:"action"`
	Total   float64   `bson:"total"   json:"total"`
	Entries int       `bson:"entries" json:"entries"`
}
