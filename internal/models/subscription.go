package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SubscriptionStatus string

const (
	StatusPending   SubscriptionStatus = "pending"
	StatusActive    SubscriptionStatus = "active"
	StatusExpired   SubscriptionStatus = "expired"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// IsTerminal reports whether a subscription can no longer change state.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusExpired || s == StatusCancelled
}

// PaymentRecord captures the gateway transaction exactly as it was
// verified. Immutable once written.
type PaymentRecord struct {
	PaymentID     string    `bson:"payment_id"               json:"payment_id"`
	OrderID       string    `bson:"order_id"                 json:"order_id"`
	Signature     string    `bson:"signature"                json:"signature"`
	Subtotal      float64   `bson:"subtotal"                 json:"subtotal"`
	TaxRate       float64   `bson:"tax_rate"                 json:"tax_rate"`
	TaxAmount     float64   `bson:"tax_amount"               json:"tax_amount"`
	Total         float64   `bson:"total"                    json:"total"`
	Method        string    `bson:"method,omitempty"         json:"method,omitempty"`
	GatewayStatus string    `bson:"gateway_status,omitempty" json:"gateway_status,omitempty"`
	Captured      bool      `bson:"captured"                 json:"captured"`
	Contact       string    `bson:"contact,omitempty"        json:"contact,omitempty"`
	PaidAt        time.Time `bson:"paid_at"                  json:"paid_at"`
}

// Subscription is the entitlement instance. The ledger is the source of
// truth: for one business at most one document may hold status=active,
// enforced by a unique partial index on business_id.
type Subscription struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"              json:"id"`
	BusinessID     primitive.ObjectID `bson:"business_id"                json:"business_id"`
	VendorID       primitive.ObjectID `bson:"vendor_id"                  json:"vendor_id"`
	PlanID         primitive.ObjectID `bson:"plan_id"                    json:"plan_id"`
	PlanName       string             `bson:"plan_name"                  json:"plan_name"`
	StartDate      time.Time          `bson:"start_date"                 json:"start_date"`
	EndDate        time.Time          `bson:"end_date"                   json:"end_date"`
	ChargedAmount  float64            `bson:"charged_amount"             json:"charged_amount"`
	Status         SubscriptionStatus `bson:"status"                     json:"status"`
	Payment        *PaymentRecord     `bson:"payment,omitempty"          json:"payment,omitempty"`
	Features       FeatureSet         `bson:"features"                   json:"features"`
	PriorityRank   int                `bson:"priority_rank"              json:"priority_rank"`
	AutoRenewal    bool               `bson:"auto_renewal"               json:"auto_renewal"`
	PreviousPlanID primitive.ObjectID `bson:"previous_plan_id,omitempty" json:"previous_plan_id,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"                 json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"                 json:"updated_at"`
}

// IsLive reports whether the subscription entitles the business right now.
func (s *Subscription) IsLive(now time.Time) bool {
	return s.Status == StatusActive && s.EndDate.After(now)
}
