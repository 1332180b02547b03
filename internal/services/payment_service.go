package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"time"

	"bizdirect/subscription-service/internal/models"
	"bizdirect/subscription-service/internal/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanCatalog is the read surface the gate needs from the plan store.
type PlanCatalog interface {
	GetPlan(ctx context.Context, id primitive.ObjectID) (*models.Plan, error)
}

// Gateway is the external payment processor. Both lookups are
// best-effort: a failure never fails verification.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*utils.GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*utils.GatewayPayment, error)
	FetchOrder(ctx context.Context, orderID string) (*utils.GatewayOrder, error)
}

// PaymentClaim is what a client asserts after paying at the gateway.
type PaymentClaim struct {
	PaymentID string
	OrderID   string
	Signature string
}

// VerifiedPayment is the gate's output: an authenticated, tax-inclusive
// charge for one plan. Only the ledger consumes it.
type VerifiedPayment struct {
	Plan   *models.Plan
	Record models.PaymentRecord
}

// Quote is the tax breakdown plus the gateway order handle answered to
// the client before it pays.
type Quote struct {
	OrderID   string  `json:"order_id"`
	PlanID    string  `json:"plan_id"`
	Currency  string  `json:"currency"`
	Subtotal  float64 `json:"subtotal"`
	TaxRate   float64 `json:"tax_rate"`
	TaxAmount float64 `json:"tax_amount"`
	Total     float64 `json:"total"`
}

// PaymentService validates claimed payment events and prices plans. It
// is a pure validator: it never writes state.
type PaymentService struct {
	plans   PlanCatalog
	gateway Gateway
	secret  string
	taxRate decimal.Decimal
}

func NewPaymentService(plans PlanCatalog, gateway Gateway, secret string, taxRatePercent float64) *PaymentService {
	return &PaymentService{
		plans:   plans,
		gateway: gateway,
		secret:  secret,
		taxRate: decimal.NewFromFloat(taxRatePercent).Div(decimal.NewFromInt(100)),
	}
}

// ComputeTax derives the tax-inclusive total from a base price.
// Round-half-up to 2 decimal places, applied exactly once. Malformed
// prices fail closed instead of defaulting to zero.
func (s *PaymentService) ComputeTax(price float64) (taxAmount, total float64, err error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, 0, fmt.Errorf("invalid price %v", price)
	}
	base := decimal.NewFromFloat(price)
	tax := base.Mul(s.taxRate).Round(2)
	return tax.InexactFloat64(), base.Add(tax).Round(2).InexactFloat64(), nil
}

// Quote prices a plan and registers a gateway order for the total.
func (s *PaymentService) Quote(ctx context.Context, planID primitive.ObjectID) (*Quote, error) {
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	taxAmount, total, err := s.ComputeTax(plan.Price)
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, total, "INR", "plan_"+plan.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	return &Quote{
		OrderID:   order.ID,
		PlanID:    plan.ID.Hex(),
		Currency:  "INR",
		Subtotal:  plan.Price,
		TaxRate:   s.taxRate.InexactFloat64(),
		TaxAmount: taxAmount,
		Total:     total,
	}, nil
}

// Verify authenticates a payment claim against the configured plan.
// The signature must equal HMAC-SHA256(secret, orderID|paymentID); the
// plan's canonical price is always re-read, never taken from the client.
func (s *PaymentService) Verify(ctx context.Context, planID primitive.ObjectID, claim PaymentClaim) (*VerifiedPayment, error) {
	if claim.OrderID == "" || claim.PaymentID == "" || claim.Signature == "" {
		return nil, ErrPaymentVerificationFailed
	}

	expected := s.sign(claim.OrderID, claim.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(claim.Signature)) {
		return nil, ErrPaymentVerificationFailed
	}

	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	taxAmount, total, err := s.ComputeTax(plan.Price)
	if err != nil {
		return nil, err
	}

	record := models.PaymentRecord{
		PaymentID: claim.PaymentID,
		OrderID:   claim.OrderID,
		Signature: claim.Signature,
		Subtotal:  plan.Price,
		TaxRate:   s.taxRate.InexactFloat64(),
		TaxAmount: taxAmount,
		Total:     total,
		PaidAt:    time.Now().UTC(),
	}
	s.enrich(ctx, &record)

	return &VerifiedPayment{Plan: plan, Record: record}, nil
}

// Grant prices a plan without a gateway transaction, for administrative
// and test purchases. The record carries no payment ids or signature.
func (s *PaymentService) Grant(ctx context.Context, planID primitive.ObjectID) (*VerifiedPayment, error) {
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	taxAmount, total, err := s.ComputeTax(plan.Price)
	if err != nil {
		return nil, err
	}
	return &VerifiedPayment{
		Plan: plan,
		Record: models.PaymentRecord{
			Subtotal:  plan.Price,
			TaxRate:   s.taxRate.InexactFloat64(),
			TaxAmount: taxAmount,
			Total:     total,
			Method:    "internal",
			PaidAt:    time.Now().UTC(),
		},
	}, nil
}

func (s *PaymentService) sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// enrich pulls method/status/contact from the gateway and cross-checks
// the order amount. The signature already proved authenticity, so a
// failed lookup or a mismatch is logged and ignored.
func (s *PaymentService) enrich(ctx context.Context, record *models.PaymentRecord) {
	if s.gateway == nil {
		return
	}
	payment, err := s.gateway.FetchPayment(ctx, record.PaymentID)
	if err != nil || payment == nil {
		log.Printf("[PAYMENT] enrichment skipped for %s: %v", record.PaymentID, err)
		return
	}
	record.Method = payment.Method
	record.GatewayStatus = payment.Status
	record.Captured = payment.Captured
	record.Contact = payment.Contact

	order, err := s.gateway.FetchOrder(ctx, record.OrderID)
	if err != nil || order == nil {
		log.Printf("[PAYMENT] order lookup skipped for %s: %v", record.OrderID, err)
		return
	}
	if order.Amount != 0 && order.Amount != record.Total {
		log.Printf("[PAYMENT] order %s amount %.2f differs from charged total %.2f",
			record.OrderID, order.Amount, record.Total)
	}
}
