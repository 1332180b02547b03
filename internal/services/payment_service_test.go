package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"testing"

	"bizdirect/subscription-service/internal/models"
	"bizdirect/subscription-service/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeCatalog struct {
	plan *models.Plan
}

func (f *fakeCatalog) GetPlan(_ context.Context, id primitive.ObjectID) (*models.Plan, error) {
	if f.plan == nil || f.plan.ID != id {
		return nil, ErrPlanNotFound
	}
	return f.plan, nil
}

type fakeGateway struct {
	payment  *utils.GatewayPayment
	order    *utils.GatewayOrder
	fetchErr error
}

func (f *fakeGateway) CreateOrder(context.Context, float64, string, string) (*utils.GatewayOrder, error) {
	return &utils.GatewayOrder{ID: "order_test1", Status: "created"}, nil
}

func (f *fakeGateway) FetchPayment(context.Context, string) (*utils.GatewayPayment, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.payment, nil
}

func (f *fakeGateway) FetchOrder(context.Context, string) (*utils.GatewayOrder, error) {
	if f.order == nil {
		return nil, errors.New("order not found")
	}
	return f.order, nil
}

func testPlan() *models.Plan {
	return &models.Plan{
		ID:           primitive.NewObjectID(),
		Name:         "Basic Premium",
		Price:        2999,
		DurationDays: 365,
		Features:     models.FeatureSet{models.FeaturePrioritySupport},
		PriorityRank: 1,
		IsActive:     true,
	}
}

func signClaim(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestComputeTax_ReferenceAmount(t *testing.T) {
	svc := NewPaymentService(&fakeCatalog{}, nil, "secret", 18)

	tax, total, err := svc.ComputeTax(2999)
	if err != nil {
		t.Fatalf("ComputeTax returned error: %v", err)
	}
	if tax != 539.82 {
		t.Errorf("tax = %v, want 539.82", tax)
	}
	if total != 3538.82 {
		t.Errorf("total = %v, want 3538.82", total)
	}
}

func TestComputeTax_RoundHalfUp(t *testing.T) {
	svc := NewPaymentService(&fakeCatalog{}, nil, "secret", 18)

	cases := []struct {
		price     float64
		wantTax   float64
		wantTotal float64
	}{
		{0, 0, 0},
		{100, 18, 118},
		{4999, 899.82, 5898.82},
		{0.25, 0.05, 0.30}, // 0.045 rounds up
	}
	for _, tc := range cases {
		tax, total, err := svc.ComputeTax(tc.price)
		if err != nil {
			t.Fatalf("ComputeTax(%v) returned error: %v", tc.price, err)
		}
		if tax != tc.wantTax || total != tc.wantTotal {
			t.Errorf("ComputeTax(%v) = (%v, %v), want (%v, %v)",
				tc.price, tax, total, tc.wantTax, tc.wantTotal)
		}
	}
}

func TestComputeTax_FailsClosed(t *testing.T) {
	svc := NewPaymentService(&fakeCatalog{}, nil, "secret", 18)

	for _, price := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, _, err := svc.ComputeTax(price); err == nil {
			t.Errorf("ComputeTax(%v) = nil error, want rejection", price)
		}
	}
}

func TestVerify_ValidSignature(t *testing.T) {
	plan := testPlan()
	svc := NewPaymentService(&fakeCatalog{plan: plan}, &fakeGateway{
		payment: &utils.GatewayPayment{Method: "upi", Status: "captured", Captured: true},
	}, "secret", 18)

	claim := PaymentClaim{
		PaymentID: "pay_123",
		OrderID:   "order_456",
		Signature: signClaim("secret", "order_456", "pay_123"),
	}
	vp, err := svc.Verify(context.Background(), plan.ID, claim)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if vp.Record.Total != 3538.82 {
		t.Errorf("total = %v, want 3538.82", vp.Record.Total)
	}
	if vp.Record.Subtotal != plan.Price {
		t.Errorf("subtotal = %v, want canonical plan price %v", vp.Record.Subtotal, plan.Price)
	}
	if vp.Record.Method != "upi" || !vp.Record.Captured {
		t.Errorf("enrichment missing: %+v", vp.Record)
	}
}

func TestVerify_ForgedSignature(t *testing.T) {
	plan := testPlan()
	svc := NewPaymentService(&fakeCatalog{plan: plan}, &fakeGateway{}, "secret", 18)

	claim := PaymentClaim{
		PaymentID: "pay_123",
		OrderID:   "order_456",
		Signature: signClaim("wrong-secret", "order_456", "pay_123"),
	}
	if _, err := svc.Verify(context.Background(), plan.ID, claim); !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Errorf("Verify with forged signature = %v, want ErrPaymentVerificationFailed", err)
	}
}

func TestVerify_MissingFields(t *testing.T) {
	plan := testPlan()
	svc := NewPaymentService(&fakeCatalog{plan: plan}, &fakeGateway{}, "secret", 18)

	if _, err := svc.Verify(context.Background(), plan.ID, PaymentClaim{}); !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Errorf("Verify with empty claim = %v, want ErrPaymentVerificationFailed", err)
	}
}

func TestVerify_EnrichmentFailureIsNotFatal(t *testing.T) {
	plan := testPlan()
	svc := NewPaymentService(&fakeCatalog{plan: plan}, &fakeGateway{
		fetchErr: errors.New("gateway down"),
	}, "secret", 18)

	claim := PaymentClaim{
		PaymentID: "pay_123",
		OrderID:   "order_456",
		Signature: signClaim("secret", "order_456", "pay_123"),
	}
	vp, err := svc.Verify(context.Background(), plan.ID, claim)
	if err != nil {
		t.Fatalf("Verify returned error despite valid signature: %v", err)
	}
	if vp.Record.Method != "" {
		t.Errorf("method = %q, want empty on failed enrichment", vp.Record.Method)
	}
}

func TestVerify_NilGatewayPayment(t *testing.T) {
	plan := testPlan()
	// FetchPayment answering (nil, nil) must not crash verification.
	svc := NewPaymentService(&fakeCatalog{plan: plan}, &fakeGateway{}, "secret", 18)

	claim := PaymentClaim{
		PaymentID: "pay_123",
		OrderID:   "order_456",
		Signature: signClaim("secret", "order_456", "pay_123"),
	}
	vp, err := svc.Verify(context.Background(), plan.ID, claim)
	if err != nil {
		t.Fatalf("Verify returned error despite valid signature: %v", err)
	}
	if vp.Record.Method != "" {
		t.Errorf("method = %q, want empty when the gateway returned nothing", vp.Record.Method)
	}
}

func TestVerify_OrderAmountMismatchIsNotFatal(t *testing.T) {
	plan := testPlan()
	svc := NewPaymentService(&fakeCatalog{plan: plan}, &fakeGateway{
		payment: &utils.GatewayPayment{Method: "card", Status: "captured", Captured: true},
		order:   &utils.GatewayOrder{ID: "order_456", Amount: 1, Status: "paid"},
	}, "secret", 18)

	claim := PaymentClaim{
		PaymentID: "pay_123",
		OrderID:   "order_456",
		Signature: signClaim("secret", "order_456", "pay_123"),
	}
	vp, err := svc.Verify(context.Background(), plan.ID, claim)
	if err != nil {
		t.Fatalf("Verify returned error despite valid signature: %v", err)
	}
	if vp.Record.Method != "card" || !vp.Record.Captured {
		t.Errorf("enrichment missing despite order mismatch: %+v", vp.Record)
	}
	if vp.Record.Total != 3538.82 {
		t.Errorf("total = %v, want canonical 3538.82 regardless of the order record", vp.Record.Total)
	}
}

func TestVerify_UnknownPlan(t *testing.T) {
	svc := NewPaymentService(&fakeCatalog{}, &fakeGateway{}, "secret", 18)

	claim := PaymentClaim{
		PaymentID: "pay_123",
		OrderID:   "order_456",
		Signature: signClaim("secret", "order_456", "pay_123"),
	}
	if _, err := svc.Verify(context.Background(), primitive.NewObjectID(), claim); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Verify with unknown plan = %v, want ErrPlanNotFound", err)
	}
}
