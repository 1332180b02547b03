package handler

import (
	"errors"
	"net/http"

	"bizdirect/subscription-service/internal/models"
	"bizdirect/subscription-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type SubscriptionHandler struct {
	ledger   *services.SubscriptionService
	payments *services.PaymentService
	sweeper  *services.Sweeper
}

func NewSubscriptionHandler(ledger *services.SubscriptionService, payments *services.PaymentService, sweeper *services.Sweeper) *SubscriptionHandler {
	return &SubscriptionHandler{ledger: ledger, payments: payments, sweeper: sweeper}
}

// POST /api/subscriptions/orders
// Prices a plan and opens a gateway order the client can pay against.
func (h *SubscriptionHandler) CreateOrder(c *gin.Context) {
	var in struct {
		PlanID string `json:"plan_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	planID, err := primitive.ObjectIDFromHex(in.PlanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan ID"})
		return
	}

	quote, err := h.payments.Quote(c.Request.Context(), planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quote)
}

// POST /api/subscriptions/verify
// The verify-and-activate transaction: authenticate the gateway payment,
// then create (or supersede) the subscription and project it onto the
// listing.
func (h *SubscriptionHandler) VerifyAndActivate(c *gin.Context) {
	var in struct {
		PaymentID   string `json:"payment_id" binding:"required"`
		OrderID     string `json:"order_id"   binding:"required"`
		Signature   string `json:"signature"  binding:"required"`
		BusinessID  string `json:"business_id" binding:"required"`
		PlanID      string `json:"plan_id"     binding:"required"`
		AutoRenewal bool   `json:"auto_renewal"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	businessID, vendorID, planID, ok := h.parseIDs(c, in.BusinessID, in.PlanID)
	if !ok {
		return
	}

	verified, err := h.payments.Verify(c.Request.Context(), planID, services.PaymentClaim{
		PaymentID: in.PaymentID,
		OrderID:   in.OrderID,
		Signature: in.Signature,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	sub, err := h.ledger.ChangePlan(c.Request.Context(), businessID, vendorID, verified, in.AutoRenewal)
	if err != nil && !errors.Is(err, services.ErrProjectionInconsistent) {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	body := gin.H{"subscription": sub, "receipt": verified.Record}
	if err != nil {
		// Entitlement exists but the listing has not caught up yet; the
		// reconciler will replay the projection.
		status = http.StatusAccepted
		body["warning"] = "subscription recorded, listing activation pending"
	}
	c.JSON(status, body)
}

// POST /api/subscriptions/direct
// Administrative purchase without a gateway transaction (test grants,
// goodwill extensions).
func (h *SubscriptionHandler) DirectPurchase(c *gin.Context) {
	var in struct {
		BusinessID  string `json:"business_id" binding:"required"`
		VendorID    string `json:"vendor_id"   binding:"required"`
		PlanID      string `json:"plan_id"     binding:"required"`
		AutoRenewal bool   `json:"auto_renewal"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	businessID, err := primitive.ObjectIDFromHex(in.BusinessID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business ID"})
		return
	}
	vendorID, err := primitive.ObjectIDFromHex(in.VendorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor ID"})
		return
	}
	planID, err := primitive.ObjectIDFromHex(in.PlanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan ID"})
		return
	}

	verified, err := h.payments.Grant(c.Request.Context(), planID)
	if err != nil {
		respondError(c, err)
		return
	}

	sub, err := h.ledger.Purchase(c.Request.Context(), businessID, vendorID, verified, in.AutoRenewal)
	if err != nil && !errors.Is(err, services.ErrProjectionInconsistent) {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	body := gin.H{"subscription": sub}
	if err != nil {
		status = http.StatusAccepted
		body["warning"] = "subscription recorded, listing activation pending"
	}
	c.JSON(status, body)
}

// DELETE /api/subscriptions/:id
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription ID"})
		return
	}
	vendorID, ok := requesterID(c)
	if !ok {
		return
	}

	sub, err := h.ledger.Cancel(c.Request.Context(), id, vendorID)
	if err != nil && !errors.Is(err, services.ErrProjectionInconsistent) {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	body := gin.H{"message": "subscription cancelled", "subscription": sub}
	if err != nil {
		status = http.StatusAccepted
		body["warning"] = "cancellation recorded, listing update pending"
	}
	c.JSON(status, body)
}

// GET /api/subscriptions/business/:businessId
func (h *SubscriptionHandler) GetByBusiness(c *gin.Context) {
	businessID, err := primitive.ObjectIDFromHex(c.Param("businessId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business ID"})
		return
	}
	subs, err := h.ledger.GetByBusiness(c.Request.Context(), businessID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch subscriptions"})
		return
	}
	if subs == nil {
		subs = make([]models.Subscription, 0)
	}
	c.JSON(http.StatusOK, subs)
}

// GET /api/subscriptions/my
func (h *SubscriptionHandler) GetMy(c *gin.Context) {
	vendorID, ok := requesterID(c)
	if !ok {
		return
	}
	subs, err := h.ledger.GetByVendor(c.Request.Context(), vendorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch subscriptions"})
		return
	}
	if subs == nil {
		subs = make([]models.Subscription, 0)
	}
	c.JSON(http.StatusOK, subs)
}

// GET /api/subscriptions
func (h *SubscriptionHandler) GetAll(c *gin.Context) {
	subs, err := h.ledger.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch subscriptions"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

// POST /api/subscriptions/sweep
// Administrative trigger for the expiry sweep.
func (h *SubscriptionHandler) TriggerSweep(c *gin.Context) {
	expired := h.sweeper.RunOnce(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"expired": expired})
}

func (h *SubscriptionHandler) parseIDs(c *gin.Context, businessHex, planHex string) (businessID, vendorID, planID primitive.ObjectID, ok bool) {
	businessID, err := primitive.ObjectIDFromHex(businessHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business ID"})
		return
	}
	planID, err = primitive.ObjectIDFromHex(planHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan ID"})
		return
	}
	vendorID, ok = requesterID(c)
	return businessID, vendorID, planID, ok
}

func requesterID(c *gin.Context) (primitive.ObjectID, bool) {
	idHex := c.GetString("userId")
	if idHex == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPaymentVerificationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment verification failed"})
	case errors.Is(err, services.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
	case errors.Is(err, services.ErrBusinessNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "business not found"})
	case errors.Is(err, services.ErrDuplicateActiveSubscription):
		c.JSON(http.StatusConflict, gin.H{"error": "business already has an active subscription"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
