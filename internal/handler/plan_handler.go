package handler

import (
	"net/http"

	"bizdirect/subscription-service/internal/models"
	"bizdirect/subscription-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PlanHandler struct {
	plans *services.PlanService
}

func NewPlanHandler(plans *services.PlanService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// GET /api/plans
func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.plans.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch plans"})
		return
	}
	if plans == nil {
		plans = make([]models.Plan, 0)
	}
	c.JSON(http.StatusOK, plans)
}

// GET /api/plans/all (admin)
func (h *PlanHandler) ListAll(c *gin.Context) {
	plans, err := h.plans.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch plans"})
		return
	}
	c.JSON(http.StatusOK, plans)
}

// POST /api/plans (admin)
func (h *PlanHandler) Create(c *gin.Context) {
	var in struct {
		Name         string   `json:"name"          binding:"required"`
		Price        float64  `json:"price"         binding:"min=0"`
		DurationDays int      `json:"duration_days" binding:"required,min=1"`
		Features     []string `json:"features"`
		PriorityRank int      `json:"priority_rank"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	features, err := models.NewFeatureSet(in.Features)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan := &models.Plan{
		Name:         in.Name,
		Price:        in.Price,
		DurationDays: in.DurationDays,
		Features:     features,
		PriorityRank: in.PriorityRank,
	}
	if err := h.plans.Create(c.Request.Context(), plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// PUT /api/plans/:id (admin)
func (h *PlanHandler) Update(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan ID"})
		return
	}

	var in struct {
		Price        *float64 `json:"price"`
		DurationDays *int     `json:"duration_days"`
		Features     []string `json:"features"`
		PriorityRank *int     `json:"priority_rank"`
		IsActive     *bool    `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := bson.M{}
	if in.Price != nil {
		if *in.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price must be non-negative"})
			return
		}
		update["price"] = *in.Price
	}
	if in.DurationDays != nil {
		if *in.DurationDays < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be positive"})
			return
		}
		update["duration_days"] = *in.DurationDays
	}
	if in.Features != nil {
		features, err := models.NewFeatureSet(in.Features)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		update["features"] = features
	}
	if in.PriorityRank != nil {
		update["priority_rank"] = *in.PriorityRank
	}
	if in.IsActive != nil {
		update["is_active"] = *in.IsActive
	}
	if len(update) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.plans.Update(c.Request.Context(), id, update); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plan updated"})
}

// DELETE /api/plans/:id (admin)
// Retires a plan from sale. Existing subscriptions keep their snapshots
// and run to their end date.
func (h *PlanHandler) Deactivate(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan ID"})
		return
	}
	if err := h.plans.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plan deactivated"})
}
