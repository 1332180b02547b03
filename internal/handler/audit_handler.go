package handler

import (
	"net/http"
	"time"

	"bizdirect/subscription-service/internal/models"
	"bizdirect/subscription-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/subscriptions/logs?business_id=&vendor_id=&action=&from=&to=
func (h *AuditHandler) List(c *gin.Context) {
	var filter models.LogFilter

	if hex := c.Query("business_id"); hex != "" {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid business ID"})
			return
		}
		filter.BusinessID = id
	}
	if hex := c.Query("vendor_id"); hex != "" {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor ID"})
			return
		}
		filter.VendorID = id
	}
	if raw := c.Query("action"); raw != "" {
		action, ok := models.ParseLogAction(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
			return
		}
		filter.Action = action
	}

	var ok bool
	if filter.From, ok = parseDate(c, "from"); !ok {
		return
	}
	if filter.To, ok = parseDate(c, "to"); !ok {
		return
	}

	logs, err := h.audit.Find(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch logs"})
		return
	}
	if logs == nil {
		logs = make([]models.SubscriptionLog, 0)
	}
	c.JSON(http.StatusOK, logs)
}

// GET /api/subscriptions/logs/revenue?from=&to=
func (h *AuditHandler) Revenue(c *gin.Context) {
	from, ok := parseDate(c, "from")
	if !ok {
		return
	}
	to, ok := parseDate(c, "to")
	if !ok {
		return
	}

	rows, err := h.audit.Revenue(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate revenue"})
		return
	}
	if rows == nil {
		rows = make([]models.RevenueByAction, 0)
	}
	c.JSON(http.StatusOK, rows)
}

func parseDate(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key + " date, want YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t, true
}
