package handlers

import (
	"errors"
	"net/http"

	"github.com/pringgosatmoko/Creativestudio/internal/pricing"
	"github.com/pringgosatmoko/Creativestudio/pkg/middleware"
	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

// GetPrices returns the effective cost of every operation kind.
func GetPrices(c middleware.Context) {
	c.JSON(http.StatusOK, middleware.H{"prices": prices.Costs(c.Request.Context())})
}

// SetPrice updates the cost of one operation kind. Admin only.
func SetPrice(c middleware.Context) {
	var req SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid request body"})
		return
	}

	if req.Cost <= 0 {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "cost must be positive"})
		return
	}

	kind := models.OperationKind(req.Kind)
	if err := prices.SetCost(c.Request.Context(), kind, req.Cost); err != nil {
		if errors.Is(err, pricing.ErrUnknownKind) {
			c.JSON(http.StatusBadRequest, middleware.H{"error": "Unknown operation kind"})
			return
		}
		logger.WithField("kind", req.Kind).WithField("error", err.Error()).Error("Failed to update price")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Failed to update price"})
		return
	}

	logger.WithField("kind", req.Kind).WithField("cost", req.Cost).Info("Price updated by admin")
	c.JSON(http.StatusOK, middleware.H{"kind": req.Kind, "cost": req.Cost})
}
