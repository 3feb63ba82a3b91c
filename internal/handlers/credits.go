package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pringgosatmoko/Creativestudio/internal/ledger"
	"github.com/pringgosatmoko/Creativestudio/pkg/middleware"
)

// GetCredits returns the authenticated member's balance and status.
func GetCredits(c middleware.Context) {
	email := c.GetString("email")

	member, err := store.Member(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, ledger.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, middleware.H{"error": "Member not found"})
			return
		}
		logger.WithField("email", email).WithField("error", err.Error()).Error("Failed to load member")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Failed to load member"})
		return
	}
	c.JSON(http.StatusOK, member)
}

// CreateTopup records a pending credit purchase for admin review.
func CreateTopup(c middleware.Context) {
	email := c.GetString("email")

	var req TopupCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid request body"})
		return
	}
	if req.Amount <= 0 || req.Price <= 0 {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "amount and price must be positive"})
		return
	}

	topup, err := store.CreateTopup(c.Request.Context(), email, req.Amount, req.Price, req.ReceiptURL)
	if err != nil {
		logger.WithField("email", email).WithField("error", err.Error()).Error("Failed to create topup")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Failed to create topup"})
		return
	}

	metrics.TopupsTotal.WithLabelValues("requested").Inc()
	c.JSON(http.StatusCreated, topup)
}

// ListPendingTopups returns all topups awaiting a decision. Admin only.
func ListPendingTopups(c middleware.Context) {
	topups, err := store.PendingTopups(c.Request.Context())
	if err != nil {
		logger.WithField("error", err.Error()).Error("Failed to list topups")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Failed to list topups"})
		return
	}
	c.JSON(http.StatusOK, middleware.H{"topups": topups})
}

// ApproveTopup credits the member and closes the request. Admin only.
func ApproveTopup(c middleware.Context) {
	topupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid topup id"})
		return
	}

	topup, err := store.ApproveTopup(c.Request.Context(), topupID)
	if err != nil {
		logger.WithField("topup_id", topupID).WithField("error", err.Error()).Warn("Topup approval failed")
		c.JSON(http.StatusConflict, middleware.H{"error": "Topup is not pending"})
		return
	}

	metrics.TopupsTotal.WithLabelValues("approved").Inc()
	c.JSON(http.StatusOK, topup)
}

// RejectTopup closes the request without crediting. Admin only.
func RejectTopup(c middleware.Context) {
	topupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid topup id"})
		return
	}

	if err := store.RejectTopup(c.Request.Context(), topupID); err != nil {
		logger.WithField("topup_id", topupID).WithField("error", err.Error()).Warn("Topup rejection failed")
		c.JSON(http.StatusConflict, middleware.H{"error": "Topup is not pending"})
		return
	}

	metrics.TopupsTotal.WithLabelValues("rejected").Inc()
	c.JSON(http.StatusOK, middleware.H{"status": "rejected"})
}

// SetMemberCredits overwrites a member's balance. Admin only.
func SetMemberCredits(c middleware.Context) {
	email := c.Param("email")

	var req SetCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid request body"})
		return
	}
	if req.Credits < 0 {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "credits must not be negative"})
		return
	}

	if err := store.SetBalance(c.Request.Context(), email, req.Credits); err != nil {
		if errors.Is(err, ledger.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, middleware.H{"error": "Member not found"})
			return
		}
		logger.WithField("email", email).WithField("error", err.Error()).Error("Failed to set balance")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Failed to set balance"})
		return
	}

	logger.WithField("email", email).WithField("credits", req.Credits).Info("Balance set by admin")
	c.JSON(http.StatusOK, middleware.H{"email": email, "credits": req.Credits})
}
