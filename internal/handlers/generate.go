package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/pringgosatmoko/Creativestudio/internal/generate"
	"github.com/pringgosatmoko/Creativestudio/internal/ledger"
	"github.com/pringgosatmoko/Creativestudio/internal/pricing"
	"github.com/pringgosatmoko/Creativestudio/pkg/middleware"
	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

// Generate charges the authenticated member and runs one generation request.
func Generate(c middleware.Context) {
	email := c.GetString("email")

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid request body"})
		return
	}

	genReq := generate.Request{
		Kind:        models.OperationKind(req.Kind),
		Prompt:      req.Prompt,
		Voice:       req.Voice,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
	}
	if req.SourceImage != "" {
		data, err := base64.StdEncoding.DecodeString(req.SourceImage)
		if err != nil {
			c.JSON(http.StatusBadRequest, middleware.H{"error": "source_image is not valid base64"})
			return
		}
		genReq.SourceImage = data
	}

	outcome, err := coordinator.Generate(c.Request.Context(), email, genReq)
	if err != nil {
		status, message := classifyGenerateError(err)
		metrics.GenerationsTotal.WithLabelValues(req.Kind, "failed").Inc()
		logger.WithField("email", email).WithField("kind", req.Kind).
			WithField("error", err.Error()).Warn("Generation request failed")
		c.JSON(status, middleware.H{"error": message})
		return
	}

	metrics.GenerationsTotal.WithLabelValues(req.Kind, "succeeded").Inc()
	metrics.CreditsSpentTotal.WithLabelValues(req.Kind).Add(float64(outcome.Receipt.Cost))
	if outcome.Rotations > 0 {
		metrics.RotationsTotal.WithLabelValues(req.Kind).Add(float64(outcome.Rotations))
	}

	c.JSON(http.StatusOK, GenerateResponse{
		ReceiptID: outcome.Receipt.ID,
		Kind:      outcome.Receipt.Kind,
		Cost:      outcome.Receipt.Cost,
		Balance:   outcome.Balance,
		Attempts:  outcome.Attempts,
		Rotations: outcome.Rotations,
		MIMEType:  outcome.Artifact.MIMEType,
		Data:      base64.StdEncoding.EncodeToString(outcome.Artifact.Data),
		Text:      outcome.Artifact.Text,
	})
}

// classifyGenerateError maps coordinator failures to HTTP statuses.
func classifyGenerateError(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientCredits):
		return http.StatusPaymentRequired, "Insufficient credits"
	case errors.Is(err, ledger.ErrMemberNotFound):
		return http.StatusNotFound, "Member not found"
	case errors.Is(err, generate.ErrQuotaExhausted):
		return http.StatusTooManyRequests, "Provider quota exhausted, try again later"
	case errors.Is(err, generate.ErrNoCredentials):
		return http.StatusServiceUnavailable, "Generation is not configured"
	case errors.Is(err, pricing.ErrUnknownKind):
		return http.StatusBadRequest, "Unknown operation kind"
	default:
		return http.StatusBadGateway, "Generation failed"
	}
}
