package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/hypoxrisk/internal/catalog"
	"github.com/Skufu/hypoxrisk/internal/features"
	"github.com/Skufu/hypoxrisk/internal/predict"
	"github.com/Skufu/hypoxrisk/internal/risk"
)

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, predict.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "model_unavailable"
	case errors.Is(err, predict.ErrUnknownInput),
		errors.Is(err, catalog.ErrInvalidValue),
		errors.Is(err, risk.ErrThresholdRange):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, features.ErrMissingFeature),
		errors.Is(err, features.ErrSchemaMismatch):
		return http.StatusInternalServerError, "schema_mismatch"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func mapError(c *gin.Context, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if code == "internal_error" {
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": code, "message": msg})
}
