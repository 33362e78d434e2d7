package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/apperr"
)

// writeError maps typed errors to responses. Infrastructure details are logged, never returned.
func writeError(c *gin.Context, err error) {
	var (
		validationErr *apperr.ValidationError
		notFoundErr   *apperr.NotFoundError
		duplicateErr  *apperr.DuplicateIDError
		infraErr      *apperr.InfrastructureError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.As(err, &duplicateErr):
		slog.Warn("product id collision", slog.String("product_id", duplicateErr.ID), slog.String("detail", duplicateErr.Detail))
		c.JSON(http.StatusConflict, gin.H{"error": "product id already taken, please retry"})
	case errors.As(err, &infraErr) && infraErr.Timeout:
		logFailure(c, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	default:
		logFailure(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func logFailure(c *gin.Context, err error) {
	slog.Error("request failed",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Any("err", err))
}
