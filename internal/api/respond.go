package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okrish/wavelink/internal/apperr"
	"go.uber.org/zap"
)

// respondError maps the service taxonomy onto HTTP statuses. Taxonomy
// errors carry caller-safe messages; anything else is an internal failure
// that gets logged and hidden behind a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": op})
	}
}
