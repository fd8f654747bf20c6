package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"replyflow/internal/model"
)

// writeError maps domain errors to HTTP status codes. Validation failures
// are the caller's fault, missing resources are 404, everything else is a
// server error with the detail kept out of the response body.
func writeError(c *gin.Context, err error) {
	switch {
	case model.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
