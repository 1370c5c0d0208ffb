package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"focus-planner/internal/apperr"
)

// writeError maps the service error kinds onto HTTP statuses. Anything
// unclassified, storage failures included, is a 500.
func writeError(c *gin.Context, err error) {
	var (
		authErr    *apperr.AuthorizationError
		notFound   *apperr.NotFoundError
		validation *apperr.ValidationError
	)
	switch {
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	default:
		log.Printf("[error] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
