package httpapi

import (
	"errors"
	"net/http"

	"outdial-platform/internal/apperr"
	"outdial-platform/internal/contacts"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP statuses:
// not-found 404, invalid-state 400, duplicate contact 409, upstream 502,
// everything else 500. Storage details never leak to the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, contacts.ErrDuplicatePhone):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": apperr.Message(err)})
	case errors.Is(err, apperr.ErrInvalidState):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": apperr.Message(err)})
	case errors.Is(err, apperr.ErrUpstream):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": apperr.Message(err)})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
