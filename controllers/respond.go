package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mk-dev-co/supplyline-api/services"
)

// respondError maps a service error kind to an HTTP response in the standard
// envelope. Role-forbidden transition denials become 403 so clients can tell
// them apart from generally-invalid transitions.
func respondError(c *gin.Context, err error) {
	var (
		validationErr   *services.ValidationError
		notFoundErr     *services.NotFoundError
		businessRuleErr *services.BusinessRuleError
		conflictErr     *services.ConflictError
		systemErr       *services.SystemError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   gin.H{"code": validationErr.Code, "message": validationErr.Message},
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "not_found", "message": notFoundErr.Message},
		})
	case errors.As(err, &businessRuleErr):
		status := http.StatusBadRequest
		if businessRuleErr.Code == services.CodeTransitionForbidden {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   gin.H{"code": businessRuleErr.Code, "message": businessRuleErr.Message},
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   gin.H{"code": conflictErr.Code, "message": conflictErr.Message},
		})
	case errors.As(err, &systemErr):
		log.Printf("system error: %v", systemErr)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   gin.H{"code": "internal_error", "message": "An unexpected error occurred"},
		})
	default:
		log.Printf("unclassified error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   gin.H{"code": "internal_error", "message": "An unexpected error occurred"},
		})
	}
}

// parseIDParam parses a numeric path parameter, answering 400 on garbage.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   gin.H{"code": "invalid_id", "message": "Invalid " + name + " parameter"},
		})
		return 0, false
	}
	return uint(id), true
}
