package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"bbqpos/internal/pos"
	"bbqpos/internal/view"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureStoreConnection(ctx context.Context, m *pos.Manager) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return m.Ping(checkCtx)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"modal": view.Info("Error", message),
	})
}

// respondActionError maps the session error taxonomy onto HTTP statuses.
// action completes the sentence "Failed to ..." for store failures.
func respondActionError(c *gin.Context, route, action string, err error) {
	var validationErr *pos.ValidationError
	var notFoundErr *pos.NotFoundError
	var connErr *pos.ConnectionError

	switch {
	case errors.As(err, &validationErr):
		respondWithError(c, http.StatusBadRequest, route, validationErr.Message)
	case errors.As(err, &notFoundErr):
		respondWithError(c, http.StatusNotFound, route, notFoundErr.Error())
	case errors.As(err, &connErr):
		log.Printf("[%s] [ERROR] %v", route, err)
		respondWithError(c, http.StatusServiceUnavailable, route, fmt.Sprintf("Failed to %s. Please try again.", action))
	default:
		log.Printf("[%s] [ERROR] %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}

func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		log.Printf("[%s] returning error %d: %s", route, http.StatusBadRequest, strings.Join(details, ", "))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
			"modal":   view.Info("Input Error", "Please enter a valid name and price for the menu item."),
		})
		return
	}

	respondWithError(c, http.StatusBadRequest, route, "invalid body")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func actionContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 5*time.Second)
}
