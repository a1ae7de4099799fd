package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bbqpos/internal/view"
)

// Confirm runs the destructive action waiting under :token.
func Confirm(confirmations *view.Confirmations) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/confirm/:token"
		defer handlePanic(c, route)

		ctx, cancel := actionContext(c)
		defer cancel()

		modal, err := confirmations.Confirm(ctx, c.Param("token"))
		if errors.Is(err, view.ErrUnknownConfirmation) {
			respondWithError(c, http.StatusNotFound, route, err.Error())
			return
		}
		if err != nil {
			respondActionError(c, route, "complete the action", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"modal": modal})
	}
}

// CancelConfirm drops the action waiting under :token.
func CancelConfirm(confirmations *view.Confirmations) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/confirm/:token"
		defer handlePanic(c, route)

		if !confirmations.Cancel(c.Param("token")) {
			respondWithError(c, http.StatusNotFound, route, view.ErrUnknownConfirmation.Error())
			return
		}
		c.Status(http.StatusNoContent)
	}
}
