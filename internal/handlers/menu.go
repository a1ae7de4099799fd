package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"bbqpos/internal/pos"
	"bbqpos/internal/view"
)

type createMenuItemRequest struct {
	Name  string   `json:"name" binding:"required"`
	Price *float64 `json:"price" binding:"required,gte=0"`
}

func CreateMenuItem(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/menu"
		defer handlePanic(c, route)

		var req createMenuItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := actionContext(c)
		defer cancel()

		item, err := m.AddMenuItem(ctx, req.Name, *req.Price)
		if err != nil {
			respondActionError(c, route, "add menu item", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"item":  item,
			"modal": view.Info("Success", fmt.Sprintf("%s added to menu.", item.Name)),
		})
	}
}

// RequestDeleteMenuItem asks for confirmation before deleting a menu item.
func RequestDeleteMenuItem(m *pos.Manager, confirmations *view.Confirmations) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/menu/:id"
		defer handlePanic(c, route)

		id := c.Param("id")
		item, ok := m.MenuItem(id)
		if !ok {
			respondWithError(c, http.StatusNotFound, route, "menu item not found")
			return
		}

		modal := confirmations.Request(
			"Confirm Delete",
			fmt.Sprintf("Are you sure you want to delete %q from the menu?", item.Name),
			func(ctx context.Context) (view.Modal, error) {
				if err := m.DeleteMenuItem(ctx, id); err != nil {
					return view.Modal{}, err
				}
				return view.Info("Success", fmt.Sprintf("%s deleted from menu.", item.Name)), nil
			},
		)
		c.JSON(http.StatusAccepted, gin.H{"modal": modal})
	}
}

// RequestResetCounter asks for confirmation before resetting the counter.
func RequestResetCounter(m *pos.Manager, confirmations *view.Confirmations) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/counter/reset"
		defer handlePanic(c, route)

		modal := confirmations.Request(
			"Confirm Reset",
			"Are you sure you want to reset the order count to 1? This cannot be undone.",
			func(ctx context.Context) (view.Modal, error) {
				if err := m.ResetCounter(ctx); err != nil {
					return view.Modal{}, err
				}
				return view.Info("Success", "Order count has been reset to 1."), nil
			},
		)
		c.JSON(http.StatusAccepted, gin.H{"modal": modal})
	}
}
