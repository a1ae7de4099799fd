package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bbqpos/internal/pos"
	"bbqpos/internal/view"
)

func flagFromQuery(c *gin.Context) (pos.Flag, error) {
	return pos.ParseFlag(c.DefaultQuery("flag", string(pos.FlagReady)))
}

func ToggleItem(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/:id/items/:index/toggle"
		defer handlePanic(c, route)

		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			respondWithError(c, http.StatusNotFound, route, "order item not found")
			return
		}
		flag, err := flagFromQuery(c)
		if err != nil {
			respondActionError(c, route, "update item status", err)
			return
		}

		ctx, cancel := actionContext(c)
		defer cancel()

		order, completed, err := m.ToggleItemFlag(ctx, c.Param("id"), index, flag)
		if err != nil {
			respondActionError(c, route, "update item status", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"order": order, "modal": orderModal(completed, order.OrderNumber)})
	}
}

func ToggleAllItems(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/:id/toggle-all"
		defer handlePanic(c, route)

		flag, err := flagFromQuery(c)
		if err != nil {
			respondActionError(c, route, "update all items status", err)
			return
		}

		ctx, cancel := actionContext(c)
		defer cancel()

		order, completed, err := m.ToggleAllFlags(ctx, c.Param("id"), flag)
		if err != nil {
			respondActionError(c, route, "update all items status", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"order": order, "modal": orderModal(completed, order.OrderNumber)})
	}
}

// orderModal announces a completion caused by the toggle; nil otherwise.
func orderModal(completed bool, orderNumber int) *view.Modal {
	if !completed {
		return nil
	}
	modal := view.Info("Order Completed!", fmt.Sprintf("Order #%d has been moved to completed orders.", orderNumber))
	return &modal
}

// RequestReopenOrder asks for confirmation before moving a completed order
// back to active.
func RequestReopenOrder(m *pos.Manager, confirmations *view.Confirmations) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/:id/reopen"
		defer handlePanic(c, route)

		orderID := c.Param("id")
		number, ok := mirroredOrderNumber(m, orderID)
		if !ok {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}

		modal := confirmations.Request(
			"Confirm Reopen",
			fmt.Sprintf("Are you sure you want to reopen Order #%d? It will move back to active orders.", number),
			func(ctx context.Context) (view.Modal, error) {
				if _, err := m.Reopen(ctx, orderID); err != nil {
					return view.Modal{}, err
				}
				return view.Info("Success", fmt.Sprintf("Order #%d reopened.", number)), nil
			},
		)
		c.JSON(http.StatusAccepted, gin.H{"modal": modal})
	}
}

// RequestDeleteOrder asks for confirmation before deleting an order.
func RequestDeleteOrder(m *pos.Manager, confirmations *view.Confirmations) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/orders/:id"
		defer handlePanic(c, route)

		orderID := c.Param("id")
		number, ok := mirroredOrderNumber(m, orderID)
		if !ok {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}

		modal := confirmations.Request(
			"Confirm Delete",
			fmt.Sprintf("Are you sure you want to permanently delete Order #%d? This cannot be undone.", number),
			func(ctx context.Context) (view.Modal, error) {
				if err := m.DeleteOrder(ctx, orderID); err != nil {
					return view.Modal{}, err
				}
				return view.Info("Success", fmt.Sprintf("Order #%d deleted.", number)), nil
			},
		)
		c.JSON(http.StatusAccepted, gin.H{"modal": modal})
	}
}

// EditOrder only explains that editing is not supported.
func EditOrder(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/:id/edit"
		defer handlePanic(c, route)

		number, ok := mirroredOrderNumber(m, c.Param("id"))
		if !ok {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"modal": view.Info("Edit Order", fmt.Sprintf("Editing Order #%d is not supported. Delete it and place a new order instead.", number)),
		})
	}
}

func mirroredOrderNumber(m *pos.Manager, orderID string) (int, bool) {
	for _, order := range m.Orders() {
		if order.ID.Hex() == orderID {
			return order.OrderNumber, true
		}
	}
	return 0, false
}
