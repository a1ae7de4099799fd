package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bbqpos/internal/pos"
	"bbqpos/internal/view"
)

func AddCartItem(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart/items/:id"
		defer handlePanic(c, route)

		item, err := m.AddToCartByID(c.Param("id"))
		if err != nil {
			respondActionError(c, route, "add item", err)
			return
		}

		log.Printf("[%s] added %q", route, item.Name)
		c.JSON(http.StatusOK, view.Project(m.State(), view.NewOrder))
	}
}

func RemoveCartItem(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/items/:id"
		defer handlePanic(c, route)

		m.RemoveFromCartByID(c.Param("id"))
		c.JSON(http.StatusOK, view.Project(m.State(), view.NewOrder))
	}
}

// PlaceOrder marks the cart as paid.
func PlaceOrder(m *pos.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer handlePanic(c, route)

		if len(m.Cart()) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "Please add items to the order before marking as paid.")
			return
		}

		if err := ensureStoreConnection(c.Request.Context(), m); err != nil {
			respondActionError(c, route, "place order", err)
			return
		}

		ctx, cancel := actionContext(c)
		defer cancel()

		order, err := m.CommitOrder(ctx)
		if err != nil {
			respondActionError(c, route, "place order", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"orderId":     order.ID.Hex(),
			"orderNumber": order.OrderNumber,
			"total":       order.Total,
			"navigate":    view.ActiveOrders,
			"modal":       view.Info("Order Placed!", fmt.Sprintf("Order #%d has been added to active orders.", order.OrderNumber)),
		})
	}
}
