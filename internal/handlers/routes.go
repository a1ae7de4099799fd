package handlers

import (
	"github.com/gin-gonic/gin"

	"bbqpos/internal/middleware"
	"bbqpos/internal/pos"
	"bbqpos/internal/view"
)

type Deps struct {
	Manager       *pos.Manager
	Confirmations *view.Confirmations
	Issuer        TokenIssuer
	PINHash       string
	// JWTSecret guards /api when set.
	JWTSecret string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	m, confirmations := d.Manager, d.Confirmations

	r.GET("/", Home())
	r.GET("/healthz", Health(m))
	r.POST("/auth/login", OperatorLogin(d.PINHash, d.Issuer))

	stream := r.Group("/api")
	if d.JWTSecret != "" {
		stream.Use(middleware.OperatorStreamAuth(d.JWTSecret))
	}
	stream.GET("/events", Events(m))

	api := r.Group("/api")
	if d.JWTSecret != "" {
		api.Use(middleware.OperatorAuth(d.JWTSecret))
	}
	{
		api.GET("/state", GetState(m))
		api.GET("/view/:section", GetView(m))
		api.GET("/export", ExportOrders(m))

		api.POST("/cart/items/:id", AddCartItem(m))
		api.DELETE("/cart/items/:id", RemoveCartItem(m))
		api.POST("/orders", PlaceOrder(m))

		api.POST("/orders/:id/items/:index/toggle", ToggleItem(m))
		api.POST("/orders/:id/toggle-all", ToggleAllItems(m))
		api.POST("/orders/:id/reopen", RequestReopenOrder(m, confirmations))
		api.POST("/orders/:id/edit", EditOrder(m))
		api.DELETE("/orders/:id", RequestDeleteOrder(m, confirmations))

		api.POST("/menu", CreateMenuItem(m))
		api.DELETE("/menu/:id", RequestDeleteMenuItem(m, confirmations))
		api.POST("/counter/reset", RequestResetCounter(m, confirmations))

		api.POST("/confirm/:token", Confirm(confirmations))
		api.DELETE("/confirm/:token", CancelConfirm(confirmations))
	}
}
