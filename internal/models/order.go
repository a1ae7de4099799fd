package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	OrderStatusActive    = "active"
	OrderStatusCompleted = "completed"
)

// OrderItem is a cart line as persisted inside an order. The same shape is
// used for the in-progress cart before the order is paid.
type OrderItem struct {
	MenuItemID primitive.ObjectID `bson:"id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Price      float64            `bson:"price" json:"price"`
	Quantity   int                `bson:"quantity" json:"quantity"`
	IsReady    FlexBool           `bson:"isReady" json:"isReady"`
	IsServed   FlexBool           `bson:"isServed" json:"isServed"`
}

// Order defines the persisted order document.
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber int                `bson:"orderNumber" json:"orderNumber"`
	Timestamp   int64              `bson:"timestamp" json:"timestamp"`
	DisplayTime string             `bson:"displayTime" json:"displayTime"`
	Status      string             `bson:"status" json:"status"`
	Items       []OrderItem        `bson:"items" json:"items"`
	Total       float64            `bson:"total" json:"total"`
	UserID      string             `bson:"userId" json:"userId"`
}

// AllServed reports whether every item of the order has been served. An
// order without items is never considered served.
func (o Order) AllServed() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if !item.IsServed {
			return false
		}
	}
	return true
}
