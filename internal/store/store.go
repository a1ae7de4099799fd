// Package store defines the document-store contract the order session
// manager is written against. The MongoDB implementation lives in
// internal/database; an in-memory implementation lives here.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bbqpos/internal/models"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// Collection names a watched collection inside the deployment namespace.
type Collection string

const (
	MenuItems   Collection = "menuItems"
	AppSettings Collection = "appSettings"
	Orders      Collection = "orders"
)

// Store is the document store consumed by the order session manager. All
// writes are last-write-wins; no method offers a conditional update.
type Store interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
	InsertMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id primitive.ObjectID) error

	// GetCounter returns ErrNotFound when the counter record is missing.
	GetCounter(ctx context.Context) (models.OrderCounter, error)
	// SetCounter creates or overwrites the counter record.
	SetCounter(ctx context.Context, count int) error
	// UpdateCounter overwrites an existing counter record and returns
	// ErrNotFound when it is missing.
	UpdateCounter(ctx context.Context, count int) error

	// ListOrders returns every order, newest timestamp first.
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	InsertOrder(ctx context.Context, order models.Order) (models.Order, error)
	UpdateOrderItems(ctx context.Context, id primitive.ObjectID, items []models.OrderItem) error
	UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status string) error
	DeleteOrder(ctx context.Context, id primitive.ObjectID) error

	// Watch delivers a signal on the returned channel once immediately and
	// again after every change to the collection. The channel is closed when
	// ctx is done. Signals may be coalesced; receivers re-read the whole
	// collection on every signal.
	Watch(ctx context.Context, coll Collection) (<-chan struct{}, error)
}
