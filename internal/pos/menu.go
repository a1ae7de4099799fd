package pos

import (
	"context"
	"log"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bbqpos/internal/models"
)

func (m *Manager) Menu() []models.MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.MenuItem{}, m.menu...)
}

// MenuItem looks up a mirrored menu item by hex id.
func (m *Manager) MenuItem(id string) (models.MenuItem, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.MenuItem{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, item := range m.menu {
		if item.ID == oid {
			return item, true
		}
	}
	return models.MenuItem{}, false
}

// AddMenuItem validates and stores a new menu item. Names need not be
// unique.
func (m *Manager) AddMenuItem(ctx context.Context, name string, price float64) (models.MenuItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.MenuItem{}, &ValidationError{Message: "menu item name is required"}
	}
	if strings.ContainsAny(name, "\r\n") {
		return models.MenuItem{}, &ValidationError{Message: "menu item name must be a single line"}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return models.MenuItem{}, &ValidationError{Message: "menu item price must be a non-negative number"}
	}
	if m.store == nil {
		return models.MenuItem{}, &ConnectionError{Op: "add menu item", Err: ErrNoStore}
	}

	item, err := m.store.InsertMenuItem(ctx, models.MenuItem{Name: name, Price: price})
	if err != nil {
		return models.MenuItem{}, &ConnectionError{Op: "add menu item", Err: err}
	}
	log.Printf("[POS] [INFO] menu item %q added", item.Name)
	return item, nil
}

// DeleteMenuItem removes a menu item for good. Orders that already contain
// it are left alone.
func (m *Manager) DeleteMenuItem(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return &NotFoundError{Kind: "menu item", ID: id}
	}
	if m.store == nil {
		return &ConnectionError{Op: "delete menu item", Err: ErrNoStore}
	}

	if err := m.store.DeleteMenuItem(ctx, oid); err != nil {
		return storeError("delete menu item", "menu item", id, err)
	}
	log.Printf("[POS] [INFO] menu item %s deleted", id)
	return nil
}
