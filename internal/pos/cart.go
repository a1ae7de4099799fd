package pos

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bbqpos/internal/models"
)

// AddToCart appends item as a new line or bumps the quantity of the line
// already holding it.
func (m *Manager) AddToCart(item models.MenuItem) {
	m.mu.Lock()
	added := false
	for i := range m.cart {
		if m.cart[i].MenuItemID == item.ID {
			m.cart[i].Quantity++
			added = true
			break
		}
	}
	if !added {
		m.cart = append(m.cart, models.OrderItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   1,
		})
	}
	m.mu.Unlock()

	m.publish()
}

// AddToCartByID adds the mirrored menu item with the given id.
func (m *Manager) AddToCartByID(id string) (models.MenuItem, error) {
	item, ok := m.MenuItem(id)
	if !ok {
		return models.MenuItem{}, &NotFoundError{Kind: "menu item", ID: id}
	}
	m.AddToCart(item)
	return item, nil
}

// RemoveFromCart decrements the line holding the menu item and drops it when
// the quantity reaches zero. Removing an item not in the cart does nothing.
func (m *Manager) RemoveFromCart(id primitive.ObjectID) {
	m.mu.Lock()
	changed := false
	for i := range m.cart {
		if m.cart[i].MenuItemID != id {
			continue
		}
		if m.cart[i].Quantity > 1 {
			m.cart[i].Quantity--
		} else {
			m.cart = append(m.cart[:i], m.cart[i+1:]...)
		}
		changed = true
		break
	}
	m.mu.Unlock()

	if changed {
		m.publish()
	}
}

// RemoveFromCartByID is RemoveFromCart for a hex id; an unparsable id is
// treated like an absent line.
func (m *Manager) RemoveFromCartByID(id string) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return
	}
	m.RemoveFromCart(oid)
}

func (m *Manager) Cart() []models.OrderItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.OrderItem{}, m.cart...)
}

// CartTotal is Σ price×quantity over the cart, rounded to 2 decimals.
func (m *Manager) CartTotal() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cartTotal(m.cart)
}

func cartTotal(lines []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2)
}
