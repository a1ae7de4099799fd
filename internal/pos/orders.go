package pos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bbqpos/internal/export"
	"bbqpos/internal/models"
	"bbqpos/internal/notify"
	"bbqpos/internal/store"
)

// Flag names a per-item status flag.
type Flag string

const (
	FlagReady  Flag = "ready"
	FlagServed Flag = "served"
)

// ParseFlag accepts "ready"/"served" and the stored field names
// "isReady"/"isServed".
func ParseFlag(s string) (Flag, error) {
	switch s {
	case "ready", "isReady":
		return FlagReady, nil
	case "served", "isServed":
		return FlagServed, nil
	default:
		return "", &ValidationError{Message: fmt.Sprintf("unknown flag %q", s)}
	}
}

// ItemTotal is the summed quantity of one item name across active orders.
type ItemTotal struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Counter is the number the next committed order receives.
func (m *Manager) Counter() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counter
}

// Orders returns the mirrored orders, newest first.
func (m *Manager) Orders() []models.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneOrders(m.orders)
}

func (m *Manager) ActiveOrders() []models.Order {
	return FilterOrders(m.Orders(), models.OrderStatusActive)
}

func (m *Manager) CompletedOrders() []models.Order {
	return FilterOrders(m.Orders(), models.OrderStatusCompleted)
}

// ActiveOrderTotals groups the items of all active orders by name and sums
// their quantities, sorted by name.
func (m *Manager) ActiveOrderTotals() []ItemTotal {
	return SumActiveItems(m.Orders())
}

// SumActiveItems is ActiveOrderTotals over an arbitrary order list.
func SumActiveItems(orders []models.Order) []ItemTotal {
	counts := make(map[string]int)
	for _, order := range orders {
		if order.Status != models.OrderStatusActive {
			continue
		}
		for _, item := range order.Items {
			counts[item.Name] += item.Quantity
		}
	}

	totals := make([]ItemTotal, 0, len(counts))
	for name, qty := range counts {
		totals = append(totals, ItemTotal{Name: name, Quantity: qty})
	}
	sort.Slice(totals, func(i, j int) bool {
		return lessName(totals[i].Name, totals[j].Name)
	})
	return totals
}

// lessName orders item names case-insensitively, breaking ties byte-wise.
// The menu and the active totals share it.
func lessName(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// FilterOrders keeps the orders with the given status, preserving order.
func FilterOrders(orders []models.Order, status string) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		if order.Status == status {
			out = append(out, order)
		}
	}
	return out
}

// CommitOrder writes the cart as a new active order numbered with the
// current counter, then writes counter+1 and clears the cart. The counter
// write is not attempted when the order write fails.
//
// The increment is read-then-write with no guard: two operators committing
// at once can both use the same number. An atomic $inc (or a transaction
// around both writes) would close the race.
func (m *Manager) CommitOrder(ctx context.Context) (models.Order, error) {
	m.mu.RLock()
	cart := append([]models.OrderItem{}, m.cart...)
	count := m.counter
	m.mu.RUnlock()

	if len(cart) == 0 {
		return models.Order{}, &ValidationError{Message: "please add items to the order before marking as paid"}
	}
	if m.store == nil {
		return models.Order{}, &ConnectionError{Op: "commit order", Err: ErrNoStore}
	}

	if count < 1 {
		loaded, err := m.loadCounter(ctx)
		if err != nil {
			return models.Order{}, &ConnectionError{Op: "read order counter", Err: err}
		}
		count = loaded
	}

	for i := range cart {
		cart[i].IsReady = false
		cart[i].IsServed = false
	}

	now := m.now()
	order := models.Order{
		OrderNumber: count,
		Timestamp:   now.UnixMilli(),
		DisplayTime: now.In(m.loc).Format("15:04"),
		Status:      models.OrderStatusActive,
		Items:       cart,
		Total:       cartTotal(cart).InexactFloat64(),
		UserID:      m.owner,
	}

	created, err := m.store.InsertOrder(ctx, order)
	if err != nil {
		return models.Order{}, &ConnectionError{Op: "commit order", Err: err}
	}
	if err := m.store.UpdateCounter(ctx, count+1); err != nil {
		return created, &ConnectionError{Op: "increment order counter", Err: err}
	}

	m.mu.Lock()
	m.cart = nil
	if m.counter <= count {
		m.counter = count + 1
	}
	m.mu.Unlock()
	m.publish()

	log.Printf("[POS] [INFO] order #%d placed (%s)", created.OrderNumber, created.ID.Hex())
	m.announce(ctx, notify.OrderPlaced, created)
	return created, nil
}

func (m *Manager) loadCounter(ctx context.Context) (int, error) {
	counter, err := m.store.GetCounter(ctx)
	if errors.Is(err, store.ErrNotFound) {
		if err := m.store.SetCounter(ctx, 1); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if counter.Count < 1 {
		return 1, nil
	}
	return counter.Count, nil
}

// ToggleItemFlag flips one flag on one item. Serving an item readies it and
// un-readying an item un-serves it. When every item ends up served the order
// is marked completed. completed reports whether this call moved the order
// from active to completed.
//
// The whole items array is read, modified and written back, so concurrent
// toggles on the same order race and the last writer wins.
func (m *Manager) ToggleItemFlag(ctx context.Context, orderID string, index int, flag Flag) (order models.Order, completed bool, err error) {
	order, err = m.loadOrder(ctx, "toggle item", orderID)
	if err != nil {
		return models.Order{}, false, err
	}
	if index < 0 || index >= len(order.Items) {
		return models.Order{}, false, &NotFoundError{Kind: "order item", ID: fmt.Sprintf("%s[%d]", orderID, index)}
	}

	items := toggleFlag(order.Items, index, flag)
	return m.writeItems(ctx, order, items, models.Order{Items: items}.AllServed())
}

// ToggleAllFlags sets flag on every item. Setting served also readies every
// item and always completes the order.
func (m *Manager) ToggleAllFlags(ctx context.Context, orderID string, flag Flag) (order models.Order, completed bool, err error) {
	order, err = m.loadOrder(ctx, "toggle all items", orderID)
	if err != nil {
		return models.Order{}, false, err
	}

	items := setAllFlags(order.Items, flag)
	return m.writeItems(ctx, order, items, flag == FlagServed)
}

func (m *Manager) writeItems(ctx context.Context, order models.Order, items []models.OrderItem, complete bool) (models.Order, bool, error) {
	id := order.ID.Hex()
	if err := m.store.UpdateOrderItems(ctx, order.ID, items); err != nil {
		return models.Order{}, false, storeError("update order items", "order", id, err)
	}
	wasCompleted := order.Status == models.OrderStatusCompleted
	order.Items = items

	if !complete {
		return order, false, nil
	}
	if err := m.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCompleted); err != nil {
		return models.Order{}, false, storeError("complete order", "order", id, err)
	}
	order.Status = models.OrderStatusCompleted
	if wasCompleted {
		return order, false, nil
	}
	log.Printf("[POS] [INFO] order #%d completed", order.OrderNumber)
	m.announce(ctx, notify.OrderCompleted, order)
	return order, true, nil
}

// Reopen moves a completed order back to active without touching its
// items. Reopening an order that is already active changes nothing.
func (m *Manager) Reopen(ctx context.Context, orderID string) (models.Order, error) {
	order, err := m.loadOrder(ctx, "reopen order", orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.Status != models.OrderStatusCompleted {
		return order, nil
	}

	if err := m.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusActive); err != nil {
		return models.Order{}, storeError("reopen order", "order", orderID, err)
	}
	order.Status = models.OrderStatusActive
	log.Printf("[POS] [INFO] order #%d reopened", order.OrderNumber)
	return order, nil
}

// DeleteOrder removes an order permanently.
func (m *Manager) DeleteOrder(ctx context.Context, orderID string) error {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return &NotFoundError{Kind: "order", ID: orderID}
	}
	if m.store == nil {
		return &ConnectionError{Op: "delete order", Err: ErrNoStore}
	}
	if err := m.store.DeleteOrder(ctx, oid); err != nil {
		return storeError("delete order", "order", orderID, err)
	}
	log.Printf("[POS] [INFO] order %s deleted", orderID)
	return nil
}

// ResetCounter sets the order counter back to 1.
func (m *Manager) ResetCounter(ctx context.Context) error {
	if m.store == nil {
		return &ConnectionError{Op: "reset order counter", Err: ErrNoStore}
	}
	if err := m.store.SetCounter(ctx, 1); err != nil {
		return &ConnectionError{Op: "reset order counter", Err: err}
	}
	if m.replaceCounter(1) {
		m.publish()
	}
	log.Println("[POS] [INFO] order counter reset to 1")
	return nil
}

// ExportFilename is the download name for an export taken now.
func (m *Manager) ExportFilename() string {
	return export.Filename(m.now())
}

// ExportCSV writes every mirrored order as CSV. Nothing is written when
// there are no orders.
func (m *Manager) ExportCSV(w io.Writer) error {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, m.Orders()); err != nil {
		if errors.Is(err, export.ErrNoOrders) {
			return &ValidationError{Message: "there are no orders to export"}
		}
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (m *Manager) loadOrder(ctx context.Context, op, orderID string) (models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return models.Order{}, &NotFoundError{Kind: "order", ID: orderID}
	}
	if m.store == nil {
		return models.Order{}, &ConnectionError{Op: op, Err: ErrNoStore}
	}
	order, err := m.store.GetOrder(ctx, oid)
	if err != nil {
		return models.Order{}, storeError(op, "order", orderID, err)
	}
	return order, nil
}

func toggleFlag(items []models.OrderItem, index int, flag Flag) []models.OrderItem {
	out := append([]models.OrderItem{}, items...)
	item := &out[index]
	switch flag {
	case FlagReady:
		item.IsReady = !item.IsReady
		if !item.IsReady {
			item.IsServed = false
		}
	case FlagServed:
		item.IsServed = !item.IsServed
		if item.IsServed {
			item.IsReady = true
		}
	}
	return out
}

func setAllFlags(items []models.OrderItem, flag Flag) []models.OrderItem {
	out := append([]models.OrderItem{}, items...)
	for i := range out {
		switch flag {
		case FlagReady:
			out[i].IsReady = true
		case FlagServed:
			out[i].IsReady = true
			out[i].IsServed = true
		}
	}
	return out
}
