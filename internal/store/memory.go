package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bbqpos/internal/models"
)

// ErrClosed is returned by a Memory store after Close.
var ErrClosed = errors.New("store closed")

// Memory is an in-process Store. It backs the "memory" store driver and the
// package tests.
type Memory struct {
	mu       sync.Mutex
	closed   bool
	menu     map[primitive.ObjectID]models.MenuItem
	counter  *models.OrderCounter
	orders   map[primitive.ObjectID]models.Order
	watchers map[Collection][]chan struct{}
	failWith error
}

func NewMemory() *Memory {
	return &Memory{
		menu:     make(map[primitive.ObjectID]models.MenuItem),
		orders:   make(map[primitive.ObjectID]models.Order),
		watchers: make(map[Collection][]chan struct{}),
	}
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// FailWrites makes every subsequent write return err. Passing nil restores
// normal behaviour.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *Memory) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(ctx); err != nil {
		return nil, err
	}
	items := make([]models.MenuItem, 0, len(m.menu))
	for _, item := range m.menu {
		items = append(items, item)
	}
	return items, nil
}

func (m *Memory) InsertMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(ctx); err != nil {
		return models.MenuItem{}, err
	}
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	m.menu[item.ID] = item
	m.notify(MenuItems)
	return item, nil
}

func (m *Memory) DeleteMenuItem(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(ctx); err != nil {
		return err
	}
	if _, ok := m.menu[id]; !ok {
		return ErrNotFound
	}
	delete(m.menu, id)
	m.notify(MenuItems)
	return nil
}

func (m *Memory) GetCounter(ctx context.Context) (models.OrderCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(ctx); err != nil {
		return models.OrderCounter{}, err
	}
	if m.counter == nil {
		return models.OrderCounter{}, ErrNotFound
	}
	return *m.counter, nil
}

func (m *Memory) SetCounter(ctx context.Context, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(ctx); err != nil {
		return err
	}
	m.counter = &models.OrderCounter{ID: models.OrderCounterID, Count: count}
	m.notify(AppSettings)
	return nil
}

func (m *Memory) UpdateCounter(ctx context.Context, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(ctx); err != nil {
		return err
	}
	if m.counter == nil {
		return ErrNotFound
	}
	m.counter.Count = count
	m.notify(AppSettings)
	return nil
}

func (m *Memory) ListOrders(ctx context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(ctx); err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(m.orders))
	for _, order := range m.orders {
		orders = append(orders, cloneOrder(order))
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Timestamp > orders[j].Timestamp
	})
	return orders, nil
}

func (m *Memory) GetOrder(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(ctx); err != nil {
		return models.Order{}, err
	}
	order, ok := m.orders[id]
	if !ok {
		return models.Order{}, ErrNotFound
	}
	return cloneOrder(order), nil
}

func (m *Memory) InsertOrder(ctx context.Context, order models.Order) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(ctx); err != nil {
		return models.Order{}, err
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	m.orders[order.ID] = cloneOrder(order)
	m.notify(Orders)
	return order, nil
}

func (m *Memory) UpdateOrderItems(ctx context.Context, id primitive.ObjectID, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(ctx); err != nil {
		return err
	}
	order, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Items = append([]models.OrderItem(nil), items...)
	m.orders[id] = order
	m.notify(Orders)
	return nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(ctx); err != nil {
		return err
	}
	order, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	m.orders[id] = order
	m.notify(Orders)
	return nil
}

func (m *Memory) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(ctx); err != nil {
		return err
	}
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	m.notify(Orders)
	return nil
}

func (m *Memory) Watch(ctx context.Context, coll Collection) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.usable(ctx); err != nil {
		return nil, err
	}

	signals := make(chan struct{}, 1)
	signals <- struct{}{}
	m.watchers[coll] = append(m.watchers[coll], signals)

	out := make(chan struct{})
	go func() {
		defer close(out)
		defer m.unwatch(coll, signals)
		for {
			select {
			case <-ctx.Done():
				return
			case <-signals:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (m *Memory) unwatch(coll Collection, signals chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	watchers := m.watchers[coll]
	for i, w := range watchers {
		if w == signals {
			m.watchers[coll] = append(watchers[:i], watchers[i+1:]...)
			return
		}
	}
}

// notify must be called with m.mu held. A full buffer already holds a
// pending signal, so the send is dropped rather than blocking the writer.
func (m *Memory) notify(coll Collection) {
	for _, w := range m.watchers[coll] {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}

func (m *Memory) usable(ctx context.Context) error {
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (m *Memory) writable(ctx context.Context) error {
	if err := m.usable(ctx); err != nil {
		return err
	}
	return m.failWith
}

func cloneOrder(order models.Order) models.Order {
	order.Items = append([]models.OrderItem(nil), order.Items...)
	return order
}
