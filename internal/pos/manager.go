// Package pos owns the order session state: the menu and counter mirrors,
// the order mirror, and the in-progress cart. Every mutation goes through a
// Manager method; observers receive a fresh State after each change.
package pos

import (
	"context"
	"log"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bbqpos/internal/models"
	"bbqpos/internal/notify"
	"bbqpos/internal/store"
)

// State is an immutable snapshot of everything the presentation layer needs.
type State struct {
	Owner     string             `json:"owner"`
	Connected bool               `json:"connected"`
	Menu      []models.MenuItem  `json:"menu"`
	Counter   int                `json:"counter"`
	Orders    []models.Order     `json:"orders"`
	Cart      []models.OrderItem `json:"cart"`
	CartTotal string             `json:"cartTotal"`
}

type Option func(*Manager)

// WithNotifier announces placed and completed orders through n.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithClock replaces the wall clock and the zone used for display times.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(m *Manager) {
		m.now = now
		m.loc = loc
	}
}

type Manager struct {
	store    store.Store
	owner    string
	notifier notify.Notifier
	now      func() time.Time
	loc      *time.Location

	mu      sync.RWMutex
	menu    []models.MenuItem
	counter int
	orders  []models.Order
	cart    []models.OrderItem

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewManager builds a manager over st acting as owner. st may be nil, in
// which case every remote action reports a ConnectionError.
func NewManager(st store.Store, owner string, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		owner:     owner,
		notifier:  notify.LogNotifier{},
		now:       time.Now,
		loc:       time.Local,
		observers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn to receive the state after every change and
// returns a function that removes it. fn runs on the goroutine that made the
// change and must not block.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.obsMu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return State{
		Owner:     m.owner,
		Connected: m.store != nil,
		Menu:      append([]models.MenuItem{}, m.menu...),
		Counter:   m.counter,
		Orders:    cloneOrders(m.orders),
		Cart:      append([]models.OrderItem{}, m.cart...),
		CartTotal: cartTotal(m.cart).StringFixed(2),
	}
}

// Ping checks the store connection.
func (m *Manager) Ping(ctx context.Context) error {
	if m.store == nil {
		return &ConnectionError{Op: "ping", Err: ErrNoStore}
	}
	if err := m.store.Ping(ctx); err != nil {
		return &ConnectionError{Op: "ping", Err: err}
	}
	return nil
}

func (m *Manager) publish() {
	state := m.State()

	m.obsMu.Lock()
	observers := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.obsMu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

func (m *Manager) announce(ctx context.Context, kind notify.EventType, order models.Order) {
	if m.notifier == nil {
		return
	}
	event := notify.Event{
		Type:        kind,
		OrderID:     order.ID.Hex(),
		OrderNumber: order.OrderNumber,
		Total:       order.Total,
		At:          m.now(),
	}
	if err := m.notifier.Publish(ctx, event); err != nil {
		log.Printf("[POS] [WARN] %s notification for order #%d failed: %v", kind, order.OrderNumber, err)
	}
}

// replaceMenu, replaceCounter and replaceOrders swap a whole mirror and
// report whether anything changed.
func (m *Manager) replaceMenu(items []models.MenuItem) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reflect.DeepEqual(m.menu, items) {
		return false
	}
	m.menu = items
	return true
}

func (m *Manager) replaceCounter(count int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counter == count {
		return false
	}
	m.counter = count
	return true
}

func (m *Manager) replaceOrders(orders []models.Order) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reflect.DeepEqual(m.orders, orders) {
		return false
	}
	m.orders = orders
	return true
}

func cloneOrders(orders []models.Order) []models.Order {
	out := make([]models.Order, len(orders))
	for i, order := range orders {
		order.Items = append([]models.OrderItem{}, order.Items...)
		out[i] = order
	}
	return out
}
