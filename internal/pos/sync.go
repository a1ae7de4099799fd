package pos

import (
	"context"
	"errors"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"bbqpos/internal/store"
)

type subscription struct {
	coll    store.Collection
	refresh func(ctx context.Context) error
}

// Start opens live subscriptions on the menu, the order counter and the
// orders. Each change signal re-reads the whole collection and replaces the
// local mirror. Refresh failures are logged and the last good mirror is
// kept. Start is a no-op without a store.
func (m *Manager) Start(ctx context.Context) error {
	if m.store == nil {
		log.Println("[SYNC] [WARN] no store, subscriptions not started")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	subs := []subscription{
		{coll: store.MenuItems, refresh: m.refreshMenu},
		{coll: store.AppSettings, refresh: m.refreshCounter},
		{coll: store.Orders, refresh: m.refreshOrders},
	}
	for _, sub := range subs {
		signals, err := m.store.Watch(gctx, sub.coll)
		if err != nil {
			cancel()
			_ = g.Wait()
			return &ConnectionError{Op: "subscribe " + string(sub.coll), Err: err}
		}

		g.Go(func() error {
			for range signals {
				if err := sub.refresh(gctx); err != nil && gctx.Err() == nil {
					log.Printf("[SYNC] [ERROR] %s snapshot failed: %v", sub.coll, err)
				}
			}
			return nil
		})
	}

	m.mu.Lock()
	m.cancel = cancel
	m.group = g
	m.mu.Unlock()

	log.Println("[SYNC] [INFO] subscriptions started")
	return nil
}

// Close releases the subscriptions and waits for them to finish.
func (m *Manager) Close() error {
	m.mu.Lock()
	cancel, g := m.cancel, m.group
	m.cancel, m.group = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return g.Wait()
}

func (m *Manager) refreshMenu(ctx context.Context) error {
	items, err := m.store.ListMenuItems(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return lessName(items[i].Name, items[j].Name)
	})
	if len(items) == 0 {
		log.Println("[SYNC] [WARN] menu is empty, add items in setup")
	}
	if m.replaceMenu(items) {
		m.publish()
	}
	return nil
}

// refreshCounter creates the counter at 1 when it is missing. A stored
// count below 1 is read as 1.
func (m *Manager) refreshCounter(ctx context.Context) error {
	counter, err := m.store.GetCounter(ctx)
	if errors.Is(err, store.ErrNotFound) {
		log.Println("[SYNC] [INFO] order counter missing, initializing to 1")
		if err := m.store.SetCounter(ctx, 1); err != nil {
			return err
		}
		counter.Count = 1
	} else if err != nil {
		return err
	}

	count := counter.Count
	if count < 1 {
		count = 1
	}
	if m.replaceCounter(count) {
		m.publish()
	}
	return nil
}

func (m *Manager) refreshOrders(ctx context.Context) error {
	orders, err := m.store.ListOrders(ctx)
	if err != nil {
		return err
	}
	if m.replaceOrders(orders) {
		m.publish()
	}
	return nil
}
