// Package session establishes the store connection and the caller identity
// before anything else runs.
package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"bbqpos/internal/identity"
	"bbqpos/internal/store"
)

// Connector opens the document store.
type Connector func(ctx context.Context) (store.Store, error)

// Bootstrap resolves a store handle and an identity exactly once. Identity
// resolution tries an existing session, then the one-time token, then an
// anonymous sign-in. When all of them fail a random local identifier is
// synthesized and the session runs degraded.
type Bootstrap struct {
	connect      Connector
	provider     identity.Provider
	initialToken string

	startOnce sync.Once
	ready     chan struct{}
	cancel    context.CancelFunc

	mu       sync.RWMutex
	store    store.Store
	identity identity.Identity
	degraded bool
}

func New(connect Connector, provider identity.Provider, initialToken string) *Bootstrap {
	return &Bootstrap{
		connect:      connect,
		provider:     provider,
		initialToken: initialToken,
		ready:        make(chan struct{}),
	}
}

// Start runs the bootstrap in the background. Calls after the first are
// no-ops.
func (b *Bootstrap) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		b.mu.Lock()
		b.cancel = cancel
		b.mu.Unlock()

		go b.run(runCtx)
	})
}

// Ready is closed once the store and identity are resolved.
func (b *Bootstrap) Ready() <-chan struct{} {
	return b.ready
}

// Wait blocks until Ready or ctx is done.
func (b *Bootstrap) Wait(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Store is nil when the connection failed.
func (b *Bootstrap) Store() store.Store {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store
}

func (b *Bootstrap) Identity() identity.Identity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.identity
}

// Degraded reports whether the identity was synthesized locally.
func (b *Bootstrap) Degraded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.degraded
}

// Close cancels a bootstrap still in flight and disconnects the store.
func (b *Bootstrap) Close(ctx context.Context) error {
	b.mu.Lock()
	cancel := b.cancel
	st := b.store
	b.store = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if st == nil {
		return nil
	}
	return st.Close(ctx)
}

func (b *Bootstrap) run(ctx context.Context) {
	defer close(b.ready)

	st, err := b.connect(ctx)
	if err != nil {
		log.Println("[SESSION] [ERROR] store connection failed:", err)
		b.finish(ctx, nil, synthesize(), true)
		return
	}

	id, err := b.resolveIdentity(ctx)
	if err != nil {
		log.Println("[SESSION] [WARN] sign-in failed, continuing with a local identity:", err)
		b.finish(ctx, st, synthesize(), true)
		return
	}

	log.Printf("[SESSION] [INFO] ready as %s (anonymous=%t)", id.UserID, id.Anonymous)
	b.finish(ctx, st, id, false)
}

func (b *Bootstrap) resolveIdentity(ctx context.Context) (identity.Identity, error) {
	id, err := b.provider.CurrentSession(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, identity.ErrNoSession) {
		log.Println("[SESSION] [WARN] existing session rejected:", err)
	}

	var errs []error
	if b.initialToken != "" {
		id, err := b.provider.SignInWithToken(ctx, b.initialToken)
		if err == nil {
			return id, nil
		}
		errs = append(errs, err)
	}

	id, err = b.provider.SignInAnonymously(ctx)
	if err == nil {
		return id, nil
	}
	errs = append(errs, err)

	return identity.Identity{}, &AuthError{Err: errors.Join(errs...)}
}

func (b *Bootstrap) finish(ctx context.Context, st store.Store, id identity.Identity, degraded bool) {
	// Closed while connecting: nobody will release this handle.
	if st != nil && ctx.Err() != nil {
		_ = st.Close(context.Background())
		st = nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.store = st
	b.identity = id
	b.degraded = degraded
}

// synthesize mints an identity nothing else knows about. It is never
// reconciled with a later successful sign-in.
func synthesize() identity.Identity {
	return identity.Identity{UserID: uuid.NewString(), Anonymous: true}
}

// AuthError reports that every sign-in path failed. It is always recovered
// inside the bootstrap.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "auth failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
