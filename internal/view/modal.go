package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Modal is a two-button dialog. With ShowConfirm it asks to confirm the
// action identified by ConfirmToken; otherwise it only acknowledges.
type Modal struct {
	Title        string `json:"title"`
	Message      string `json:"message"`
	ShowConfirm  bool   `json:"showConfirm"`
	ConfirmToken string `json:"confirmToken,omitempty"`
}

func Info(title, message string) Modal {
	return Modal{Title: title, Message: message}
}

var ErrUnknownConfirmation = errors.New("confirmation expired or unknown")

// Action is a destructive operation waiting for confirmation. It returns the
// info modal to show on success.
type Action func(ctx context.Context) (Modal, error)

type pending struct {
	run     Action
	expires time.Time
}

// Confirmations holds destructive actions until the operator confirms or
// cancels them. An action runs at most once.
type Confirmations struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pending map[string]pending
}

func NewConfirmations(ttl time.Duration) *Confirmations {
	return &Confirmations{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]pending),
	}
}

// Request registers run and returns the confirm modal for it.
func (c *Confirmations) Request(title, message string, run Action) Modal {
	token := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
	c.pending[token] = pending{run: run, expires: c.now().Add(c.ttl)}

	return Modal{Title: title, Message: message, ShowConfirm: true, ConfirmToken: token}
}

// Confirm runs the action registered under token.
func (c *Confirmations) Confirm(ctx context.Context, token string) (Modal, error) {
	c.mu.Lock()
	p, ok := c.pending[token]
	delete(c.pending, token)
	c.mu.Unlock()

	if !ok || c.now().After(p.expires) {
		return Modal{}, ErrUnknownConfirmation
	}
	return p.run(ctx)
}

// Cancel drops the action registered under token and reports whether one
// was pending.
func (c *Confirmations) Cancel(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[token]
	delete(c.pending, token)
	return ok
}

// Pending counts actions that have not expired.
func (c *Confirmations) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
	return len(c.pending)
}

// purge must be called with c.mu held.
func (c *Confirmations) purge() {
	now := c.now()
	for token, p := range c.pending {
		if now.After(p.expires) {
			delete(c.pending, token)
		}
	}
}
