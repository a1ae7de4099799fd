// Package notify announces order lifecycle events to whoever is listening:
// the log by default, a RabbitMQ fanout exchange when configured.
package notify

import (
	"context"
	"log"
	"time"
)

type EventType string

const (
	OrderPlaced    EventType = "order.placed"
	OrderCompleted EventType = "order.completed"
)

type Event struct {
	Type        EventType `json:"type"`
	OrderID     string    `json:"orderId"`
	OrderNumber int       `json:"orderNumber"`
	Total       float64   `json:"total,omitempty"`
	At          time.Time `json:"at"`
}

type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// LogNotifier writes events to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Publish(ctx context.Context, event Event) error {
	log.Printf("[NOTIFY] [INFO] %s order #%d (%s)", event.Type, event.OrderNumber, event.OrderID)
	return nil
}
