package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes events as JSON to a durable fanout exchange and
// waits for the broker to confirm each publish.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	mu   sync.Mutex
	acks <-chan amqp.Confirmation
}

func DialAMQP(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 16))

	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange, acks: acks}, nil
}

func (n *AMQPNotifier) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	tag := n.ch.GetNextPublishSeqNo()
	if err := n.ch.PublishWithContext(ctx, n.exchange, string(event.Type), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Type:         string(event.Type),
		Body:         body,
	}); err != nil {
		return err
	}

	return awaitConfirm(ctx, n.acks, tag)
}

// awaitConfirm waits for the confirm carrying tag. Confirms for earlier
// publishes that gave up waiting are discarded.
func awaitConfirm(ctx context.Context, acks <-chan amqp.Confirmation, tag uint64) error {
	for {
		select {
		case conf, ok := <-acks:
			if !ok {
				return errors.New("amqp channel closed before confirm")
			}
			if conf.DeliveryTag < tag {
				continue
			}
			if !conf.Ack {
				return errors.New("publish NACK from broker")
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (n *AMQPNotifier) Close() {
	if n == nil {
		return
	}
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
}
