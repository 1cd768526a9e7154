package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the fanout exchange all change signals pass through.
const ExchangeName = "crm.changes"

// AMQPPublisher publishes change signals to a fanout exchange with publisher
// confirms, so a mutation is only reported as notified once the broker has
// accepted the signal.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation
	mu   sync.Mutex // serializes Publish while waiting for confirms
}

// DialPublisher connects to the broker, declares the exchange, and enables
// publisher confirms.
func DialPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &AMQPPublisher{conn: conn, ch: ch, acks: acks}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, c Change) error {
	body, err := json.Marshal(c)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(
		ctx,
		ExchangeName,
		"", // fanout ignores the routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	); err != nil {
		return err
	}

	select {
	case conf := <-p.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping reports whether the underlying connection is still open.
func (p *AMQPPublisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// AMQPFeed consumes change signals through an exclusive auto-delete queue, so
// each session gets its own copy of the fanout and the queue disappears with
// the connection. Closing the feed closes the channel feeding Changes.
type AMQPFeed struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	changes chan Change
	done    chan struct{}
	once    sync.Once
}

// DialFeed opens one subscription channel for a client session.
func DialFeed(url string) (*AMQPFeed, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", ExchangeName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}

	f := &AMQPFeed{conn: conn, ch: ch, changes: make(chan Change), done: make(chan struct{})}
	go f.forward(deliveries)
	return f, nil
}

// forward decodes deliveries into change signals. The consumer may go away
// while a send is in flight, so every send races the done channel; without
// that a signal arriving during teardown would park this goroutine forever.
func (f *AMQPFeed) forward(deliveries <-chan amqp.Delivery) {
	defer close(f.changes)
	for d := range deliveries {
		var c Change
		if err := json.Unmarshal(d.Body, &c); err != nil {
			continue
		}
		select {
		case f.changes <- c:
		case <-f.done:
			return
		}
	}
}

func (f *AMQPFeed) Changes() <-chan Change { return f.changes }

func (f *AMQPFeed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		if f.ch != nil {
			err = f.ch.Close()
		}
		if f.conn != nil {
			_ = f.conn.Close()
		}
	})
	return err
}
