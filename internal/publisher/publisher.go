// Package publisher forwards checkout transitions to RabbitMQ so other
// services can follow storefront orders.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
)

const (
	OrderStateChangedEvent   = "StorefrontOrderStateChanged"
	OrderStateChangedVersion = 1
	producerName             = "storefront-go"

	publishTimeout = 3 * time.Second
	queueSize      = 64
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher closed")

// OrderStateChangedEnvelope is the message body on the wire.
type OrderStateChangedEnvelope = events.EventEnvelope[checkout.Transition]

// RoutingKey is the topic key for a transition into state.
func RoutingKey(state checkout.State) string {
	return "storefront.order." + string(state) + ".v1"
}

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends transitions from a single worker goroutine so that bus
// handlers never block on the broker.
type Publisher struct {
	ch       Channel
	conn     io.Closer
	exchange string
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan OrderStateChangedEnvelope
	wg     sync.WaitGroup
}

// Dial connects to url and returns a publisher owning the connection.
func Dial(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := New(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// New declares the topic exchange on ch and starts the worker.
func New(ch Channel, exchange string, logger *zap.Logger) (*Publisher, error) {
	// Declare so publish never fails due to missing infra
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare %s: %w", exchange, err)
	}

	p := &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   logging.OrNop(logger),
		queue:    make(chan OrderStateChangedEnvelope, queueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

// Attach forwards every order-state-changed signal on bus. The returned func
// detaches.
func (p *Publisher) Attach(bus *events.Bus) func() {
	return bus.Subscribe(events.OrderStateChanged, func(payload any) {
		t, ok := payload.(checkout.Transition)
		if !ok {
			return
		}
		if err := p.Publish(t); err != nil {
			p.logger.Warn("order event dropped", zap.String("to", string(t.To)), zap.Error(err))
		}
	})
}

// Publish queues t without blocking. A full queue drops the event.
func (p *Publisher) Publish(t checkout.Transition) error {
	env := newEnvelope(t)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- env:
		return nil
	default:
		return fmt.Errorf("publish %s: queue full", env.EventID)
	}
}

func newEnvelope(t checkout.Transition) OrderStateChangedEnvelope {
	key := t.OrderID
	if key == "" {
		key = producerName
	}
	return OrderStateChangedEnvelope{
		EventName:     OrderStateChangedEvent,
		EventVersion:  OrderStateChangedVersion,
		EventID:       uuid.NewString(),
		CorrelationID: t.CorrelationID,
		Producer:      producerName,
		PartitionKey:  key,
		OccurredAt:    time.Now().UTC(),
		Payload:       t,
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for env := range p.queue {
		if err := p.send(env); err != nil {
			p.logger.Warn("order event publish failed",
				zap.String("event_id", env.EventID),
				zap.String("order_id", env.Payload.OrderID),
				zap.Error(err))
			continue
		}
		p.logger.Debug("order event published",
			zap.String("event_id", env.EventID),
			zap.String("routing_key", RoutingKey(env.Payload.To)))
	}
}

func (p *Publisher) send(env OrderStateChangedEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.EventName, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		p.exchange,
		RoutingKey(env.Payload.To),
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Timestamp:     env.OccurredAt,
			Type:          env.EventName,
			Body:          body,
		},
	)
}

// Close stops accepting events, flushes what is queued and closes the
// channel (and the connection when Dial opened it).
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()

	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
