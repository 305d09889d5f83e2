// Package broker wires the three citywords processes (poller, worker,
// sender) together over a RabbitMQ delayed-message exchange. Every
// published message carries a routing key that selects its destination
// queue; self-scheduled events flow back into the worker queue through
// the same exchange with an x-delay header instead of a separate timer
// goroutine.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"citywords/lib/sl"
)

const (
	ExchangeName = "auth-delayed"
	exchangeType = "x-delayed-message"

	WorkerQueue = "tg_bot"
	SenderQueue = "tg_bot_sender"

	RouteWorker = "worker"
	RoutePoller = "poller"
	RouteSender = "sender"

	reconnectDelay = 10 * time.Second
)

// Broker owns a single AMQP connection and channel and exposes the
// topology the rest of the system depends on. It is not safe to share
// a *Broker's Channel across goroutines that both publish and consume
// without separate channels; Poller, Worker and Sender each open their
// own Broker against the same URL.
type Broker struct {
	log  *slog.Logger
	url  string
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects, opens a channel, enables publisher confirms and
// declares the exchange and queues used by the pipeline. It blocks,
// retrying every reconnectDelay, until the topology is ready or ctx is
// done.
func Dial(ctx context.Context, url string, log *slog.Logger) (*Broker, error) {
	b := &Broker{log: log.With(sl.Module("broker")), url: url}
	for {
		err := b.connect(ctx)
		if err == nil {
			return b, nil
		}
		b.log.Error("connect failed, retrying", sl.Err(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (b *Broker) connect(ctx context.Context) error {
	conn, err := amqp.DialConfig(b.url, amqp.Config{
		Heartbeat: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("broker: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("broker: open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("broker: enable confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(
		ExchangeName,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("broker: declare exchange: %w", err)
	}

	for _, q := range []struct {
		name  string
		route string
	}{
		{WorkerQueue, RoutePoller},
		{WorkerQueue, RouteWorker},
		{SenderQueue, RouteSender},
	} {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("broker: declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(q.name, q.route, ExchangeName, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("broker: bind queue %s to %s: %w", q.name, q.route, err)
		}
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("broker: set qos: %w", err)
	}

	b.conn = conn
	b.ch = ch
	return nil
}

// Close tears down the channel and connection.
func (b *Broker) Close() {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
}

// Publish sends body to routingKey. When delay is positive the message
// is held by the delayed-message exchange plugin for that long before
// it becomes visible to any consumer — this is how Worker schedules
// slow_player timeouts back to itself, and Sender schedules keyboard
// removal and poll closing back to itself, without a dedicated timer
// process.
func (b *Broker) Publish(ctx context.Context, routingKey string, body []byte, delay time.Duration) error {
	headers := amqp.Table{}
	if delay > 0 {
		headers["x-delay"] = delay.Milliseconds()
	}

	confirm, err := b.ch.PublishWithDeferredConfirmWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
		Headers:      headers,
	})
	if err != nil {
		return fmt.Errorf("broker: publish to %s: %w", routingKey, err)
	}
	if confirm == nil {
		return nil
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("broker: await confirm for %s: %w", routingKey, err)
	}
	if !ok {
		return fmt.Errorf("broker: publish to %s nacked by server", routingKey)
	}
	return nil
}

// Handler processes one delivery. Returning an error nacks and
// requeues the delivery; a nil return acks it.
type Handler func(ctx context.Context, body []byte) error

// Consume runs handler over queue deliveries until ctx is cancelled or
// the underlying connection drops, in which case it reconnects after
// reconnectDelay and resumes. Callers should run Consume in its own
// goroutine per process.
func (b *Broker) Consume(ctx context.Context, queue string, handler Handler) error {
	for {
		if err := b.consumeOnce(ctx, queue, handler); err != nil {
			b.log.Error("consumer stopped, reconnecting", sl.Err(err), slog.String("queue", queue))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
		if err := b.connect(ctx); err != nil {
			b.log.Error("reconnect failed", sl.Err(err))
			continue
		}
	}
}

func (b *Broker) consumeOnce(ctx context.Context, queue string, handler Handler) error {
	deliveries, err := b.ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("broker: consume %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("broker: delivery channel for %s closed", queue)
			}
			if err := handler(ctx, d.Body); err != nil {
				b.log.Error("handler failed, requeueing", sl.Err(err), slog.String("queue", queue))
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
