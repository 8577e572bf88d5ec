// Package amqp publishes and consumes item change events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "granabox/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *applog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

// Handler processes one event. Returning an error nacks the delivery.
type Handler func(ctx context.Context, event *ItemEvent) error

// NewClient connects and declares the topic exchange and the durable queue
// bound to every item event.
func NewClient(url, exchangeName, queueName string, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentAMQP)
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(applog.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *applog.Logger {
	if c.logger == nil {
		return applog.Wrap(nil, applog.ComponentAMQP)
	}
	return c.logger
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.conn = conn
	c.channel = channel
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if queueName == "" {
		return nil
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, RoutingPrefix+"#", exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureChannel reconnects when the connection or channel was closed.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	if c.conn != nil {
		c.conn.Close()
	}
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	c.log().Info("Reconnected to AMQP broker", "exchange", c.exchangeName)
	return c.channel, nil
}

// PublishItemEvent publishes the event as a persistent message whose id is
// the event id.
func (c *Client) PublishItemEvent(ctx context.Context, event *ItemEvent) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: circuit breaker is open", event.Action)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish %s: %w", event.Action, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName,     // exchange
		event.RoutingKey(), // routing key
		false,              // mandatory
		false,              // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish %s: %w", event.Action, err)
	}
	c.recordSuccess()

	c.log().DebugContext(ctx, "Published item event",
		"event_id", event.ID,
		"action", event.Action,
		applog.FieldItemID, event.Item.ID,
		"exchange", c.exchangeName)
	return nil
}

// Consume processes the durable queue until ctx is done, reconnecting with
// exponential backoff when the broker goes away. A failed event is requeued
// once; a second failure drops it.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	if c.queueName == "" {
		return errors.New("consume: no queue configured")
	}
	return c.consumeLoop(ctx, false, handler)
}

// Subscribe receives every event on a private queue that lives as long as
// the subscription, so each subscriber sees all events.
func (c *Client) Subscribe(ctx context.Context, handler Handler) error {
	return c.consumeLoop(ctx, true, handler)
}

func (c *Client) consumeLoop(ctx context.Context, private bool, handler Handler) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, private, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !isConnectionError(err) {
			return err
		}
		wait := exponentialBackoff(attempt)
		attempt++
		c.log().WarnContext(ctx, "AMQP consumer interrupted, retrying",
			applog.FieldError, err, "retry_in", wait.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, private bool, handler Handler, connected func()) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}

	queue := c.queueName
	if private {
		q, err := ch.QueueDeclare("", false, true, true, false, nil)
		if err != nil {
			return fmt.Errorf("declare private queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, RoutingPrefix+"#", c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind private queue: %w", err)
		}
		queue = q.Name
	}

	deliveries, err := ch.Consume(
		queue,   // queue
		"",      // consumer
		false,   // auto-ack
		private, // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	c.log().InfoContext(ctx, "Consuming item events", "queue", queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return amqp091.ErrClosed
			}
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler Handler) {
	event, err := ItemEventFromJSON(d.Body)
	if err != nil {
		c.log().ErrorContext(ctx, "Dropping malformed item event", applog.FieldError, err, "message_id", d.MessageId)
		d.Nack(false, false)
		return
	}

	if err := handler(ctx, event); err != nil {
		requeue := !d.Redelivered
		c.log().ErrorContext(ctx, "Item event handler failed",
			applog.FieldError, err,
			"event_id", event.ID,
			"action", event.Action,
			"requeue", requeue)
		d.Nack(false, requeue)
		return
	}
	d.Ack(false)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	failures := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.log().Warn("AMQP circuit breaker opened", "failures", failures)
		}
	}
}

// exponentialBackoff doubles from one second and caps at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
