package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	DefaultExchange = "collab.lifecycle"
	dialTimeout     = 10 * time.Second
)

var ErrInvalidURL = errors.New("amqp url must use amqp:// or amqps://")

// channel is the slice of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends lifecycle events to a durable topic exchange. The routing
// key is the event type.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  channel
	reopen   func() (channel, error)
	exchange string
	declared bool
	logger   zerolog.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

func Dial(rawURL, exchange string, logger zerolog.Logger) (*Publisher, error) {
	cleanURL, err := sanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open amqp channel: %w", err), conn.Close())
	}

	publisher := newPublisher(ch, exchange, logger)
	publisher.conn = conn
	publisher.reopen = func() (channel, error) {
		return conn.Channel()
	}
	return publisher, nil
}

func newPublisher(ch channel, exchange string, logger zerolog.Logger) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{channel: ch, exchange: exchange, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, event ports.LifecycleEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode lifecycle event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.At,
		Type:         event.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publishLocked(ctx, event.Type, msg)
	if err == nil || p.reopen == nil {
		return err
	}

	// One retry on a fresh channel; a closed channel is the usual cause.
	p.logger.Warn().Err(err).Str("routing_key", event.Type).Msg("publish failed, reopening channel")
	ch, reopenErr := p.reopen()
	if reopenErr != nil {
		return errors.Join(err, fmt.Errorf("reopen amqp channel: %w", reopenErr))
	}
	p.channel = ch
	p.declared = false

	return p.publishLocked(ctx, event.Type, msg)
}

func (p *Publisher) publishLocked(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	if !p.declared {
		if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
		}
		p.declared = true
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// Noop drops events. It stands in when no broker is configured or the broker
// was unreachable at startup.
type Noop struct {
	Logger zerolog.Logger
}

var _ ports.EventPublisher = Noop{}

func (n Noop) Publish(_ context.Context, event ports.LifecycleEvent) error {
	n.Logger.Debug().Str("type", event.Type).Str("account_id", string(event.AccountID)).Msg("event publish skipped")
	return nil
}

func (Noop) Close() error {
	return nil
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parse amqp url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", ErrInvalidURL
	}
	return clean, nil
}
