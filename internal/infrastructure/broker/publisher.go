package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"main/internal/config"
	market "main/internal/domain/entity/market"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher writes agent events to the events fanout exchange in size and
// time bounded batches.
type Publisher struct {
	cfg    config.RabbitMQConfig
	logger *logrus.Entry

	conn    *amqp.Connection
	channel *amqp.Channel

	mu     sync.Mutex
	events []market.Event
	timer  *time.Timer
	ctx    context.Context
}

// NewPublisher connects and declares the events exchange.
func NewPublisher(cfg config.RabbitMQConfig, logger *logrus.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.EventsExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.EventsExchange, err)
	}
	return &Publisher{
		cfg:     cfg,
		logger:  logger.WithField("component", "event_publisher"),
		conn:    conn,
		channel: ch,
	}, nil
}

// Run sets the base context for asynchronous flushes.
func (p *Publisher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
}

// Publish enqueues an event; a full batch flushes immediately, otherwise a
// timer flushes whatever accumulated.
func (p *Publisher) Publish(event market.Event) error {
	p.mu.Lock()
	ctx := p.ctx
	if ctx == nil {
		p.mu.Unlock()
		return errors.New("event publisher is not running")
	}
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.events = append(p.events, event)
	var batch []market.Event
	limit := p.cfg.BatchSize
	if limit <= 0 {
		limit = 1
	}
	if len(p.events) >= limit {
		batch = p.takeBatchLocked()
	} else if p.timer == nil && p.cfg.BatchTimeout > 0 {
		p.startTimerLocked()
	}
	p.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return p.flush(ctx, batch)
}

// Stop flushes the remaining events and closes the connection.
func (p *Publisher) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	batch := p.takeBatch()
	var errs []error
	if len(batch) > 0 {
		if err := p.flush(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
		p.channel = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

func (p *Publisher) startTimerLocked() {
	p.timer = time.AfterFunc(p.cfg.BatchTimeout, func() {
		batch := p.takeBatch()
		if len(batch) == 0 {
			return
		}
		p.mu.Lock()
		ctx := p.ctx
		p.mu.Unlock()
		if err := p.flush(ctx, batch); err != nil {
			p.logger.WithError(err).Warn("event batch flush failed")
		}
	})
}

func (p *Publisher) takeBatch() []market.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.takeBatchLocked()
}

func (p *Publisher) takeBatchLocked() []market.Event {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if len(p.events) == 0 {
		return nil
	}
	batch := make([]market.Event, len(p.events))
	copy(batch, p.events)
	p.events = p.events[:0]
	return batch
}

func (p *Publisher) flush(ctx context.Context, batch []market.Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	for i := range batch {
		body, err := json.Marshal(batch[i])
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		err = p.channel.PublishWithContext(ctx, p.cfg.EventsExchange, "", false, false, amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   batch[i].At,
		})
		if err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
	}
	p.logger.WithFields(logrus.Fields{
		"size":    len(batch),
		"took_ms": time.Since(start).Milliseconds(),
	}).Debug("flushed event batch")
	return nil
}
