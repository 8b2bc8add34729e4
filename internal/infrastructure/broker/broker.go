package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	apptrades "main/internal/application/service/trades"
	"main/internal/config"
	domain "main/internal/domain/entity/trade"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer subscribes to the outcomes fanout exchange and applies execution
// reports to the trade lifecycle, which in turn feeds agent learning.
type Consumer struct {
	cfg     config.RabbitMQConfig
	service *apptrades.Service
	logger  *logrus.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
	wg      sync.WaitGroup
}

// NewConsumer prepares a consumer for the given configuration.
func NewConsumer(cfg config.RabbitMQConfig, service *apptrades.Service, logger *logrus.Logger) (*Consumer, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	return &Consumer{
		cfg:     cfg,
		service: service,
		logger:  logger,
	}, nil
}

// Start establishes the AMQP connection and begins consuming outcomes.
func (c *Consumer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	c.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		c.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(c.cfg.OutcomesExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		c.Close()
		return fmt.Errorf("declare exchange %s: %w", c.cfg.OutcomesExchange, err)
	}
	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		c.Close()
		return fmt.Errorf("declare outcome queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, "", c.cfg.OutcomesExchange, false, nil); err != nil {
		ch.Close()
		c.Close()
		return fmt.Errorf("bind queue %s to %s: %w", queue.Name, c.cfg.OutcomesExchange, err)
	}
	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		c.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(queue.Name, "", false, true, false, false, nil)
	if err != nil {
		ch.Close()
		c.Close()
		return fmt.Errorf("start consume: %w", err)
	}
	c.channel = ch
	c.wg.Add(1)
	go c.consumeLoop(ctx, deliveries)

	c.logger.Infof("outcome consumer started: exchange=%s", c.cfg.OutcomesExchange)
	return nil
}

// Close stops consumption and releases resources.
func (c *Consumer) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.wg.Wait()
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.WithField("component", "outcome_consumer")
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			if err := c.handleDelivery(ctx, &delivery); err != nil {
				log.WithError(err).Warn("failed to process execution report")
				_ = delivery.Nack(false, shouldRequeue(err))
				continue
			}
			if err := delivery.Ack(false); err != nil {
				log.WithError(err).Warn("failed to ack delivery")
			}
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery *amqp.Delivery) error {
	var payload OutcomeMessage
	if err := json.Unmarshal(delivery.Body, &payload); err != nil {
		return fmt.Errorf("decode execution report: %w", err)
	}
	if payload.TradeID == uuid.Nil {
		return errors.New("execution report has no trade id")
	}
	switch payload.Status {
	case OutcomeExecuting:
		return c.service.MarkExecuting(ctx, payload.TradeID, payload.TrackingID)
	case OutcomeCompleted:
		return c.service.Complete(ctx, payload.TradeID, domain.Execution{
			ActualProfit:        payload.ActualProfit,
			ActualTransportCost: payload.ActualTransportCost,
			ActualQuantity:      payload.ActualQuantity,
			TrackingID:          payload.TrackingID,
			Notes:               payload.Notes,
		})
	case OutcomeFailed:
		return c.service.Fail(ctx, payload.TradeID, payload.Notes)
	default:
		return fmt.Errorf("unsupported outcome status: %s", payload.Status)
	}
}

// shouldRequeue keeps permanently broken reports out of the queue: reports
// for unknown trades will not heal on retry.
func shouldRequeue(err error) bool {
	return !errors.Is(err, domain.ErrNotFound)
}
