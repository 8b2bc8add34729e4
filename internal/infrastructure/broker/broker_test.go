package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	apptrades "main/internal/application/service/trades"
	trade "main/internal/domain/entity/trade"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type memoryTradeRepo struct {
	mu     sync.Mutex
	trades map[uuid.UUID]trade.Trade
}

func newMemoryTradeRepo() *memoryTradeRepo {
	return &memoryTradeRepo{trades: make(map[uuid.UUID]trade.Trade)}
}

func (m *memoryTradeRepo) Create(_ context.Context, t *trade.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[t.ID] = *t
	return nil
}

func (m *memoryTradeRepo) Get(_ context.Context, id uuid.UUID) (*trade.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return nil, trade.ErrNotFound
	}
	copied := t
	return &copied, nil
}

func (m *memoryTradeRepo) UpdateTransition(_ context.Context, t *trade.Trade, from trade.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trades[t.ID]
	if !ok {
		return trade.ErrNotFound
	}
	if stored.Status != from {
		return errors.New("stale transition")
	}
	m.trades[t.ID] = *t
	return nil
}

func (m *memoryTradeRepo) ListByStatus(_ context.Context, _ trade.Status, _ int) ([]trade.Trade, error) {
	return nil, nil
}

func (m *memoryTradeRepo) ListByStore(_ context.Context, _ string, _ int) ([]trade.Trade, error) {
	return nil, nil
}

func (m *memoryTradeRepo) ListPending(_ context.Context, _ int) ([]trade.Trade, error) {
	return nil, nil
}

func (m *memoryTradeRepo) Stats(_ context.Context) ([]trade.StatusStats, error) {
	return nil, nil
}

func (m *memoryTradeRepo) Close() {}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func approvedTrade(t *testing.T, repo *memoryTradeRepo) uuid.UUID {
	t.Helper()
	tr := trade.Trade{
		ID:          uuid.New(),
		Status:      trade.StatusApproved,
		FromStoreID: "store_a",
		ToStoreID:   "store_b",
		ProductID:   "prod_1",
		Quantity:    100,
		ProposedAt:  time.Now().Add(-time.Hour),
	}
	if err := repo.Create(context.Background(), &tr); err != nil {
		t.Fatal(err)
	}
	return tr.ID
}

func delivery(t *testing.T, msg OutcomeMessage) *amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return &amqp.Delivery{Body: body}
}

func newTestConsumer(repo *memoryTradeRepo) *Consumer {
	return &Consumer{
		service: apptrades.NewService(repo, nil, quietLogger()),
		logger:  quietLogger(),
	}
}

func TestHandleDeliveryExecuting(t *testing.T) {
	repo := newMemoryTradeRepo()
	c := newTestConsumer(repo)
	id := approvedTrade(t, repo)

	err := c.handleDelivery(context.Background(), delivery(t, OutcomeMessage{
		TradeID:    id,
		Status:     OutcomeExecuting,
		TrackingID: "track-9",
	}))
	if err != nil {
		t.Fatal(err)
	}

	stored, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != trade.StatusExecuting {
		t.Fatalf("status = %s, want executing", stored.Status)
	}
	if stored.Execution == nil || stored.Execution.TrackingID != "track-9" {
		t.Fatal("tracking id must be recorded")
	}
}

func TestHandleDeliveryCompleted(t *testing.T) {
	repo := newMemoryTradeRepo()
	c := newTestConsumer(repo)
	id := approvedTrade(t, repo)

	if err := c.handleDelivery(context.Background(), delivery(t, OutcomeMessage{
		TradeID: id, Status: OutcomeExecuting,
	})); err != nil {
		t.Fatal(err)
	}
	if err := c.handleDelivery(context.Background(), delivery(t, OutcomeMessage{
		TradeID:        id,
		Status:         OutcomeCompleted,
		ActualProfit:   321.5,
		ActualQuantity: 95,
	})); err != nil {
		t.Fatal(err)
	}

	stored, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != trade.StatusCompleted {
		t.Fatalf("status = %s, want completed", stored.Status)
	}
	if stored.Execution == nil || stored.Execution.ActualProfit != 321.5 || stored.Execution.ActualQuantity != 95 {
		t.Fatalf("execution = %+v", stored.Execution)
	}
}

func TestHandleDeliveryFailed(t *testing.T) {
	repo := newMemoryTradeRepo()
	c := newTestConsumer(repo)
	id := approvedTrade(t, repo)

	if err := c.handleDelivery(context.Background(), delivery(t, OutcomeMessage{
		TradeID: id,
		Status:  OutcomeFailed,
		Notes:   "carrier cancelled",
	})); err != nil {
		t.Fatal(err)
	}

	stored, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != trade.StatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
	if stored.Execution == nil || stored.Execution.Notes != "carrier cancelled" {
		t.Fatal("failure notes must be recorded")
	}
}

func TestHandleDeliveryRejectsBadPayloads(t *testing.T) {
	repo := newMemoryTradeRepo()
	c := newTestConsumer(repo)

	if err := c.handleDelivery(context.Background(), &amqp.Delivery{Body: []byte("{")}); err == nil {
		t.Fatal("malformed json must error")
	}
	if err := c.handleDelivery(context.Background(), delivery(t, OutcomeMessage{Status: OutcomeCompleted})); err == nil {
		t.Fatal("missing trade id must error")
	}
	if err := c.handleDelivery(context.Background(), delivery(t, OutcomeMessage{
		TradeID: uuid.New(), Status: "teleported",
	})); err == nil {
		t.Fatal("unknown status must error")
	}
}

func TestShouldRequeue(t *testing.T) {
	if shouldRequeue(trade.ErrNotFound) {
		t.Fatal("unknown trades must not requeue")
	}
	if !shouldRequeue(errors.New("connection reset")) {
		t.Fatal("transient errors must requeue")
	}
}
