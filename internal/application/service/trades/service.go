package trades

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	market "main/internal/domain/entity/market"
	trade "main/internal/domain/entity/trade"
	interfaces "main/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrNilTrade     = errors.New("trade is nil")
	ErrExpired      = errors.New("trade delivery deadline has passed")
	ErrMissingActor = errors.New("acting user is required")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// Service owns the trade lifecycle: proposal validation, status
// transitions, operator approval, and settlement of execution reports.
type Service struct {
	repo   interfaces.TradeRepository
	events interfaces.EventPublisher
	logger *logrus.Logger
	now    func() time.Time

	mu        sync.RWMutex
	onSettled func(ctx context.Context, t trade.Trade)
}

func NewService(repo interfaces.TradeRepository, events interfaces.EventPublisher, logger *logrus.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// SetNow overrides the service clock. Tests pin it for deterministic
// deadline checks.
func (s *Service) SetNow(fn func() time.Time) {
	s.now = fn
}

// SetSettlementHook registers a callback invoked after a trade settles
// (completes or fails). Used to feed outcomes back into the owning agent.
func (s *Service) SetSettlementHook(fn func(ctx context.Context, t trade.Trade)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSettled = fn
}

// Propose validates and persists a new transfer proposal.
func (s *Service) Propose(ctx context.Context, t *trade.Trade) error {
	if t == nil {
		return ErrNilTrade
	}
	now := s.now()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Status = trade.StatusProposed
	if t.ProposedAt.IsZero() {
		t.ProposedAt = now
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := t.Validate(now); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return fmt.Errorf("persist trade: %w", err)
	}
	s.publish(market.Event{
		Kind:      market.EventTradeProposed,
		ProductID: t.ProductID,
		TradeID:   t.ID.String(),
		Message:   t.Reasoning,
		Payload: map[string]any{
			"from_store":       t.FromStoreID,
			"to_store":         t.ToStoreID,
			"quantity":         t.Quantity,
			"estimated_profit": t.EstimatedProfit,
		},
		At: now,
	})
	return nil
}

// Approve moves a proposed trade to approved, recording the operator.
// Expired proposals are rejected outright.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, userID string) (*trade.Trade, error) {
	if userID == "" {
		return nil, ErrMissingActor
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsExpired(s.now()) {
		return nil, fmt.Errorf("approve trade %s: %w", id, ErrExpired)
	}
	from := t.Status
	if err := t.Transition(trade.StatusApproved, s.now()); err != nil {
		return nil, err
	}
	t.ApprovedBy = userID
	if err := s.repo.UpdateTransition(ctx, t, from); err != nil {
		return nil, err
	}
	return t, nil
}

// Reject moves a proposed trade to rejected with the operator's reason.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, userID, reason string) (*trade.Trade, error) {
	if userID == "" {
		return nil, ErrMissingActor
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := t.Status
	if err := t.Transition(trade.StatusRejected, s.now()); err != nil {
		return nil, err
	}
	t.RejectedBy = userID
	t.RejectionReason = reason
	if err := s.repo.UpdateTransition(ctx, t, from); err != nil {
		return nil, err
	}
	return t, nil
}

// MarkExecuting records that the physical transfer started.
func (s *Service) MarkExecuting(ctx context.Context, id uuid.UUID, trackingID string) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	from := t.Status
	if err := t.Transition(trade.StatusExecuting, s.now()); err != nil {
		return err
	}
	if trackingID != "" {
		if t.Execution == nil {
			t.Execution = &trade.Execution{}
		}
		t.Execution.TrackingID = trackingID
	}
	return s.repo.UpdateTransition(ctx, t, from)
}

// Complete settles a trade with its execution actuals and notifies the
// settlement hook.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, exec trade.Execution) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	from := t.Status
	if err := t.Transition(trade.StatusCompleted, s.now()); err != nil {
		return err
	}
	t.Execution = &exec
	if err := s.repo.UpdateTransition(ctx, t, from); err != nil {
		return err
	}
	s.settle(ctx, *t)
	return nil
}

// Fail marks a trade failed with optional notes and notifies the
// settlement hook.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, notes string) error {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	from := t.Status
	if err := t.Transition(trade.StatusFailed, s.now()); err != nil {
		return err
	}
	if notes != "" {
		if t.Execution == nil {
			t.Execution = &trade.Execution{}
		}
		t.Execution.Notes = notes
	}
	if err := s.repo.UpdateTransition(ctx, t, from); err != nil {
		return err
	}
	s.settle(ctx, *t)
	return nil
}

// Queries

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*trade.Trade, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByStatus(ctx context.Context, status trade.Status, limit int) ([]trade.Trade, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.repo.ListByStatus(ctx, status, limit)
}

func (s *Service) ListByStore(ctx context.Context, storeID string, limit int) ([]trade.Trade, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if storeID == "" {
		return nil, trade.ErrMissingStore
	}
	return s.repo.ListByStore(ctx, storeID, limit)
}

// ListPending returns proposed, unexpired trades ordered by urgency then age.
func (s *Service) ListPending(ctx context.Context, limit int) ([]trade.Trade, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.repo.ListPending(ctx, limit)
}

func (s *Service) Stats(ctx context.Context) ([]trade.StatusStats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) Close() {
	s.repo.Close()
}

func (s *Service) settle(ctx context.Context, t trade.Trade) {
	s.mu.RLock()
	hook := s.onSettled
	s.mu.RUnlock()
	if hook != nil {
		hook(ctx, t)
	}
}

func (s *Service) publish(event market.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(event); err != nil && s.logger != nil {
		s.logger.WithError(err).Warnf("publish %s event", event.Kind)
	}
}
