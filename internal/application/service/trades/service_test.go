package trades

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	market "main/internal/domain/entity/market"
	trade "main/internal/domain/entity/trade"

	"github.com/google/uuid"
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

func (m *memoryTradeRepo) ListByStatus(_ context.Context, status trade.Status, limit int) ([]trade.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []trade.Trade
	for _, t := range m.trades {
		if t.Status == status && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTradeRepo) ListByStore(_ context.Context, storeID string, limit int) ([]trade.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []trade.Trade
	for _, t := range m.trades {
		if (t.FromStoreID == storeID || t.ToStoreID == storeID) && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTradeRepo) ListPending(_ context.Context, limit int) ([]trade.Trade, error) {
	return m.ListByStatus(context.Background(), trade.StatusProposed, limit)
}

func (m *memoryTradeRepo) Stats(_ context.Context) ([]trade.StatusStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byStatus := make(map[trade.Status]*trade.StatusStats)
	for _, t := range m.trades {
		s, ok := byStatus[t.Status]
		if !ok {
			s = &trade.StatusStats{Status: t.Status}
			byStatus[t.Status] = s
		}
		s.Count++
		s.TotalProfit += t.EstimatedProfit
	}
	var out []trade.StatusStats
	for _, s := range byStatus {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memoryTradeRepo) Close() {}

type capturingPublisher struct {
	mu     sync.Mutex
	events []market.Event
}

func (p *capturingPublisher) Publish(event market.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) kinds() []market.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]market.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestService() (*Service, *memoryTradeRepo, *capturingPublisher) {
	repo := newMemoryTradeRepo()
	pub := &capturingPublisher{}
	return NewService(repo, pub, testLogger()), repo, pub
}

func proposal() *trade.Trade {
	return &trade.Trade{
		FromStoreID:     "store_a",
		ToStoreID:       "store_b",
		ProductID:       "prod_1",
		Quantity:        100,
		EstimatedProfit: 300,
		TransportCost:   25,
		ProposedBy:      "agent_prod_1",
		Constraints: trade.Constraints{
			DeliveryDeadline: time.Now().Add(7 * 24 * time.Hour),
		},
	}
}

func TestProposeAssignsDefaultsAndPublishes(t *testing.T) {
	svc, repo, pub := newTestService()
	p := proposal()

	if err := svc.Propose(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if p.ID == uuid.Nil {
		t.Fatal("proposal must get an id")
	}
	if p.Status != trade.StatusProposed {
		t.Fatalf("status = %s, want proposed", p.Status)
	}
	if _, err := repo.Get(context.Background(), p.ID); err != nil {
		t.Fatalf("proposal not persisted: %v", err)
	}
	kinds := pub.kinds()
	if len(kinds) != 1 || kinds[0] != market.EventTradeProposed {
		t.Fatalf("events = %v, want one trade_proposed", kinds)
	}
}

func TestProposeRejectsInvalid(t *testing.T) {
	svc, _, _ := newTestService()
	p := proposal()
	p.ToStoreID = p.FromStoreID
	if err := svc.Propose(context.Background(), p); !errors.Is(err, trade.ErrSameStore) {
		t.Fatalf("Propose() = %v, want ErrSameStore", err)
	}
	if err := svc.Propose(context.Background(), nil); !errors.Is(err, ErrNilTrade) {
		t.Fatalf("Propose(nil) = %v, want ErrNilTrade", err)
	}
}

func TestApprove(t *testing.T) {
	svc, _, _ := newTestService()
	p := proposal()
	if err := svc.Propose(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	approved, err := svc.Approve(context.Background(), p.ID, "ops_user")
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != trade.StatusApproved {
		t.Fatalf("status = %s, want approved", approved.Status)
	}
	if approved.ApprovedBy != "ops_user" {
		t.Fatalf("ApprovedBy = %q", approved.ApprovedBy)
	}
	if approved.ApprovedAt == nil {
		t.Fatal("ApprovedAt must be stamped")
	}

	if _, err := svc.Approve(context.Background(), p.ID, "ops_user"); !errors.Is(err, trade.ErrIllegalTransition) {
		t.Fatalf("double approve = %v, want ErrIllegalTransition", err)
	}
}

func TestApproveRequiresActor(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Approve(context.Background(), uuid.New(), ""); !errors.Is(err, ErrMissingActor) {
		t.Fatalf("Approve without actor = %v, want ErrMissingActor", err)
	}
}

func TestProposeRejectsCreationInvariants(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*trade.Trade)
		wantErr error
	}{
		{"past deadline", func(p *trade.Trade) {
			p.Constraints.DeliveryDeadline = time.Now().Add(-time.Hour)
		}, trade.ErrPastDeadline},
		{"missing deadline", func(p *trade.Trade) {
			p.Constraints.DeliveryDeadline = time.Time{}
		}, trade.ErrPastDeadline},
		{"negative profit", func(p *trade.Trade) { p.EstimatedProfit = -1 }, trade.ErrNegativeProfit},
		{"negative transport cost", func(p *trade.Trade) { p.TransportCost = -5 }, trade.ErrNegativeTransport},
		{"min above max quantity", func(p *trade.Trade) {
			p.Constraints.MinQuantity = 300
			p.Constraints.MaxQuantity = 200
		}, trade.ErrConstraintBounds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, pub := newTestService()
			p := proposal()
			tc.mutate(p)
			if err := svc.Propose(context.Background(), p); !errors.Is(err, tc.wantErr) {
				t.Fatalf("Propose() = %v, want %v", err, tc.wantErr)
			}
			if len(repo.trades) != 0 {
				t.Fatal("invalid proposal must not be persisted")
			}
			if len(pub.kinds()) != 0 {
				t.Fatal("invalid proposal must not be published")
			}
		})
	}
}

func TestApproveExpiredProposal(t *testing.T) {
	svc, repo, _ := newTestService()
	// a proposal whose deadline lapsed while it sat in the queue
	p := proposal()
	p.ID = uuid.New()
	p.Status = trade.StatusProposed
	p.ProposedAt = time.Now().Add(-8 * 24 * time.Hour)
	p.Constraints.DeliveryDeadline = time.Now().Add(-time.Hour)
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(context.Background(), p.ID, "ops_user"); !errors.Is(err, ErrExpired) {
		t.Fatalf("Approve expired = %v, want ErrExpired", err)
	}
	stored, err := repo.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != trade.StatusProposed {
		t.Fatalf("expired proposal status = %s, want proposed", stored.Status)
	}
}

func TestReject(t *testing.T) {
	svc, _, _ := newTestService()
	p := proposal()
	if err := svc.Propose(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	rejected, err := svc.Reject(context.Background(), p.ID, "ops_user", "too risky")
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != trade.StatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}
	if rejected.RejectedBy != "ops_user" || rejected.RejectionReason != "too risky" {
		t.Fatalf("rejection audit = %q / %q", rejected.RejectedBy, rejected.RejectionReason)
	}
}

func TestCompleteFiresSettlementHook(t *testing.T) {
	svc, _, _ := newTestService()
	p := proposal()
	if err := svc.Propose(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(context.Background(), p.ID, "ops_user"); err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkExecuting(context.Background(), p.ID, "track-1"); err != nil {
		t.Fatal(err)
	}

	var settled []trade.Trade
	svc.SetSettlementHook(func(_ context.Context, t trade.Trade) {
		settled = append(settled, t)
	})

	exec := trade.Execution{ActualProfit: 280, ActualQuantity: 100, TrackingID: "track-1"}
	if err := svc.Complete(context.Background(), p.ID, exec); err != nil {
		t.Fatal(err)
	}

	if len(settled) != 1 {
		t.Fatalf("settlement hook fired %d times, want 1", len(settled))
	}
	if settled[0].Status != trade.StatusCompleted {
		t.Fatalf("settled status = %s, want completed", settled[0].Status)
	}
	if settled[0].Execution == nil || settled[0].Execution.ActualProfit != 280 {
		t.Fatal("settled trade must carry execution actuals")
	}
}

func TestFailFiresSettlementHook(t *testing.T) {
	svc, _, _ := newTestService()
	p := proposal()
	if err := svc.Propose(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(context.Background(), p.ID, "ops_user"); err != nil {
		t.Fatal(err)
	}

	var settled []trade.Trade
	svc.SetSettlementHook(func(_ context.Context, t trade.Trade) {
		settled = append(settled, t)
	})

	if err := svc.Fail(context.Background(), p.ID, "truck broke down"); err != nil {
		t.Fatal(err)
	}
	if len(settled) != 1 || settled[0].Status != trade.StatusFailed {
		t.Fatalf("settled = %+v, want one failed trade", settled)
	}
	if settled[0].Execution == nil || settled[0].Execution.Notes != "truck broke down" {
		t.Fatal("failure notes must be recorded")
	}
}

func TestListValidation(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.ListByStatus(context.Background(), trade.StatusProposed, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("ListByStatus limit 0 = %v, want ErrInvalidLimit", err)
	}
	if _, err := svc.ListByStore(context.Background(), "", 10); !errors.Is(err, trade.ErrMissingStore) {
		t.Fatalf("ListByStore empty store = %v, want ErrMissingStore", err)
	}
	if _, err := svc.ListPending(context.Background(), -1); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("ListPending limit -1 = %v, want ErrInvalidLimit", err)
	}
}
