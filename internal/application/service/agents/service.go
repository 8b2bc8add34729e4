package agents

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	apptrades "main/internal/application/service/trades"
	agent "main/internal/domain/entity/agent"
	catalog "main/internal/domain/entity/catalog"
	market "main/internal/domain/entity/market"
	interfaces "main/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

var (
	ErrCycleInProgress = errors.New("decision cycle already in progress")
	ErrAlreadyRunning  = errors.New("agent is already running")
	ErrNotRunning      = errors.New("agent is not running")
	ErrMissingProduct  = errors.New("product id is required")
)

// Defaults is the configuration applied to newly created agents.
type Defaults struct {
	DecisionInterval      time.Duration
	MaxConcurrentActions  int
	LowStockThreshold     int64
	HighStockThreshold    int64
	MinProfitMargin       float64
	MaxTransportCostRatio float64
	LookAheadDays         int
	ConfidenceThreshold   float64
}

// Deps wires the runtime to its repositories and capabilities.
type Deps struct {
	Agents      interfaces.AgentRepository
	Inventory   interfaces.InventoryReader
	Trades      *apptrades.Service
	Brain       interfaces.Brain
	Marketplace interfaces.Marketplace
	Events      interfaces.EventPublisher
	Logger      *logrus.Logger

	Defaults           Defaults
	BrainTimeout       time.Duration
	MarketplaceTimeout time.Duration

	// Rand and Now are injectable for deterministic tests.
	Rand func() float64
	Now  func() time.Time
}

// Service hosts one runner per product agent. Each started runner drives
// its own timer loop; a cycle is never re-armed while one is running.
type Service struct {
	deps Deps

	mu      sync.Mutex
	runners map[string]*runner
}

type runner struct {
	mu       sync.Mutex
	agent    *agent.Agent
	inFlight bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewService(deps Deps) *Service {
	if deps.Rand == nil {
		deps.Rand = rand.Float64
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.BrainTimeout <= 0 {
		deps.BrainTimeout = 5 * time.Second
	}
	if deps.MarketplaceTimeout <= 0 {
		deps.MarketplaceTimeout = 3 * time.Second
	}
	return &Service{
		deps:    deps,
		runners: make(map[string]*runner),
	}
}

// CreateForProduct registers a new agent for a catalog product with the
// configured defaults and persists it in initializing state.
func (s *Service) CreateForProduct(ctx context.Context, p catalog.Product) (*agent.Agent, error) {
	if p.ID == "" {
		return nil, ErrMissingProduct
	}
	now := s.deps.Now()
	d := s.deps.Defaults
	a := &agent.Agent{
		ProductID:   p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Brand:       p.Brand,
		Seasonality: p.Seasonality,
		Pricing: agent.Pricing{
			BaseCost:        p.BaseCost,
			StandardRetail:  p.StandardRetail,
			TargetMarginPct: p.TargetMarginPct,
		},
		Status: agent.StatusInitializing,
		Config: agent.Config{
			DecisionInterval:     d.DecisionInterval,
			MaxConcurrentActions: d.MaxConcurrentActions,
			Thresholds: agent.Thresholds{
				LowStock:              d.LowStockThreshold,
				HighStock:             d.HighStockThreshold,
				MinProfitMargin:       d.MinProfitMargin,
				MaxTransportCostRatio: d.MaxTransportCostRatio,
			},
			Forecasting: agent.Forecasting{
				LookAheadDays:       d.LookAheadDays,
				ConfidenceThreshold: d.ConfidenceThreshold,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Agents.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("persist agent %s: %w", p.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.runners[p.ID]; ok {
		return existing.snapshot(), nil
	}
	s.runners[p.ID] = &runner{agent: a}
	return a.Clone(), nil
}

// Restore loads persisted agents and restarts the ones that were running.
func (s *Service) Restore(ctx context.Context) error {
	stored, err := s.deps.Agents.List(ctx)
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}
	var restart []string
	s.mu.Lock()
	for i := range stored {
		a := stored[i]
		if _, ok := s.runners[a.ProductID]; ok {
			continue
		}
		s.runners[a.ProductID] = &runner{agent: &a}
		if a.IsActive {
			restart = append(restart, a.ProductID)
		}
	}
	s.mu.Unlock()

	for _, productID := range restart {
		if err := s.Start(ctx, productID); err != nil {
			s.deps.Logger.WithError(err).Warnf("restart agent %s", productID)
		}
	}
	s.deps.Logger.Infof("restored %d agents (%d restarted)", len(stored), len(restart))
	return nil
}

// Start activates the agent and launches its decision loop. A persistence
// failure flips the agent into error state and is returned to the caller.
func (s *Service) Start(ctx context.Context, productID string) error {
	r, err := s.runner(ctx, productID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	now := s.deps.Now()
	r.agent.Status = agent.StatusActive
	r.agent.IsActive = true
	r.agent.UpdatedAt = now
	snapshot := r.agent.Clone()
	r.mu.Unlock()

	if err := s.deps.Agents.Save(ctx, snapshot); err != nil {
		r.mu.Lock()
		r.agent.Status = agent.StatusError
		r.agent.IsActive = false
		errSnapshot := r.agent.Clone()
		r.mu.Unlock()
		if saveErr := s.deps.Agents.Save(ctx, errSnapshot); saveErr != nil {
			s.deps.Logger.WithError(saveErr).Warnf("persist error state for agent %s", productID)
		}
		return fmt.Errorf("start agent %s: %w", productID, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	interval := r.agent.Config.DecisionInterval
	r.mu.Unlock()

	go s.loop(loopCtx, r, interval, done)

	s.publish(market.Event{Kind: market.EventAgentStarted, ProductID: productID, At: now})
	s.deps.Logger.Infof("agent %s started (interval=%s)", productID, interval)
	return nil
}

// Stop halts scheduling, marks in-flight actions failed, and persists the
// shutdown state. A cycle already past its status check finishes its
// dispatch; the next tick observes the shutdown and no-ops.
func (s *Service) Stop(ctx context.Context, productID string) error {
	r, err := s.runner(ctx, productID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.cancel == nil {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.cancel()
	r.cancel = nil
	r.done = nil
	now := s.deps.Now()
	for i := range r.agent.ActiveActions {
		if r.agent.ActiveActions[i].Status == agent.ActionExecuting {
			r.agent.ActiveActions[i].Status = agent.ActionFailed
			r.agent.ActiveActions[i].Error = "agent stopped"
		}
	}
	r.agent.Status = agent.StatusShutdown
	r.agent.IsActive = false
	r.agent.UpdatedAt = now
	snapshot := r.agent.Clone()
	r.mu.Unlock()

	if err := s.deps.Agents.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("stop agent %s: %w", productID, err)
	}
	s.publish(market.Event{Kind: market.EventAgentStopped, ProductID: productID, At: now})
	s.deps.Logger.Infof("agent %s stopped", productID)
	return nil
}

// Pause keeps the loop scheduled but makes cycles no-op until Resume.
func (s *Service) Pause(ctx context.Context, productID string) error {
	return s.setStatus(ctx, productID, agent.StatusPaused)
}

// Resume reactivates a paused agent.
func (s *Service) Resume(ctx context.Context, productID string) error {
	return s.setStatus(ctx, productID, agent.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, productID string, status agent.Status) error {
	r, err := s.runner(ctx, productID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.agent.Status = status
	r.agent.UpdatedAt = s.deps.Now()
	snapshot := r.agent.Clone()
	r.mu.Unlock()
	return s.deps.Agents.Save(ctx, snapshot)
}

// Get returns a copy of the agent's current state.
func (s *Service) Get(ctx context.Context, productID string) (*agent.Agent, error) {
	r, err := s.runner(ctx, productID)
	if err != nil {
		return nil, err
	}
	return r.snapshot(), nil
}

// List returns copies of all known agents.
func (s *Service) List(ctx context.Context) ([]agent.Agent, error) {
	s.mu.Lock()
	runners := make([]*runner, 0, len(s.runners))
	for _, r := range s.runners {
		runners = append(runners, r)
	}
	s.mu.Unlock()

	if len(runners) == 0 {
		return s.deps.Agents.List(ctx)
	}
	out := make([]agent.Agent, 0, len(runners))
	for _, r := range runners {
		out = append(out, *r.snapshot())
	}
	return out, nil
}

// TriggerCycle runs one decision cycle immediately. Returns
// ErrCycleInProgress when the scheduled loop is mid-cycle.
func (s *Service) TriggerCycle(ctx context.Context, productID string) (*agent.Decision, error) {
	r, err := s.runner(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.runCycle(ctx, r)
}

// Shutdown stops every running agent.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.runners))
	for id, r := range s.runners {
		r.mu.Lock()
		running := r.cancel != nil
		r.mu.Unlock()
		if running {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.Stop(ctx, id); err != nil {
			s.deps.Logger.WithError(err).Warnf("shutdown agent %s", id)
		}
	}
}

func (s *Service) loop(ctx context.Context, r *runner, interval time.Duration, done chan struct{}) {
	defer close(done)
	if interval <= 0 {
		interval = time.Minute
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := s.runCycle(ctx, r); err != nil && !errors.Is(err, ErrCycleInProgress) {
				s.deps.Logger.WithError(err).Warnf("decision cycle for agent %s", r.productID())
			}
			timer.Reset(interval)
		}
	}
}

func (s *Service) runner(ctx context.Context, productID string) (*runner, error) {
	if productID == "" {
		return nil, ErrMissingProduct
	}
	s.mu.Lock()
	if r, ok := s.runners[productID]; ok {
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	stored, err := s.deps.Agents.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runners[productID]; ok {
		return r, nil
	}
	r := &runner{agent: stored}
	s.runners[productID] = r
	return r, nil
}

func (s *Service) publish(event market.Event) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.Publish(event); err != nil {
		s.deps.Logger.WithError(err).Warnf("publish %s event", event.Kind)
	}
}

func (r *runner) snapshot() *agent.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agent.Clone()
}

func (r *runner) productID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agent.ProductID
}
