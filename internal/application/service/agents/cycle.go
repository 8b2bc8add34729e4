package agents

import (
	"context"
	"fmt"

	agent "main/internal/domain/entity/agent"
	market "main/internal/domain/entity/market"

	"github.com/google/uuid"
)

// strategyDecisionTypes maps a strategy label to the decision type
// surfaced on the agent record.
var strategyDecisionTypes = map[string]string{
	"aggressive_arbitrage":     "aggressive_transfer",
	"conservative_rebalancing": "inventory_rebalancing",
	"hold_position":            "maintain_position",
	"emergency_liquidation":    "emergency_action",
}

// runCycle executes one decision cycle: context build, strategy, synthesis,
// persistence, dispatch, marketplace participation. A cycle on a non-active
// agent is a no-op that yields no decision.
func (s *Service) runCycle(ctx context.Context, r *runner) (*agent.Decision, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil, ErrCycleInProgress
	}
	if r.agent.Status != agent.StatusActive {
		r.mu.Unlock()
		return nil, nil
	}
	r.inFlight = true
	snapshot := r.agent.Clone()
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	mc := s.buildContext(ctx, snapshot)
	strategic := s.decide(ctx, snapshot, mc)
	if strategic == nil || len(strategic.Actions) == 0 {
		s.deps.Logger.Debugf("agent %s found no actionable opportunities", snapshot.ProductID)
		return nil, nil
	}
	decision := s.synthesize(snapshot.ProductID, strategic)

	r.mu.Lock()
	r.agent.RecordDecision(decision)
	r.agent.CurrentStrategy = strategic.Strategy
	r.agent.Metrics.AvgConfidence = averageConfidence(r.agent.RecentDecisions)
	r.agent.UpdatedAt = decision.DecidedAt
	persisted := r.agent.Clone()
	r.mu.Unlock()

	if err := s.deps.Agents.Save(ctx, persisted); err != nil {
		r.mu.Lock()
		r.agent.Status = agent.StatusError
		errSnapshot := r.agent.Clone()
		r.mu.Unlock()
		if saveErr := s.deps.Agents.Save(ctx, errSnapshot); saveErr != nil {
			s.deps.Logger.WithError(saveErr).Warnf("persist error state for agent %s", persisted.ProductID)
		}
		return nil, fmt.Errorf("persist decision for agent %s: %w", persisted.ProductID, err)
	}

	s.dispatch(ctx, r, decision)
	s.participate(ctx, r, mc)

	r.mu.Lock()
	final := r.agent.Clone()
	r.mu.Unlock()
	if err := s.deps.Agents.Save(ctx, final); err != nil {
		s.deps.Logger.WithError(err).Warnf("persist post-dispatch state for agent %s", final.ProductID)
	}

	s.deps.Logger.Infof("agent %s decided %s (confidence=%.2f, actions=%d)",
		final.ProductID, decision.Type, decision.Confidence, len(decision.Actions))
	return decision, nil
}

// decide asks the strategy capability first and falls back to local
// opportunity detection when it is unavailable or declines.
func (s *Service) decide(ctx context.Context, a *agent.Agent, mc market.Context) *market.StrategicDecision {
	if s.deps.Brain != nil {
		brainCtx, cancel := context.WithTimeout(ctx, s.deps.BrainTimeout)
		sd, err := s.deps.Brain.MakeStrategicDecision(brainCtx, mc)
		cancel()
		if err == nil && sd != nil {
			return sd
		}
		if err != nil {
			s.deps.Logger.WithError(err).Warnf("strategy capability unavailable for agent %s, using fallback", a.ProductID)
		}
	}
	return s.fallbackDecision(a, mc)
}

// synthesize turns a strategic decision into a dispatched decision record:
// actions get identities and pending status, the strategy label maps to a
// decision type.
func (s *Service) synthesize(productID string, sd *market.StrategicDecision) *agent.Decision {
	now := s.deps.Now()
	actions := make([]agent.Action, len(sd.Actions))
	for i, a := range sd.Actions {
		a.ID = uuid.New()
		a.Status = agent.ActionPending
		a.CreatedAt = now
		actions[i] = a
	}
	decisionType, ok := strategyDecisionTypes[sd.Strategy]
	if !ok {
		decisionType = "inventory_optimization"
	}
	return &agent.Decision{
		ID:          uuid.New(),
		ProductID:   productID,
		Type:        decisionType,
		Confidence:  sd.Confidence,
		Reasoning:   sd.Reasoning,
		Actions:     actions,
		Predictions: sd.Predictions,
		DecidedAt:   now,
	}
}

func averageConfidence(history []agent.DecisionSummary) float64 {
	if len(history) == 0 {
		return 0
	}
	var sum float64
	for _, d := range history {
		sum += d.Confidence
	}
	return sum / float64(len(history))
}
