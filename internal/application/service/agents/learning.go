package agents

import (
	"context"

	agent "main/internal/domain/entity/agent"
	market "main/internal/domain/entity/market"
	trade "main/internal/domain/entity/trade"

	"github.com/google/uuid"
)

// defaultCompletionHours applies when an execution report carries no timing.
const defaultCompletionHours = 24.0

// TradeOutcome is the settled result of a transfer fed back into the agent.
type TradeOutcome struct {
	DecisionID          uuid.UUID
	TradeID             uuid.UUID
	ActualProfit        float64
	TransferCompleted   bool
	TimeToCompleteHours float64
	UnexpectedEvents    []string
	Insights            []string
}

// HandleTradeSettlement converts a settled trade into a learning outcome
// for its owning agent. Wired as the trade service settlement hook.
func (s *Service) HandleTradeSettlement(ctx context.Context, t trade.Trade) {
	outcome := TradeOutcome{
		TradeID:           t.ID,
		TransferCompleted: t.Status == trade.StatusCompleted,
	}
	if t.DecisionID != nil {
		outcome.DecisionID = *t.DecisionID
	}
	if t.Execution != nil {
		outcome.ActualProfit = t.Execution.ActualProfit
	}
	if t.CompletedAt != nil {
		outcome.TimeToCompleteHours = t.CompletedAt.Sub(t.ProposedAt).Hours()
	}
	if err := s.ApplyOutcome(ctx, t.ProductID, outcome); err != nil {
		s.deps.Logger.WithError(err).Warnf("apply outcome of trade %s to agent %s", t.ID, t.ProductID)
	}
}

// ApplyOutcome updates the agent's performance metrics from a settled
// transfer and forwards the outcome to the strategy capability. The success
// rate is a running average over the current decision window.
func (s *Service) ApplyOutcome(ctx context.Context, productID string, outcome TradeOutcome) error {
	r, err := s.runner(ctx, productID)
	if err != nil {
		return err
	}

	now := s.deps.Now()
	r.mu.Lock()
	if outcome.ActualProfit > 0 {
		r.agent.Metrics.TotalProfit += outcome.ActualProfit
		r.agent.Metrics.SuccessfulTransfers++
	}
	if window := len(r.agent.RecentDecisions); window > 0 {
		observed := 0.0
		if outcome.TransferCompleted {
			observed = 1.0
		}
		r.agent.Metrics.SuccessRate =
			(r.agent.Metrics.SuccessRate*float64(window-1) + observed) / float64(window)
	}
	if outcome.DecisionID != uuid.Nil {
		r.agent.SettleDecision(outcome.DecisionID, outcome.ActualProfit, now)
	}
	insight := ""
	if len(outcome.Insights) > 0 {
		insight = outcome.Insights[0]
	}
	r.agent.RecordLearning(agent.LearningNote{
		DecisionID: outcome.DecisionID,
		Profit:     outcome.ActualProfit,
		Completed:  outcome.TransferCompleted,
		Insight:    insight,
		RecordedAt: now,
	})
	r.agent.UpdatedAt = now
	snapshot := r.agent.Clone()
	r.mu.Unlock()

	if err := s.deps.Agents.Save(ctx, snapshot); err != nil {
		return err
	}

	s.forwardToBrain(ctx, productID, outcome)
	s.deps.Logger.Debugf("agent %s learned from outcome (profit=%.2f, completed=%t)",
		productID, outcome.ActualProfit, outcome.TransferCompleted)
	return nil
}

// forwardToBrain reports the outcome to the strategy capability, best effort.
func (s *Service) forwardToBrain(ctx context.Context, productID string, outcome TradeOutcome) {
	if s.deps.Brain == nil {
		return
	}
	hours := outcome.TimeToCompleteHours
	if hours <= 0 {
		hours = defaultCompletionHours
	}
	update := market.LearningUpdate{
		DecisionID:          outcome.DecisionID,
		ProductID:           productID,
		ActualProfit:        outcome.ActualProfit,
		TransferCompleted:   outcome.TransferCompleted,
		TimeToCompleteHours: hours,
		UnexpectedEvents:    outcome.UnexpectedEvents,
		NewInsights:         outcome.Insights,
	}
	brainCtx, cancel := context.WithTimeout(ctx, s.deps.BrainTimeout)
	defer cancel()
	if err := s.deps.Brain.LearnFromOutcome(brainCtx, update); err != nil {
		s.deps.Logger.WithError(err).Warnf("forward learning update for agent %s", productID)
	}
}
