package agents

import (
	"context"
	"fmt"
	"sort"
	"time"

	agent "main/internal/domain/entity/agent"
	market "main/internal/domain/entity/market"
	trade "main/internal/domain/entity/trade"

	"github.com/google/uuid"
)

const (
	transferTransportCost    = 25.0
	transferMaxTransportCost = 50.0
	transferUrgencyScore     = 7.0
	transferDeadline         = 7 * 24 * time.Hour
)

// dispatch executes a decision's actions in priority order, capped by the
// agent's concurrency limit. A failing action never blocks its siblings.
func (s *Service) dispatch(ctx context.Context, r *runner, d *agent.Decision) {
	actions := append([]agent.Action(nil), d.Actions...)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Priority > actions[j].Priority })

	r.mu.Lock()
	limit := r.agent.Config.MaxConcurrentActions
	r.mu.Unlock()
	if limit > 0 && len(actions) > limit {
		s.deps.Logger.Warnf("agent %s dropping %d actions over the concurrency limit", d.ProductID, len(actions)-limit)
		actions = actions[:limit]
	}

	for i := range actions {
		if err := s.executeAction(ctx, r, d, actions[i]); err != nil {
			s.deps.Logger.WithError(err).Warnf("agent %s action %s failed", d.ProductID, actions[i].ID)
		}
	}
}

func (s *Service) executeAction(ctx context.Context, r *runner, d *agent.Decision, action agent.Action) error {
	action.Status = agent.ActionExecuting
	r.mu.Lock()
	r.agent.ActiveActions = append(r.agent.ActiveActions, action)
	setDecisionActionStatus(d, action.ID, agent.ActionExecuting, "")
	r.mu.Unlock()

	var err error
	switch action.Type {
	case agent.ActionProposeTransfer:
		err = s.proposeTransfer(ctx, r, d, action)
	case agent.ActionAdjustPricing:
		err = s.adjustPricing(r, action)
	case agent.ActionSendAlert:
		err = s.sendAlert(r, action)
	default:
		err = fmt.Errorf("unknown action type: %s", action.Type)
	}

	if err != nil {
		s.markActionFailed(r, d, action.ID, err)
		return err
	}
	s.markActionCompleted(r, d, action.ID)
	return nil
}

// proposeTransfer turns a transfer action into a persisted trade proposal.
func (s *Service) proposeTransfer(ctx context.Context, r *runner, d *agent.Decision, action agent.Action) error {
	params := action.Transfer
	if params == nil {
		return fmt.Errorf("transfer action %s has no parameters", action.ID)
	}
	r.mu.Lock()
	productID := r.agent.ProductID
	minMargin := r.agent.Config.Thresholds.MinProfitMargin
	r.mu.Unlock()

	now := s.deps.Now()
	decisionID := d.ID
	t := &trade.Trade{
		ID:              uuid.New(),
		DecisionID:      &decisionID,
		FromStoreID:     params.SourceStoreID,
		ToStoreID:       params.TargetStoreID,
		ProductID:       productID,
		SKU:             fmt.Sprintf("%s-%s", productID, params.SourceStoreID),
		Quantity:        params.Quantity,
		TransportCost:   transferTransportCost,
		EstimatedProfit: params.EstimatedProfit,
		UrgencyScore:    transferUrgencyScore,
		ProposedBy:      agentID(productID),
		Reasoning:       fmt.Sprintf("agent optimizing inventory distribution with %.1f%% profit margin", params.ProfitMarginPct),
		Constraints: trade.Constraints{
			MinQuantity:      params.Quantity / 2,
			MaxQuantity:      params.Quantity,
			DeliveryDeadline: now.Add(transferDeadline),
			MinProfitMargin:  minMargin,
			MaxTransportCost: transferMaxTransportCost,
		},
	}
	if err := s.deps.Trades.Propose(ctx, t); err != nil {
		return fmt.Errorf("propose transfer: %w", err)
	}
	s.deps.Logger.Infof("agent %s proposed transfer %s (%s -> %s, qty=%d, profit=%.2f)",
		productID, t.ID, t.FromStoreID, t.ToStoreID, t.Quantity, t.EstimatedProfit)
	return nil
}

func (s *Service) adjustPricing(r *runner, action agent.Action) error {
	params := action.Pricing
	if params == nil {
		return fmt.Errorf("pricing action %s has no parameters", action.ID)
	}
	productID := r.productID()
	s.deps.Logger.Infof("agent %s adjusting pricing to %.2f (%s)", productID, params.NewPrice, params.Reason)
	s.publish(market.Event{
		Kind:      market.EventPricingAdjusted,
		ProductID: productID,
		Message:   params.Reason,
		Payload:   map[string]any{"store_id": params.StoreID, "new_price": params.NewPrice},
		At:        s.deps.Now(),
	})
	return nil
}

func (s *Service) sendAlert(r *runner, action agent.Action) error {
	params := action.Alert
	if params == nil {
		return fmt.Errorf("alert action %s has no parameters", action.ID)
	}
	productID := r.productID()
	s.deps.Logger.Warnf("agent %s alert [%s]: %s", productID, params.Severity, params.Message)
	s.publish(market.Event{
		Kind:      market.EventAlertRaised,
		ProductID: productID,
		Severity:  params.Severity,
		Message:   params.Message,
		At:        s.deps.Now(),
	})
	return nil
}

// markActionCompleted removes the finished action from the active set and
// stamps the terminal status on the decision record.
func (s *Service) markActionCompleted(r *runner, d *agent.Decision, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	setDecisionActionStatus(d, id, agent.ActionCompleted, "")
	kept := r.agent.ActiveActions[:0]
	for _, a := range r.agent.ActiveActions {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	r.agent.ActiveActions = kept
}

// markActionFailed keeps the action in the active set with its failure
// recorded, for operator inspection.
func (s *Service) markActionFailed(r *runner, d *agent.Decision, id uuid.UUID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	setDecisionActionStatus(d, id, agent.ActionFailed, err.Error())
	for i := range r.agent.ActiveActions {
		if r.agent.ActiveActions[i].ID == id {
			r.agent.ActiveActions[i].Status = agent.ActionFailed
			r.agent.ActiveActions[i].Error = err.Error()
			return
		}
	}
}

// setDecisionActionStatus updates the decision's copy of an action so the
// persisted current decision tracks dispatch progress. The decision is the
// agent's current decision; callers hold r.mu.
func setDecisionActionStatus(d *agent.Decision, id uuid.UUID, status agent.ActionStatus, errMsg string) {
	for i := range d.Actions {
		if d.Actions[i].ID == id {
			d.Actions[i].Status = status
			if errMsg != "" {
				d.Actions[i].Error = errMsg
			}
			return
		}
	}
}

func agentID(productID string) string {
	return "agent_" + productID
}
