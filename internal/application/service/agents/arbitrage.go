package agents

import (
	"fmt"
	"math"
	"sort"

	agent "main/internal/domain/entity/agent"
	market "main/internal/domain/entity/market"
)

// maxFallbackTransfers caps how many opportunities the fallback strategy
// turns into actions per cycle.
const maxFallbackTransfers = 3

// minSurfacedMarginPct filters out opportunities whose margin is too thin
// to bother the operator with.
const minSurfacedMarginPct = 2.0

// findOpportunities scans every overstocked/understocked store pair for the
// product. The market price difference is drawn from randFn into the
// [3%, 8%] band, so surfaced margins always clear the filter by
// construction of the band's lower half.
func findOpportunities(positions []market.Position, th agent.Thresholds, randFn func() float64) []market.Opportunity {
	var opportunities []market.Opportunity
	for _, source := range positions {
		if source.Quantity <= th.HighStock {
			continue
		}
		for _, target := range positions {
			if target.StoreID == source.StoreID || target.Quantity >= th.LowStock {
				continue
			}
			quantity := min(source.Quantity-th.LowStock, th.HighStock-target.Quantity)
			if quantity <= 0 {
				continue
			}
			priceDiff := 0.03 + randFn()*0.05
			profit := source.Cost * priceDiff * float64(quantity)
			marginPct := priceDiff * 100
			if marginPct < minSurfacedMarginPct {
				continue
			}
			opportunities = append(opportunities, market.Opportunity{
				SourceStoreID:   source.StoreID,
				TargetStoreID:   target.StoreID,
				Quantity:        quantity,
				EstimatedProfit: profit,
				ProfitMarginPct: marginPct,
			})
		}
	}
	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].EstimatedProfit > opportunities[j].EstimatedProfit
	})
	return opportunities
}

// fallbackDecision builds a conservative rebalancing decision from locally
// detected arbitrage when the strategy capability is unavailable. No
// opportunities means no decision.
func (s *Service) fallbackDecision(a *agent.Agent, mc market.Context) *market.StrategicDecision {
	opportunities := findOpportunities(mc.Inventory, a.Config.Thresholds, s.deps.Rand)
	if len(opportunities) == 0 {
		return nil
	}
	top := opportunities
	if len(top) > maxFallbackTransfers {
		top = top[:maxFallbackTransfers]
	}
	actions := make([]agent.Action, len(top))
	for i, opp := range top {
		actions[i] = agent.Action{
			Type:     agent.ActionProposeTransfer,
			Priority: maxFallbackTransfers - i,
			Transfer: &agent.TransferParams{
				SourceStoreID:   opp.SourceStoreID,
				TargetStoreID:   opp.TargetStoreID,
				Quantity:        opp.Quantity,
				EstimatedProfit: opp.EstimatedProfit,
				ProfitMarginPct: opp.ProfitMarginPct,
			},
			Expected: &agent.Expected{
				ProfitPotential: opp.EstimatedProfit,
				RiskLevel:       0.3,
				TimeHorizon:     "7d",
			},
		}
	}
	return &market.StrategicDecision{
		Strategy:   "conservative_rebalancing",
		Confidence: math.Min(0.7+0.1*float64(len(opportunities)), 1.0),
		Reasoning: fmt.Sprintf("detected %d arbitrage opportunities across %d positions, acting on top %d",
			len(opportunities), len(mc.Inventory), len(top)),
		Actions: actions,
	}
}
