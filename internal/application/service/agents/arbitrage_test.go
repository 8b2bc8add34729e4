package agents

import (
	"testing"

	agent "main/internal/domain/entity/agent"
	market "main/internal/domain/entity/market"
)

var testThresholds = agent.Thresholds{LowStock: 50, HighStock: 500}

func fixedRand(v float64) func() float64 {
	return func() float64 { return v }
}

func TestFindOpportunitiesDetectsImbalance(t *testing.T) {
	positions := []market.Position{
		{StoreID: "store_a", Quantity: 600, Cost: 40},
		{StoreID: "store_b", Quantity: 10, Cost: 40},
		{StoreID: "store_c", Quantity: 200, Cost: 40},
	}

	opportunities := findOpportunities(positions, testThresholds, fixedRand(0.5))

	if len(opportunities) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(opportunities))
	}
	opp := opportunities[0]
	if opp.SourceStoreID != "store_a" || opp.TargetStoreID != "store_b" {
		t.Fatalf("route = %s -> %s", opp.SourceStoreID, opp.TargetStoreID)
	}
	// min(600-50, 500-10)
	if opp.Quantity != 490 {
		t.Fatalf("quantity = %d, want 490", opp.Quantity)
	}
	if opp.ProfitMarginPct != 5.5 {
		t.Fatalf("margin = %.2f, want 5.5", opp.ProfitMarginPct)
	}
	want := 40 * 0.055 * 490
	if diff := opp.EstimatedProfit - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("profit = %.4f, want %.4f", opp.EstimatedProfit, want)
	}
}

func TestFindOpportunitiesSortsByProfit(t *testing.T) {
	positions := []market.Position{
		{StoreID: "store_a", Quantity: 900, Cost: 40},
		{StoreID: "store_b", Quantity: 600, Cost: 40},
		{StoreID: "store_c", Quantity: 5, Cost: 40},
		{StoreID: "store_d", Quantity: 40, Cost: 40},
	}

	opportunities := findOpportunities(positions, testThresholds, fixedRand(0.5))

	if len(opportunities) != 4 {
		t.Fatalf("opportunities = %d, want 4 (2 sources x 2 targets)", len(opportunities))
	}
	for i := 1; i < len(opportunities); i++ {
		if opportunities[i].EstimatedProfit > opportunities[i-1].EstimatedProfit {
			t.Fatal("opportunities must be sorted by profit, descending")
		}
	}
	if opportunities[0].TargetStoreID != "store_c" {
		t.Fatalf("most profitable target = %s, want the emptiest store", opportunities[0].TargetStoreID)
	}
}

func TestFindOpportunitiesBalancedInventory(t *testing.T) {
	positions := []market.Position{
		{StoreID: "store_a", Quantity: 300, Cost: 40},
		{StoreID: "store_b", Quantity: 200, Cost: 40},
	}
	if got := findOpportunities(positions, testThresholds, fixedRand(0.5)); len(got) != 0 {
		t.Fatalf("balanced inventory yielded %d opportunities", len(got))
	}
}

func TestFindOpportunitiesIgnoresSameStore(t *testing.T) {
	// a store cannot be both source and target of its own transfer
	positions := []market.Position{
		{StoreID: "store_a", Quantity: 600, Cost: 40},
	}
	if got := findOpportunities(positions, testThresholds, fixedRand(0.5)); len(got) != 0 {
		t.Fatalf("single store yielded %d opportunities", len(got))
	}
}

func TestFallbackDecisionCapsActions(t *testing.T) {
	f := newFixture(t, nil)
	a := f.seedAgent(t, agent.StatusActive)

	mc := market.Context{Inventory: []market.Position{
		{StoreID: "store_a", Quantity: 900, Cost: 40},
		{StoreID: "store_b", Quantity: 800, Cost: 40},
		{StoreID: "store_c", Quantity: 700, Cost: 40},
		{StoreID: "store_d", Quantity: 5, Cost: 40},
		{StoreID: "store_e", Quantity: 10, Cost: 40},
	}}

	sd := f.service.fallbackDecision(a, mc)
	if sd == nil {
		t.Fatal("expected a fallback decision")
	}
	if len(sd.Actions) != maxFallbackTransfers {
		t.Fatalf("actions = %d, want %d", len(sd.Actions), maxFallbackTransfers)
	}
	// 3 sources x 2 targets = 6 opportunities, confidence caps at 1.0
	if sd.Confidence != 1.0 {
		t.Fatalf("confidence = %.2f, want 1.0", sd.Confidence)
	}
	if sd.Strategy != "conservative_rebalancing" {
		t.Fatalf("strategy = %s", sd.Strategy)
	}
	for i, action := range sd.Actions {
		if action.Type != agent.ActionProposeTransfer || action.Transfer == nil {
			t.Fatalf("action %d = %+v", i, action)
		}
		if action.Priority != maxFallbackTransfers-i {
			t.Fatalf("action %d priority = %d", i, action.Priority)
		}
	}
}

func TestFallbackDecisionNoOpportunities(t *testing.T) {
	f := newFixture(t, nil)
	a := f.seedAgent(t, agent.StatusActive)
	if sd := f.service.fallbackDecision(a, market.Context{}); sd != nil {
		t.Fatalf("empty context yielded %+v", sd)
	}
}
