package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	agent "main/internal/domain/entity/agent"
	inventory "main/internal/domain/entity/inventory"
)

func TestDemandScore(t *testing.T) {
	cases := []struct {
		days float64
		want float64
	}{
		{1, 0.9},
		{2.9, 0.9},
		{3, 0.7},
		{6.9, 0.7},
		{7, 0.5},
		{13.9, 0.5},
		{14, 0.3},
		{29.9, 0.3},
		{30, 0.1},
		{365, 0.1},
	}
	for _, tc := range cases {
		if got := demandScore(tc.days); got != tc.want {
			t.Errorf("demandScore(%.1f) = %.1f, want %.1f", tc.days, got, tc.want)
		}
	}
}

func TestSeasonalIndex(t *testing.T) {
	january := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	july := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
	december := time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		now         time.Time
		category    string
		seasonality []string
		want        float64
	}{
		{"winter product in season", january, "Apparel", []string{"winter"}, 1.5},
		{"winter product off season", july, "Apparel", []string{"winter"}, 0.7},
		{"heater category in season", december, "Heaters", nil, 1.5},
		{"summer product in season", july, "Outdoor", []string{"summer"}, 1.4},
		{"summer product off season", january, "Outdoor", []string{"summer"}, 0.8},
		{"holiday product in season", december, "Gifts", []string{"holiday"}, 2.0},
		{"holiday product off season", july, "Gifts", []string{"gift"}, 0.6},
		{"neutral product", july, "Tools", nil, 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := seasonalIndex(tc.now, tc.category, tc.seasonality); got != tc.want {
				t.Fatalf("seasonalIndex = %.1f, want %.1f", got, tc.want)
			}
		})
	}
}

func TestDemandGrowthRate(t *testing.T) {
	history := func(n int) []agent.DecisionSummary {
		return make([]agent.DecisionSummary, n)
	}
	cases := []struct {
		name string
		a    *agent.Agent
		want float64
	}{
		{"too little history", &agent.Agent{RecentDecisions: history(1)}, 0.05},
		{"strong performer", &agent.Agent{
			RecentDecisions: history(5),
			Metrics:         agent.Metrics{SuccessRate: 0.9, TotalProfit: 2000},
		}, 0.15},
		{"good performer", &agent.Agent{
			RecentDecisions: history(5),
			Metrics:         agent.Metrics{SuccessRate: 0.7, TotalProfit: 600},
		}, 0.10},
		{"average performer", &agent.Agent{
			RecentDecisions: history(5),
			Metrics:         agent.Metrics{SuccessRate: 0.5, TotalProfit: 100},
		}, 0.05},
		{"weak performer", &agent.Agent{
			RecentDecisions: history(5),
			Metrics:         agent.Metrics{SuccessRate: 0.2},
		}, -0.02},
		{"high rate without profit", &agent.Agent{
			RecentDecisions: history(5),
			Metrics:         agent.Metrics{SuccessRate: 0.9, TotalProfit: 500},
		}, 0.10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := demandGrowthRate(tc.a); got != tc.want {
				t.Fatalf("demandGrowthRate = %.2f, want %.2f", got, tc.want)
			}
		})
	}
}

func TestCompetitiveIndex(t *testing.T) {
	if got := competitiveIndex(10); got != 0.5 {
		t.Fatalf("competitiveIndex(10) = %.2f, want 0.5", got)
	}
	if got := competitiveIndex(40); got != 1.0 {
		t.Fatalf("competitiveIndex(40) = %.2f, want capped 1.0", got)
	}
}

func TestOptimalTransferSize(t *testing.T) {
	noHistory := agent.Metrics{SuccessRate: 0.5}
	if got := optimalTransferSize(noHistory); got != 100 {
		t.Fatalf("optimalTransferSize without transfers = %d, want 100", got)
	}
	seasoned := agent.Metrics{SuccessfulTransfers: 3, SuccessRate: 0.9}
	if got := optimalTransferSize(seasoned); got != 210 {
		t.Fatalf("optimalTransferSize with transfers = %d, want 210", got)
	}
}

func TestBuildContextPositions(t *testing.T) {
	f := newFixture(t, nil)
	a := f.seedAgent(t, agent.StatusActive)
	daily := 20.0
	f.inventory.rows["prod_1"] = []inventory.Row{
		{StoreID: "store_north", ProductID: "prod_1", Quantity: 100, Cost: 42, RetailPrice: 90, AvgDailySales: &daily},
	}

	mc := f.service.buildContext(context.Background(), a)

	if len(mc.Inventory) != 1 {
		t.Fatalf("positions = %d, want 1", len(mc.Inventory))
	}
	p := mc.Inventory[0]
	if p.DaysOfStock != 5 {
		t.Fatalf("DaysOfStock = %.1f, want 5", p.DaysOfStock)
	}
	if p.LocalDemandScore != 0.7 {
		t.Fatalf("LocalDemandScore = %.1f, want 0.7", p.LocalDemandScore)
	}
	if len(p.CompetitorPrices) != 3 {
		t.Fatalf("competitor prices = %d, want 3", len(p.CompetitorPrices))
	}
	if mc.Trends.PriceElasticity != 0.35 {
		t.Fatalf("PriceElasticity = %.2f, want 0.35", mc.Trends.PriceElasticity)
	}
	// rand fixed at 0.5: no local events, no disruption
	if len(mc.External.LocalEvents) != 0 || mc.External.SupplyChainDisruption {
		t.Fatalf("external = %+v", mc.External)
	}
	if mc.External.EconomicIndicator != 0.85 {
		t.Fatalf("EconomicIndicator = %.2f, want 0.85", mc.External.EconomicIndicator)
	}
}

func TestBuildContextDefaultsVelocity(t *testing.T) {
	f := newFixture(t, nil)
	a := f.seedAgent(t, agent.StatusActive)
	f.inventory.rows["prod_1"] = []inventory.Row{
		{StoreID: "store_north", ProductID: "prod_1", Quantity: 100, Cost: 42},
	}

	mc := f.service.buildContext(context.Background(), a)
	if mc.Inventory[0].AvgDailySales != inventory.DefaultAvgDailySales {
		t.Fatalf("AvgDailySales = %.1f, want default %.1f",
			mc.Inventory[0].AvgDailySales, inventory.DefaultAvgDailySales)
	}
}

func TestBuildContextMinimalFallback(t *testing.T) {
	f := newFixture(t, nil)
	a := f.seedAgent(t, agent.StatusActive)
	f.inventory.err = errors.New("database down")

	mc := f.service.buildContext(context.Background(), a)

	if len(mc.Inventory) != 0 {
		t.Fatal("minimal context must carry no positions")
	}
	if mc.Trends.SeasonalIndex != 1.0 || mc.Trends.DemandGrowthRate != 0.05 ||
		mc.Trends.PriceElasticity != 0.5 || mc.Trends.CompetitiveIndex != 0.5 {
		t.Fatalf("minimal trends = %+v", mc.Trends)
	}
	if mc.Historical.AvgProfitPerTransfer != 50 || mc.Historical.SuccessRate != 0.7 ||
		mc.Historical.OptimalTransferSize != 100 {
		t.Fatalf("minimal historical = %+v", mc.Historical)
	}
}
