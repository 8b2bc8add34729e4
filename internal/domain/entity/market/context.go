package market

import (
	"time"

	agent "main/internal/domain/entity/agent"

	"github.com/google/uuid"
)

// Position is one store's view of the product inside a market context.
type Position struct {
	StoreID          string    `json:"store_id"`
	Quantity         int64     `json:"quantity"`
	Reserved         int64     `json:"reserved"`
	Cost             float64   `json:"cost"`
	RetailPrice      float64   `json:"retail_price"`
	AvgDailySales    float64   `json:"avg_daily_sales"`
	DaysOfStock      float64   `json:"days_of_stock"`
	LocalDemandScore float64   `json:"local_demand_score"`
	CompetitorPrices []float64 `json:"competitor_prices,omitempty"`
}

// Trends carries the aggregate market signals for the product.
type Trends struct {
	SeasonalIndex    float64 `json:"seasonal_index"`
	DemandGrowthRate float64 `json:"demand_growth_rate"`
	PriceElasticity  float64 `json:"price_elasticity"`
	CompetitiveIndex float64 `json:"competitive_index"`
}

// Historical summarizes past transfer performance for the product.
type Historical struct {
	AvgProfitPerTransfer float64  `json:"avg_profit_per_transfer"`
	SuccessRate          float64  `json:"success_rate"`
	OptimalTransferSize  int64    `json:"optimal_transfer_size"`
	BestRoutes           []string `json:"best_routes,omitempty"`
}

// External carries outside-world signals folded into a decision.
type External struct {
	WeatherImpact         float64  `json:"weather_impact"`
	EconomicIndicator     float64  `json:"economic_indicator"`
	LocalEvents           []string `json:"local_events,omitempty"`
	SupplyChainDisruption bool     `json:"supply_chain_disruption"`
}

// Context is everything an agent knows when it decides.
type Context struct {
	ProductID  string     `json:"product_id"`
	Inventory  []Position `json:"inventory"`
	Trends     Trends     `json:"trends"`
	Historical Historical `json:"historical"`
	External   External   `json:"external"`
	BuiltAt    time.Time  `json:"built_at"`
}

// Opportunity is one detected source->target transfer candidate.
type Opportunity struct {
	SourceStoreID   string  `json:"source_store_id"`
	TargetStoreID   string  `json:"target_store_id"`
	Quantity        int64   `json:"quantity"`
	EstimatedProfit float64 `json:"estimated_profit"`
	ProfitMarginPct float64 `json:"profit_margin_pct"`
}

// StrategicDecision is what a strategy source (brain or fallback) returns;
// actions come back without identities or statuses, the synthesizer assigns
// those.
type StrategicDecision struct {
	Strategy    string             `json:"strategy"`
	Confidence  float64            `json:"confidence"`
	Reasoning   string             `json:"reasoning"`
	Actions     []agent.Action     `json:"actions"`
	Predictions *agent.Predictions `json:"predictions,omitempty"`
}

// LearningUpdate is the outcome report sent back to the strategy source.
type LearningUpdate struct {
	DecisionID          uuid.UUID `json:"decision_id"`
	ProductID           string    `json:"product_id"`
	ActualProfit        float64   `json:"actual_profit"`
	TransferCompleted   bool      `json:"transfer_completed"`
	TimeToCompleteHours float64   `json:"time_to_complete_hours,omitempty"`
	UnexpectedEvents    []string  `json:"unexpected_events,omitempty"`
	NewInsights         []string  `json:"new_insights,omitempty"`
}
