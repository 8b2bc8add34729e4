package agent

import (
	"time"

	"github.com/google/uuid"
)

// ActionType discriminates the action union.
type ActionType string

const (
	ActionProposeTransfer ActionType = "propose_transfer"
	ActionAdjustPricing   ActionType = "adjust_pricing"
	ActionSendAlert       ActionType = "send_alert"
)

// ActionStatus tracks an action through dispatch.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionExecuting ActionStatus = "executing"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
)

// TransferParams parameterizes a propose_transfer action.
type TransferParams struct {
	SourceStoreID   string  `json:"source_store_id"`
	TargetStoreID   string  `json:"target_store_id"`
	Quantity        int64   `json:"quantity"`
	EstimatedProfit float64 `json:"estimated_profit"`
	ProfitMarginPct float64 `json:"profit_margin_pct"`
}

// PricingParams parameterizes an adjust_pricing action.
type PricingParams struct {
	StoreID  string  `json:"store_id,omitempty"`
	NewPrice float64 `json:"new_price"`
	Reason   string  `json:"reason,omitempty"`
}

// AlertParams parameterizes a send_alert action.
type AlertParams struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Expected is the predicted outcome attached to an action.
type Expected struct {
	ProfitPotential float64 `json:"profit_potential"`
	RiskLevel       float64 `json:"risk_level"`
	TimeHorizon     string  `json:"time_horizon,omitempty"`
}

// Action is one unit of work a decision dispatches. Exactly one of the
// parameter pointers matches Type; an unmatched Type is treated as unknown
// at dispatch time and fails without affecting sibling actions.
type Action struct {
	ID       uuid.UUID    `json:"id"`
	Type     ActionType   `json:"type"`
	Priority int          `json:"priority"`
	Status   ActionStatus `json:"status"`

	Transfer *TransferParams `json:"transfer,omitempty"`
	Pricing  *PricingParams  `json:"pricing,omitempty"`
	Alert    *AlertParams    `json:"alert,omitempty"`

	Expected *Expected `json:"expected,omitempty"`
	Error    string    `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Predictions is the forward-looking part of a decision.
type Predictions struct {
	DemandForecast    []float64 `json:"demand_forecast,omitempty"`
	PriceOptimization float64   `json:"price_optimization,omitempty"`
	InventoryNeed     float64   `json:"inventory_need,omitempty"`
}

// Decision is the result of one completed decision cycle.
type Decision struct {
	ID          uuid.UUID    `json:"id"`
	ProductID   string       `json:"product_id"`
	Type        string       `json:"type"`
	Confidence  float64      `json:"confidence"`
	Reasoning   string       `json:"reasoning"`
	Actions     []Action     `json:"actions"`
	Predictions *Predictions `json:"predictions,omitempty"`
	DecidedAt   time.Time    `json:"decided_at"`
}
