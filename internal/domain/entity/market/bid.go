package market

import "time"

// BidType distinguishes buy and sell side participation.
type BidType string

const (
	BidBuy  BidType = "buy"
	BidSell BidType = "sell"
)

// BidConditions bound what the bidder will accept.
type BidConditions struct {
	MinQuantity        int64   `json:"min_quantity,omitempty"`
	MaxTransportCost   float64 `json:"max_transport_cost,omitempty"`
	PreferredTimeframe string  `json:"preferred_timeframe,omitempty"`
}

// BidMetadata carries the bidder's own assessment of the bid.
type BidMetadata struct {
	ProfitPotential float64 `json:"profit_potential,omitempty"`
	RiskAssessment  float64 `json:"risk_assessment,omitempty"`
	ConfidenceLevel float64 `json:"confidence_level,omitempty"`
}

// Bid is a marketplace buy or sell offer for product inventory.
type Bid struct {
	AgentID      string        `json:"agent_id"`
	ProductID    string        `json:"product_id"`
	Type         BidType       `json:"type"`
	Quantity     int64         `json:"quantity"`
	PricePerUnit float64       `json:"price_per_unit"`
	FromStoreID  string        `json:"from_store_id,omitempty"`
	ToStoreID    string        `json:"to_store_id,omitempty"`
	Urgency      string        `json:"urgency"`
	ValidUntil   time.Time     `json:"valid_until"`
	Conditions   BidConditions `json:"conditions"`
	Metadata     BidMetadata   `json:"metadata"`
}

// NegotiationRequest opens a negotiation for a specific transfer.
type NegotiationRequest struct {
	InitiatorID  string  `json:"initiator_id"`
	TargetID     string  `json:"target_id"`
	ProductID    string  `json:"product_id"`
	Quantity     int64   `json:"quantity"`
	FromStoreID  string  `json:"from_store_id"`
	ToStoreID    string  `json:"to_store_id"`
	InitialOffer float64 `json:"initial_offer"`
}

// CounterOffer is a response within an open negotiation.
type CounterOffer struct {
	PriceOffer float64        `json:"price_offer"`
	Conditions map[string]any `json:"conditions,omitempty"`
}
