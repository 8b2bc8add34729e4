package market

import "time"

// EventKind labels agent lifecycle events published for reporting.
type EventKind string

const (
	EventTradeProposed   EventKind = "trade_proposed"
	EventPricingAdjusted EventKind = "pricing_adjusted"
	EventAlertRaised     EventKind = "alert_raised"
	EventAgentStarted    EventKind = "agent_started"
	EventAgentStopped    EventKind = "agent_stopped"
)

// Event is the envelope written to the reporting exchange.
type Event struct {
	Kind      EventKind      `json:"kind"`
	ProductID string         `json:"product_id"`
	TradeID   string         `json:"trade_id,omitempty"`
	Severity  string         `json:"severity,omitempty"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}
