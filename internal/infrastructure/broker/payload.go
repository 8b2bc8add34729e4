package broker

import "github.com/google/uuid"

// OutcomeStatus labels an execution report from the logistics side.
type OutcomeStatus string

const (
	OutcomeExecuting OutcomeStatus = "executing"
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
)

// OutcomeMessage is the wire payload of an execution report on the
// outcomes exchange.
type OutcomeMessage struct {
	TradeID             uuid.UUID     `json:"trade_id"`
	Status              OutcomeStatus `json:"status"`
	ActualProfit        float64       `json:"actual_profit,omitempty"`
	ActualTransportCost float64       `json:"actual_transport_cost,omitempty"`
	ActualQuantity      int64         `json:"actual_quantity,omitempty"`
	TrackingID          string        `json:"tracking_id,omitempty"`
	Notes               string        `json:"notes,omitempty"`
}
