package trade

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status tracks a transfer through its lifecycle.
type Status string

const (
	StatusProposed  Status = "proposed"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound            = errors.New("trade not found")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
	ErrSameStore           = errors.New("source and target store must differ")
	ErrMissingStore        = errors.New("source and target store are required")
	ErrMissingProduct      = errors.New("product id is required")
	ErrQuantityBounds      = errors.New("quantity outside constraint bounds")
	ErrConstraintBounds    = errors.New("min quantity exceeds max quantity")
	ErrPastDeadline        = errors.New("delivery deadline must be in the future")
	ErrNegativeProfit      = errors.New("estimated profit must not be negative")
	ErrNegativeTransport   = errors.New("transport cost must not be negative")
	ErrIllegalTransition   = errors.New("illegal trade transition")
)

// transitions lists the statuses each status may move to. Anything absent
// is illegal, including self transitions.
var transitions = map[Status][]Status{
	StatusProposed:  {StatusApproved, StatusRejected},
	StatusApproved:  {StatusExecuting, StatusFailed},
	StatusExecuting: {StatusCompleted, StatusFailed},
}

// Constraints bound what an approved transfer may actually do.
type Constraints struct {
	MaxTransportCost float64   `json:"max_transport_cost"`
	MinProfitMargin  float64   `json:"min_profit_margin"`
	DeliveryDeadline time.Time `json:"delivery_deadline"`
	MinQuantity      int64     `json:"min_quantity"`
	MaxQuantity      int64     `json:"max_quantity"`
}

// Execution carries the actuals reported back once a transfer runs.
type Execution struct {
	ActualProfit        float64 `json:"actual_profit"`
	ActualTransportCost float64 `json:"actual_transport_cost"`
	ActualQuantity      int64   `json:"actual_quantity"`
	TrackingID          string  `json:"tracking_id,omitempty"`
	Notes               string  `json:"notes,omitempty"`
}

// Trade is a proposed inventory transfer between two stores.
type Trade struct {
	ID              uuid.UUID  `json:"id"`
	DecisionID      *uuid.UUID `json:"decision_id,omitempty"`
	Status          Status     `json:"status"`
	FromStoreID     string     `json:"from_store_id"`
	ToStoreID       string     `json:"to_store_id"`
	ProductID       string     `json:"product_id"`
	SKU             string     `json:"sku"`
	Quantity        int64      `json:"quantity"`
	EstimatedProfit float64    `json:"estimated_profit"`
	TransportCost   float64    `json:"transport_cost"`
	UrgencyScore    float64    `json:"urgency_score"`
	ProposedBy      string     `json:"proposed_by"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	Reasoning       string     `json:"reasoning,omitempty"`
	Constraints     Constraints `json:"constraints"`
	Execution       *Execution  `json:"execution,omitempty"`

	ProposedAt  time.Time  `json:"proposed_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	ExecutedAt  *time.Time `json:"executed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate checks the creation invariants of a proposed trade against now.
func (t *Trade) Validate(now time.Time) error {
	if t.ProductID == "" {
		return ErrMissingProduct
	}
	if t.FromStoreID == "" || t.ToStoreID == "" {
		return ErrMissingStore
	}
	if t.FromStoreID == t.ToStoreID {
		return ErrSameStore
	}
	if t.Quantity <= 0 {
		return ErrNonPositiveQuantity
	}
	if t.EstimatedProfit < 0 {
		return ErrNegativeProfit
	}
	if t.TransportCost < 0 {
		return ErrNegativeTransport
	}
	if !t.Constraints.DeliveryDeadline.After(now) {
		return ErrPastDeadline
	}
	if t.Constraints.MaxQuantity > 0 && t.Constraints.MinQuantity > t.Constraints.MaxQuantity {
		return ErrConstraintBounds
	}
	if t.Constraints.MinQuantity > 0 && t.Quantity < t.Constraints.MinQuantity {
		return ErrQuantityBounds
	}
	if t.Constraints.MaxQuantity > 0 && t.Quantity > t.Constraints.MaxQuantity {
		return ErrQuantityBounds
	}
	return nil
}

// CanTransition reports whether moving from the current status to next is legal.
func (t *Trade) CanTransition(next Status) bool {
	for _, allowed := range transitions[t.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition moves the trade to next, stamping the matching timestamp.
// The trade is left untouched when the transition is illegal.
func (t *Trade) Transition(next Status, now time.Time) error {
	if !t.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = now
	switch next {
	case StatusApproved:
		t.ApprovedAt = &now
	case StatusRejected:
		t.RejectedAt = &now
	case StatusExecuting:
		t.ExecutedAt = &now
	case StatusCompleted:
		t.CompletedAt = &now
	case StatusFailed:
		t.FailedAt = &now
	}
	return nil
}

// IsTerminal reports whether no further transitions are possible.
func (t *Trade) IsTerminal() bool {
	return len(transitions[t.Status]) == 0
}

// IsExpired reports whether the delivery deadline has passed.
func (t *Trade) IsExpired(now time.Time) bool {
	return !t.Constraints.DeliveryDeadline.IsZero() && now.After(t.Constraints.DeliveryDeadline)
}

// IsProfitable reports whether the estimate clears the transport cost.
func (t *Trade) IsProfitable() bool {
	return t.EstimatedProfit > t.TransportCost
}

// StatusStats aggregates trades per status.
type StatusStats struct {
	Status             Status  `json:"status"`
	Count              int64   `json:"count"`
	TotalProfit        float64 `json:"total_profit"`
	AvgProfit          float64 `json:"avg_profit"`
	TotalTransportCost float64 `json:"total_transport_cost"`
}
