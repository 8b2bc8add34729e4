package agent

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no agent exists for a product.
var ErrNotFound = errors.New("agent not found")

// Status is the lifecycle state of a product agent.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusActive       Status = "active"
	StatusPaused       Status = "paused"
	StatusError        Status = "error"
	StatusShutdown     Status = "shutdown"
)

// MaxRecentDecisions bounds the decision history kept on the agent record.
const MaxRecentDecisions = 10

// MaxLearningNotes bounds the rolling learning history.
const MaxLearningNotes = 10

// Pricing carries the product economics the agent reasons about.
type Pricing struct {
	BaseCost        float64 `json:"base_cost"`
	StandardRetail  float64 `json:"standard_retail"`
	TargetMarginPct float64 `json:"target_margin_pct"`
}

// Thresholds bound when the agent considers a position over- or understocked.
type Thresholds struct {
	LowStock              int64   `json:"low_stock"`
	HighStock             int64   `json:"high_stock"`
	MinProfitMargin       float64 `json:"min_profit_margin"`
	MaxTransportCostRatio float64 `json:"max_transport_cost_ratio"`
}

// Forecasting holds the look-ahead settings for decision making.
type Forecasting struct {
	LookAheadDays       int     `json:"look_ahead_days"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// Config is the per-agent runtime configuration.
type Config struct {
	DecisionInterval     time.Duration `json:"decision_interval_ns"`
	MaxConcurrentActions int           `json:"max_concurrent_actions"`
	Thresholds           Thresholds    `json:"thresholds"`
	Forecasting          Forecasting   `json:"forecasting"`
}

// Metrics accumulates lifetime agent performance.
type Metrics struct {
	SuccessfulTransfers int64   `json:"successful_transfers"`
	TotalProfit         float64 `json:"total_profit"`
	AvgConfidence       float64 `json:"avg_confidence"`
	SuccessRate         float64 `json:"success_rate"`
}

// DecisionSummary is the bounded history entry kept per decision.
type DecisionSummary struct {
	DecisionID uuid.UUID  `json:"decision_id"`
	Type       string     `json:"type"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
	Actions    int        `json:"actions"`
	DecidedAt  time.Time  `json:"decided_at"`
	Profit     *float64   `json:"profit,omitempty"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
}

// LearningNote records one settled outcome fed back into the agent.
type LearningNote struct {
	DecisionID uuid.UUID `json:"decision_id"`
	Profit     float64   `json:"profit"`
	Completed  bool      `json:"completed"`
	Insight    string    `json:"insight,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Agent is the per-product autonomous decision maker.
type Agent struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Brand     string `json:"brand,omitempty"`

	Pricing     Pricing  `json:"pricing"`
	Seasonality []string `json:"seasonality,omitempty"`

	Status          Status    `json:"status"`
	IsActive        bool      `json:"is_active"`
	CurrentStrategy string    `json:"current_strategy,omitempty"`
	LastDecisionAt  time.Time `json:"last_decision_at"`

	Config  Config  `json:"config"`
	Metrics Metrics `json:"metrics"`

	CurrentDecision *Decision         `json:"current_decision,omitempty"`
	ActiveActions   []Action          `json:"active_actions,omitempty"`
	RecentDecisions []DecisionSummary `json:"recent_decisions,omitempty"`
	LearningNotes   []LearningNote    `json:"learning_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordDecision makes d the current decision and pushes its summary onto
// the bounded history, newest first.
func (a *Agent) RecordDecision(d *Decision) {
	a.CurrentDecision = d
	a.LastDecisionAt = d.DecidedAt
	summary := DecisionSummary{
		DecisionID: d.ID,
		Type:       d.Type,
		Confidence: d.Confidence,
		Reasoning:  d.Reasoning,
		Actions:    len(d.Actions),
		DecidedAt:  d.DecidedAt,
	}
	a.RecentDecisions = append([]DecisionSummary{summary}, a.RecentDecisions...)
	if len(a.RecentDecisions) > MaxRecentDecisions {
		a.RecentDecisions = a.RecentDecisions[:MaxRecentDecisions]
	}
}

// RecordLearning pushes a settled outcome onto the bounded learning history.
func (a *Agent) RecordLearning(note LearningNote) {
	a.LearningNotes = append([]LearningNote{note}, a.LearningNotes...)
	if len(a.LearningNotes) > MaxLearningNotes {
		a.LearningNotes = a.LearningNotes[:MaxLearningNotes]
	}
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	out := *a
	out.Seasonality = append([]string(nil), a.Seasonality...)
	out.ActiveActions = append([]Action(nil), a.ActiveActions...)
	out.LearningNotes = append([]LearningNote(nil), a.LearningNotes...)
	out.RecentDecisions = make([]DecisionSummary, len(a.RecentDecisions))
	for i, d := range a.RecentDecisions {
		out.RecentDecisions[i] = d
		if d.Profit != nil {
			p := *d.Profit
			out.RecentDecisions[i].Profit = &p
		}
		if d.SettledAt != nil {
			t := *d.SettledAt
			out.RecentDecisions[i].SettledAt = &t
		}
	}
	if a.CurrentDecision != nil {
		d := *a.CurrentDecision
		d.Actions = append([]Action(nil), a.CurrentDecision.Actions...)
		if a.CurrentDecision.Predictions != nil {
			p := *a.CurrentDecision.Predictions
			p.DemandForecast = append([]float64(nil), p.DemandForecast...)
			d.Predictions = &p
		}
		out.CurrentDecision = &d
	}
	return &out
}

// SettleDecision marks the matching history entry with the realized profit.
func (a *Agent) SettleDecision(decisionID uuid.UUID, profit float64, at time.Time) {
	for i := range a.RecentDecisions {
		if a.RecentDecisions[i].DecisionID == decisionID {
			p := profit
			t := at
			a.RecentDecisions[i].Profit = &p
			a.RecentDecisions[i].SettledAt = &t
			return
		}
	}
}
