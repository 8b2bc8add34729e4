package agent

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func decisionAt(at time.Time, n int) *Decision {
	return &Decision{
		ID:         uuid.New(),
		ProductID:  "prod_1",
		Type:       "inventory_rebalancing",
		Confidence: 0.8,
		Reasoning:  fmt.Sprintf("decision %d", n),
		Actions:    []Action{{Type: ActionProposeTransfer}},
		DecidedAt:  at,
	}
}

func TestRecordDecisionBoundsHistory(t *testing.T) {
	a := &Agent{ProductID: "prod_1"}
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	var last *Decision
	for i := 0; i < MaxRecentDecisions+5; i++ {
		last = decisionAt(start.Add(time.Duration(i)*time.Minute), i)
		a.RecordDecision(last)
	}

	if len(a.RecentDecisions) != MaxRecentDecisions {
		t.Fatalf("history length = %d, want %d", len(a.RecentDecisions), MaxRecentDecisions)
	}
	if a.RecentDecisions[0].DecisionID != last.ID {
		t.Fatal("newest decision must be first")
	}
	if a.CurrentDecision != last {
		t.Fatal("current decision must track the latest")
	}
	if !a.LastDecisionAt.Equal(last.DecidedAt) {
		t.Fatalf("LastDecisionAt = %v, want %v", a.LastDecisionAt, last.DecidedAt)
	}
	for i := 1; i < len(a.RecentDecisions); i++ {
		if a.RecentDecisions[i].DecidedAt.After(a.RecentDecisions[i-1].DecidedAt) {
			t.Fatal("history must be ordered newest first")
		}
	}
}

func TestRecordLearningBoundsHistory(t *testing.T) {
	a := &Agent{ProductID: "prod_1"}
	for i := 0; i < MaxLearningNotes+3; i++ {
		a.RecordLearning(LearningNote{DecisionID: uuid.New(), Profit: float64(i)})
	}
	if len(a.LearningNotes) != MaxLearningNotes {
		t.Fatalf("notes length = %d, want %d", len(a.LearningNotes), MaxLearningNotes)
	}
	if a.LearningNotes[0].Profit != float64(MaxLearningNotes+2) {
		t.Fatal("newest note must be first")
	}
}

func TestSettleDecision(t *testing.T) {
	a := &Agent{ProductID: "prod_1"}
	d := decisionAt(time.Now(), 0)
	a.RecordDecision(d)

	at := time.Now().Add(time.Hour)
	a.SettleDecision(d.ID, 123.45, at)

	entry := a.RecentDecisions[0]
	if entry.Profit == nil || *entry.Profit != 123.45 {
		t.Fatalf("Profit = %v, want 123.45", entry.Profit)
	}
	if entry.SettledAt == nil || !entry.SettledAt.Equal(at) {
		t.Fatalf("SettledAt = %v, want %v", entry.SettledAt, at)
	}

	a.SettleDecision(uuid.New(), 999, at)
	if *a.RecentDecisions[0].Profit != 123.45 {
		t.Fatal("settling an unknown decision must not touch existing entries")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	profit := 50.0
	a := &Agent{
		ProductID:   "prod_1",
		Seasonality: []string{"winter"},
		ActiveActions: []Action{
			{ID: uuid.New(), Type: ActionProposeTransfer, Status: ActionExecuting},
		},
		RecentDecisions: []DecisionSummary{
			{DecisionID: uuid.New(), Profit: &profit},
		},
	}
	a.CurrentDecision = decisionAt(time.Now(), 0)

	clone := a.Clone()

	clone.Seasonality[0] = "summer"
	clone.ActiveActions[0].Status = ActionFailed
	*clone.RecentDecisions[0].Profit = -1
	clone.CurrentDecision.Actions[0].Type = ActionSendAlert

	if a.Seasonality[0] != "winter" {
		t.Fatal("clone shares seasonality slice")
	}
	if a.ActiveActions[0].Status != ActionExecuting {
		t.Fatal("clone shares active actions")
	}
	if *a.RecentDecisions[0].Profit != 50.0 {
		t.Fatal("clone shares settled profit pointer")
	}
	if a.CurrentDecision.Actions[0].Type != ActionProposeTransfer {
		t.Fatal("clone shares current decision actions")
	}
}

func TestCloneNil(t *testing.T) {
	var a *Agent
	if a.Clone() != nil {
		t.Fatal("nil agent must clone to nil")
	}
}
