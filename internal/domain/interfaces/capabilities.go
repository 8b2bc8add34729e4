package interfaces

import (
	"context"

	catalog "main/internal/domain/entity/catalog"
	market "main/internal/domain/entity/market"
)

// Brain is the external strategy capability. Callers bound each call with
// context.WithTimeout; a failure falls back to local opportunity detection.
type Brain interface {
	MakeStrategicDecision(ctx context.Context, mc market.Context) (*market.StrategicDecision, error)
	LearnFromOutcome(ctx context.Context, update market.LearningUpdate) error
}

// Marketplace is the internal bid/negotiation capability.
type Marketplace interface {
	SubmitBid(ctx context.Context, bid market.Bid) error
	StartNegotiation(ctx context.Context, req market.NegotiationRequest) (string, error)
	SubmitCounterOffer(ctx context.Context, negotiationID, agentID string, offer market.CounterOffer) (bool, error)
}

// EventPublisher emits agent lifecycle events for downstream reporting.
// Publishing is best effort; implementations batch internally.
type EventPublisher interface {
	Publish(event market.Event) error
}

// CatalogRepository stores and looks up store/product reference data.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	GetStore(ctx context.Context, id string) (*catalog.Store, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	UpsertStore(ctx context.Context, s *catalog.Store) error
	UpsertProduct(ctx context.Context, p *catalog.Product) error
}
