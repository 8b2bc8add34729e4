package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	market "main/internal/domain/entity/market"
)

const (
	sellBidValidity = 4 * time.Hour
	buyBidValidity  = 2 * time.Hour
)

// participate submits marketplace bids from the current inventory picture:
// sell bids offload half the excess at a 5% discount, buy bids cover the
// deficit at a 2% premium. Participation is best effort.
func (s *Service) participate(ctx context.Context, r *runner, mc market.Context) {
	if s.deps.Marketplace == nil {
		return
	}
	r.mu.Lock()
	productID := r.agent.ProductID
	th := r.agent.Config.Thresholds
	retail := r.agent.Pricing.StandardRetail
	targetMargin := r.agent.Pricing.TargetMarginPct
	r.mu.Unlock()

	now := s.deps.Now()
	for _, position := range mc.Inventory {
		if position.Quantity > th.HighStock {
			sellQuantity := (position.Quantity - th.HighStock) / 2
			if sellQuantity <= 0 {
				continue
			}
			price := retail * 0.95
			s.submitBid(ctx, productID, market.Bid{
				AgentID:      productID,
				ProductID:    productID,
				Type:         market.BidSell,
				Quantity:     sellQuantity,
				PricePerUnit: price,
				FromStoreID:  position.StoreID,
				Urgency:      "medium",
				ValidUntil:   now.Add(sellBidValidity),
				Conditions: market.BidConditions{
					MinQuantity:        sellQuantity / 10,
					MaxTransportCost:   price * float64(sellQuantity) * 0.05,
					PreferredTimeframe: "24-48 hours",
				},
				Metadata: market.BidMetadata{
					ProfitPotential: float64(sellQuantity) * price * 0.1,
					RiskAssessment:  0.2,
					ConfidenceLevel: 0.8,
				},
			})
		}

		if position.Quantity < th.LowStock {
			buyQuantity := th.LowStock - position.Quantity
			urgency := "medium"
			if position.Quantity < th.LowStock/2 {
				urgency = "high"
			}
			price := retail * 1.02
			s.submitBid(ctx, productID, market.Bid{
				AgentID:      productID,
				ProductID:    productID,
				Type:         market.BidBuy,
				Quantity:     buyQuantity,
				PricePerUnit: price,
				ToStoreID:    position.StoreID,
				Urgency:      urgency,
				ValidUntil:   now.Add(buyBidValidity),
				Conditions: market.BidConditions{
					MinQuantity:        buyQuantity * 3 / 10,
					MaxTransportCost:   price * float64(buyQuantity) * 0.03,
					PreferredTimeframe: "immediate",
				},
				Metadata: market.BidMetadata{
					ProfitPotential: float64(buyQuantity) * (targetMargin / 100) * price,
					RiskAssessment:  0.4,
					ConfidenceLevel: 0.9,
				},
			})
		}
	}
}

func (s *Service) submitBid(ctx context.Context, productID string, bid market.Bid) {
	bidCtx, cancel := context.WithTimeout(ctx, s.deps.MarketplaceTimeout)
	defer cancel()
	if err := s.deps.Marketplace.SubmitBid(bidCtx, bid); err != nil {
		s.deps.Logger.WithError(err).Warnf("agent %s %s bid for store %s%s failed",
			productID, bid.Type, bid.FromStoreID, bid.ToStoreID)
	}
}

// NegotiateTransfer opens a negotiation with another agent for a specific
// transfer and returns the negotiation id.
func (s *Service) NegotiateTransfer(ctx context.Context, productID, targetAgentID string, req market.NegotiationRequest) (string, error) {
	if s.deps.Marketplace == nil {
		return "", errors.New("marketplace capability is not configured")
	}
	r, err := s.runner(ctx, productID)
	if err != nil {
		return "", err
	}
	req.InitiatorID = r.productID()
	req.TargetID = targetAgentID
	req.ProductID = r.productID()

	negCtx, cancel := context.WithTimeout(ctx, s.deps.MarketplaceTimeout)
	defer cancel()
	negotiationID, err := s.deps.Marketplace.StartNegotiation(negCtx, req)
	if err != nil {
		return "", fmt.Errorf("start negotiation: %w", err)
	}
	s.deps.Logger.Infof("agent %s started negotiation %s with %s (qty=%d, offer=%.2f)",
		productID, negotiationID, targetAgentID, req.Quantity, req.InitialOffer)
	return negotiationID, nil
}

// RespondToNegotiation accepts, counters, or rejects an open negotiation.
// Rejection simply lets the negotiation expire.
func (s *Service) RespondToNegotiation(ctx context.Context, productID, negotiationID, response string, counter *market.CounterOffer) (bool, error) {
	if s.deps.Marketplace == nil {
		return false, errors.New("marketplace capability is not configured")
	}
	if _, err := s.runner(ctx, productID); err != nil {
		return false, err
	}

	switch response {
	case "accept":
		offer := market.CounterOffer{}
		if counter != nil {
			offer = *counter
		}
		return s.counterOffer(ctx, negotiationID, productID, offer)
	case "counter":
		if counter == nil {
			return false, errors.New("counter response requires an offer")
		}
		return s.counterOffer(ctx, negotiationID, productID, *counter)
	case "reject":
		s.deps.Logger.Infof("agent %s rejected negotiation %s", productID, negotiationID)
		return false, nil
	default:
		return false, fmt.Errorf("unknown negotiation response: %s", response)
	}
}

func (s *Service) counterOffer(ctx context.Context, negotiationID, productID string, offer market.CounterOffer) (bool, error) {
	negCtx, cancel := context.WithTimeout(ctx, s.deps.MarketplaceTimeout)
	defer cancel()
	accepted, err := s.deps.Marketplace.SubmitCounterOffer(negCtx, negotiationID, productID, offer)
	if err != nil {
		return false, fmt.Errorf("submit counter offer: %w", err)
	}
	return accepted, nil
}
