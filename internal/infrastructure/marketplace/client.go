package marketplace

import (
	"context"
	"errors"
	"fmt"

	market "main/internal/domain/entity/market"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Client talks to the internal marketplace service over HTTP JSON.
type Client struct {
	http   *resty.Client
	logger *logrus.Entry
}

func NewClient(baseURL string, logger *logrus.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("marketplace base url is required")
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	return &Client{
		http:   http,
		logger: logger.WithField("component", "marketplace_client"),
	}, nil
}

func (c *Client) SubmitBid(ctx context.Context, bid market.Bid) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(bid).
		Post("/v1/bids")
	if err != nil {
		return fmt.Errorf("submit bid: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("bid submission failed: %s", resp.Status())
	}
	c.logger.WithFields(logrus.Fields{
		"product_id": bid.ProductID,
		"type":       bid.Type,
		"quantity":   bid.Quantity,
	}).Debug("submitted bid")
	return nil
}

type negotiationResponse struct {
	NegotiationID string `json:"negotiation_id"`
}

func (c *Client) StartNegotiation(ctx context.Context, req market.NegotiationRequest) (string, error) {
	var result negotiationResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/v1/negotiations")
	if err != nil {
		return "", fmt.Errorf("start negotiation: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("negotiation request failed: %s", resp.Status())
	}
	return result.NegotiationID, nil
}

type counterOfferResponse struct {
	Accepted bool `json:"accepted"`
}

func (c *Client) SubmitCounterOffer(ctx context.Context, negotiationID, agentID string, offer market.CounterOffer) (bool, error) {
	var result counterOfferResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"agent_id":    agentID,
			"price_offer": offer.PriceOffer,
			"conditions":  offer.Conditions,
		}).
		SetResult(&result).
		Post(fmt.Sprintf("/v1/negotiations/%s/counter", negotiationID))
	if err != nil {
		return false, fmt.Errorf("submit counter offer: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("counter offer request failed: %s", resp.Status())
	}
	return result.Accepted, nil
}
