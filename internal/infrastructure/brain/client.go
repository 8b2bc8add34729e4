package brain

import (
	"context"
	"errors"
	"fmt"

	market "main/internal/domain/entity/market"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Client talks to the external strategy service over HTTP JSON. Callers
// bound each call with context deadlines.
type Client struct {
	http   *resty.Client
	logger *logrus.Entry
}

func NewClient(baseURL string, logger *logrus.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("brain base url is required")
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
	return &Client{
		http:   http,
		logger: logger.WithField("component", "brain_client"),
	}, nil
}

// MakeStrategicDecision submits the market context and returns the
// strategy's decision.
func (c *Client) MakeStrategicDecision(ctx context.Context, mc market.Context) (*market.StrategicDecision, error) {
	var decision market.StrategicDecision
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(mc).
		SetResult(&decision).
		Post("/v1/decisions")
	if err != nil {
		return nil, fmt.Errorf("request strategic decision: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("strategic decision request failed: %s", resp.Status())
	}
	c.logger.WithFields(logrus.Fields{
		"product_id": mc.ProductID,
		"strategy":   decision.Strategy,
		"actions":    len(decision.Actions),
	}).Debug("received strategic decision")
	return &decision, nil
}

// LearnFromOutcome reports a settled transfer back to the strategy service.
func (c *Client) LearnFromOutcome(ctx context.Context, update market.LearningUpdate) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(update).
		Post("/v1/learning")
	if err != nil {
		return fmt.Errorf("submit learning update: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("learning update request failed: %s", resp.Status())
	}
	return nil
}
