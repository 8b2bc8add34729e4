package agents

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	agent "main/internal/domain/entity/agent"
	market "main/internal/domain/entity/market"
	trade "main/internal/domain/entity/trade"
)

var localEventPool = []string{"Local Festival", "Sports Game", "Concert", "Holiday Sale"}

// buildContext assembles everything the agent knows about its product's
// market. Any failure degrades to a minimal safe context so a cycle can
// still decide.
func (s *Service) buildContext(ctx context.Context, a *agent.Agent) market.Context {
	rows, err := s.deps.Inventory.PositionsForProduct(ctx, a.ProductID)
	if err != nil {
		s.deps.Logger.WithError(err).Warnf("load inventory for agent %s, using minimal context", a.ProductID)
		return s.minimalContext(a)
	}

	positions := make([]market.Position, len(rows))
	for i, row := range rows {
		velocity := row.SalesVelocity()
		days := float64(row.Quantity) / math.Max(1, velocity)
		positions[i] = market.Position{
			StoreID:          row.StoreID,
			Quantity:         row.Quantity,
			Reserved:         row.ReservedQuantity,
			Cost:             row.Cost,
			RetailPrice:      row.RetailPrice,
			AvgDailySales:    velocity,
			DaysOfStock:      days,
			LocalDemandScore: demandScore(days),
			CompetitorPrices: s.competitorPrices(a.Pricing.StandardRetail),
		}
	}

	return market.Context{
		ProductID: a.ProductID,
		Inventory: positions,
		Trends: market.Trends{
			SeasonalIndex:    seasonalIndex(s.deps.Now(), a.Category, a.Seasonality),
			DemandGrowthRate: demandGrowthRate(a),
			PriceElasticity:  a.Pricing.TargetMarginPct / 100,
			CompetitiveIndex: competitiveIndex(a.Pricing.TargetMarginPct),
		},
		Historical: market.Historical{
			AvgProfitPerTransfer: a.Metrics.TotalProfit / math.Max(1, float64(a.Metrics.SuccessfulTransfers)),
			SuccessRate:          a.Metrics.SuccessRate,
			OptimalTransferSize:  optimalTransferSize(a.Metrics),
			BestRoutes:           s.bestRoutes(ctx, a.ProductID),
		},
		External: market.External{
			WeatherImpact:         s.weatherImpact(a.Category),
			EconomicIndicator:     0.7 + s.deps.Rand()*0.3,
			LocalEvents:           s.localEvents(),
			SupplyChainDisruption: s.deps.Rand() < 0.1,
		},
		BuiltAt: s.deps.Now(),
	}
}

// minimalContext is the degraded fallback when inventory cannot be read.
func (s *Service) minimalContext(a *agent.Agent) market.Context {
	return market.Context{
		ProductID: a.ProductID,
		Trends: market.Trends{
			SeasonalIndex:    1.0,
			DemandGrowthRate: 0.05,
			PriceElasticity:  0.5,
			CompetitiveIndex: 0.5,
		},
		Historical: market.Historical{
			AvgProfitPerTransfer: 50,
			SuccessRate:          0.7,
			OptimalTransferSize:  100,
		},
		BuiltAt: s.deps.Now(),
	}
}

// demandScore maps days of remaining stock to demand pressure: the faster
// the position drains, the higher the score.
func demandScore(daysOfStock float64) float64 {
	switch {
	case daysOfStock < 3:
		return 0.9
	case daysOfStock < 7:
		return 0.7
	case daysOfStock < 14:
		return 0.5
	case daysOfStock < 30:
		return 0.3
	default:
		return 0.1
	}
}

// seasonalIndex scores the current month against the product's season.
func seasonalIndex(now time.Time, category string, seasonality []string) float64 {
	month := now.Month()
	tags := strings.ToLower(category + " " + strings.Join(seasonality, " "))

	if containsAny(tags, "winter", "coat", "heater") {
		if month >= time.November || month <= time.March {
			return 1.5
		}
		return 0.7
	}
	if containsAny(tags, "summer", "swim", "fan") {
		if month >= time.May && month <= time.September {
			return 1.4
		}
		return 0.8
	}
	if containsAny(tags, "holiday", "gift") {
		if month >= time.November {
			return 2.0
		}
		return 0.6
	}
	return 1.0
}

// demandGrowthRate derives growth from recent transfer performance using
// fixed bands; agents without enough history default to modest growth.
func demandGrowthRate(a *agent.Agent) float64 {
	if len(a.RecentDecisions) < 2 {
		return 0.05
	}
	rate := a.Metrics.SuccessRate
	profit := a.Metrics.TotalProfit
	switch {
	case rate > 0.8 && profit > 1000:
		return 0.15
	case rate > 0.6 && profit > 500:
		return 0.10
	case rate > 0.4:
		return 0.05
	default:
		return -0.02
	}
}

// competitiveIndex positions the product's margin against an assumed 20%
// market average.
func competitiveIndex(targetMarginPct float64) float64 {
	return math.Min(1.0, targetMarginPct/20)
}

func optimalTransferSize(m agent.Metrics) int64 {
	base := 100.0
	if m.SuccessfulTransfers > 0 {
		base = 150.0
	}
	return int64(math.Round(base * (0.5 + m.SuccessRate)))
}

// competitorPrices mocks three external price points around the standard
// retail price.
func (s *Service) competitorPrices(retail float64) []float64 {
	return []float64{
		retail * (0.95 + s.deps.Rand()*0.10),
		retail * (0.90 + s.deps.Rand()*0.20),
		retail * (0.92 + s.deps.Rand()*0.16),
	}
}

func (s *Service) weatherImpact(category string) float64 {
	tags := strings.ToLower(category)
	if containsAny(tags, "outdoor", "garden") {
		return s.deps.Rand()*0.2 - 0.1
	}
	return 0
}

func (s *Service) localEvents() []string {
	if s.deps.Rand() <= 0.7 {
		return nil
	}
	return []string{localEventPool[int(s.deps.Rand()*float64(len(localEventPool)))%len(localEventPool)]}
}

// bestRoutes ranks completed transfer routes for the product by realized
// profit. Failures just yield no routes.
func (s *Service) bestRoutes(ctx context.Context, productID string) []string {
	completed, err := s.deps.Trades.ListByStatus(ctx, trade.StatusCompleted, 50)
	if err != nil {
		return nil
	}
	profits := make(map[string]float64)
	for _, t := range completed {
		if t.ProductID != productID {
			continue
		}
		route := fmt.Sprintf("%s_to_%s", t.FromStoreID, t.ToStoreID)
		if t.Execution != nil {
			profits[route] += t.Execution.ActualProfit
		} else {
			profits[route] += t.EstimatedProfit
		}
	}
	routes := make([]string, 0, len(profits))
	for route := range profits {
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool { return profits[routes[i]] > profits[routes[j]] })
	if len(routes) > 3 {
		routes = routes[:3]
	}
	return routes
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
