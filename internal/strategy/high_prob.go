package strategy

import (
	"context"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
)

const IDHighProbHarvesting = "s12_high_prob_harvesting"

// HighProbHarvesting compra YES casi seguros (0.95-0.99) cerca de la resolución
// y cobra el último tramo hasta 1.00.
type HighProbHarvesting struct {
	Base
	scanMin  float64
	buyMin   float64
	buyMax   float64
	maxDays  float64
	estimate float64
}

// NewHighProbHarvesting crea la estrategia con los params dados.
func NewHighProbHarvesting(sizer kelly.Sizer, p Params) *HighProbHarvesting {
	return &HighProbHarvesting{
		Base:     NewBase(IDHighProbHarvesting, domain.TierA, "harvest near-certain YES before resolution", sizer),
		scanMin:  p.Float("scan_min_price", 0.93),
		buyMin:   p.Float("buy_min_price", 0.95),
		buyMax:   p.Float("buy_max_price", 0.99),
		maxDays:  p.Float("max_days_to_resolution", 30),
		estimate: p.Float("estimated_prob", 0.99),
	}
}

func (s *HighProbHarvesting) Scan(markets []domain.Market) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, m := range markets {
		if !m.Tradable() {
			continue
		}
		yes := m.YesToken().Price
		if yes <= s.scanMin {
			continue
		}
		days := m.DaysToResolution(m.SnapshotAt)
		if m.SnapshotAt.IsZero() {
			days = -1
		}
		opps = append(opps, opportunity(m, yes, map[string]any{"days_left": days}))
	}
	return opps
}

func (s *HighProbHarvesting) Analyze(_ context.Context, opp domain.Opportunity) (*domain.Signal, error) {
	price := opp.MarketPrice
	if price < s.buyMin || price > s.buyMax {
		return nil, nil
	}
	days := opp.Meta("days_left", -1)
	if days > s.maxDays {
		return nil, nil
	}
	if s.estimate <= price {
		return nil, nil
	}
	tok := opp.Market.YesToken()
	if tok.TokenID == "" {
		return nil, nil
	}

	effective := days
	if effective <= 0 {
		effective = 7
	}
	return &domain.Signal{
		MarketID:      opp.MarketID(),
		TokenID:       tok.TokenID,
		Side:          domain.SideBuy,
		EstimatedProb: s.estimate,
		MarketPrice:   price,
		Confidence:    0.90,
		StrategyID:    s.ID(),
		Metadata:      map[string]any{"annualized_yield": AnnualizedYield(price, effective)},
	}, nil
}

// AnnualizedYield es el rendimiento anualizado de comprar a price y liquidar a 1.00 en days.
func AnnualizedYield(price, days float64) float64 {
	if price <= 0 || price >= 1 || days <= 0 {
		return 0
	}
	return (1 - price) / price * (365 / days)
}
