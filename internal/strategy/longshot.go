package strategy

import (
	"context"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
)

const IDLongshotBias = "s22_longshot_bias"

// LongshotBias vende longshots comprando NO: los YES baratos están sobrevalorados.
type LongshotBias struct {
	Base
	yesMin   float64
	yesMax   float64
	noMin    float64
	noMax    float64
	estimate float64
}

// NewLongshotBias crea la estrategia con los params dados.
func NewLongshotBias(sizer kelly.Sizer, p Params) *LongshotBias {
	return &LongshotBias{
		Base:     NewBase(IDLongshotBias, domain.TierA, "fade overpriced longshots by buying NO", sizer),
		yesMin:   p.Float("yes_min_price", 0.05),
		yesMax:   p.Float("yes_max_price", 0.15),
		noMin:    p.Float("no_min_price", 0.85),
		noMax:    p.Float("no_max_price", 0.95),
		estimate: p.Float("estimated_no_prob", 0.93),
	}
}

func (s *LongshotBias) Scan(markets []domain.Market) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, m := range markets {
		if !m.Tradable() {
			continue
		}
		yes := m.YesToken().Price
		if yes < s.yesMin || yes > s.yesMax {
			continue
		}
		opps = append(opps, opportunity(m, yes, nil))
	}
	return opps
}

func (s *LongshotBias) Analyze(_ context.Context, opp domain.Opportunity) (*domain.Signal, error) {
	price := noPrice(opp.Market)
	if price < s.noMin || price > s.noMax {
		return nil, nil
	}
	if s.estimate-price <= 0 {
		return nil, nil
	}
	tok := opp.Market.NoToken()
	if tok.TokenID == "" {
		return nil, nil
	}
	return &domain.Signal{
		MarketID:      opp.MarketID(),
		TokenID:       tok.TokenID,
		Side:          domain.SideBuy,
		EstimatedProb: s.estimate,
		MarketPrice:   price,
		Confidence:    0.65,
		StrategyID:    s.ID(),
	}, nil
}
