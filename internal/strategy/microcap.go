package strategy

import (
	"context"
	"math"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
)

const (
	IDMicrocapMonopoly = "s85_microcap_monopoly"

	DefaultMicrocapSpread       = 0.12
	DefaultMicrocapMaxLiquidity = 200.0
)

// MicrocapMonopoly cotiza el bid en mercados con muy poca liquidez, donde ser
// el único LP da poder de precio. El edge es la mitad del spread: con el spread
// por defecto (0.12) queda en 0.06, por encima del min_edge por defecto.
//
// Necesita que el scanner deje pasar mercados por debajo de max_liquidity; ver
// ScanFilter.
type MicrocapMonopoly struct {
	Base
	maxLiquidity float64
	spread       float64
}

// NewMicrocapMonopoly crea la estrategia con los params dados.
func NewMicrocapMonopoly(sizer kelly.Sizer, p Params) *MicrocapMonopoly {
	return &MicrocapMonopoly{
		Base:         NewBase(IDMicrocapMonopoly, domain.TierC, "quote the bid on illiquid micro-cap markets", sizer),
		maxLiquidity: p.Float("max_liquidity", DefaultMicrocapMaxLiquidity),
		spread:       p.Float("spread", DefaultMicrocapSpread),
	}
}

func (s *MicrocapMonopoly) Scan(markets []domain.Market) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, m := range markets {
		if !m.Tradable() || m.Liquidity <= 0 || m.Liquidity >= s.maxLiquidity {
			continue
		}
		yes := m.YesToken().Price
		if yes <= 0 || yes >= 1 {
			continue
		}
		opps = append(opps, opportunity(m, yes, map[string]any{"liquidity": m.Liquidity}))
	}
	return opps
}

func (s *MicrocapMonopoly) Analyze(_ context.Context, opp domain.Opportunity) (*domain.Signal, error) {
	mid := opp.MarketPrice
	bid := round2(mid - s.spread/2)
	ask := round2(mid + s.spread/2)
	if bid <= 0.01 || ask >= 0.99 {
		return nil, nil
	}
	tok := opp.Market.YesToken()
	if tok.TokenID == "" {
		return nil, nil
	}
	return &domain.Signal{
		MarketID:      opp.MarketID(),
		TokenID:       tok.TokenID,
		Side:          domain.SideBuy,
		EstimatedProb: mid,
		MarketPrice:   bid,
		Confidence:    0.40,
		StrategyID:    s.ID(),
		Metadata:      map[string]any{"bid": bid, "ask": ask},
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
