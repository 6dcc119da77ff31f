package strategy

import (
	"context"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
)

const IDNothingEverHappens = "s03_nothing_ever_happens"

var dramaticKeywords = []string{
	"war", "invade", "invasion", "crash", "collapse", "impeach", "resign",
	"fire", "default", "ban", "destroy", "overthrow", "assassin",
}

// NothingEverHappens compra NO en mercados de eventos dramáticos: la mayoría
// se resuelven NO y el mercado sobrestima el YES.
type NothingEverHappens struct {
	Base
	minYes     float64
	maxYes     float64
	baseNoRate float64
	minEdge    float64
}

// NewNothingEverHappens crea la estrategia con los params dados.
func NewNothingEverHappens(sizer kelly.Sizer, p Params) *NothingEverHappens {
	return &NothingEverHappens{
		Base:       NewBase(IDNothingEverHappens, domain.TierS, "buy NO on dramatic headline markets", sizer),
		minYes:     p.Float("min_yes_price", 0.15),
		maxYes:     p.Float("max_yes_price", 0.70),
		baseNoRate: p.Float("base_no_rate", 0.70),
		minEdge:    p.Float("min_edge", 0.05),
	}
}

func (s *NothingEverHappens) Scan(markets []domain.Market) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, m := range markets {
		if !m.Tradable() || !containsAny(m.Question, dramaticKeywords) {
			continue
		}
		yes := m.YesToken().Price
		if yes <= s.minYes || yes >= s.maxYes {
			continue
		}
		opps = append(opps, opportunity(m, yes, nil))
	}
	return opps
}

func (s *NothingEverHappens) Analyze(_ context.Context, opp domain.Opportunity) (*domain.Signal, error) {
	no := opp.Market.NoToken()
	price := noPrice(opp.Market)
	if no.TokenID == "" || price <= 0 || price >= 1 {
		return nil, nil
	}
	if s.baseNoRate-price < s.minEdge {
		return nil, nil
	}
	return &domain.Signal{
		MarketID:      opp.MarketID(),
		TokenID:       no.TokenID,
		Side:          domain.SideBuy,
		EstimatedProb: s.baseNoRate,
		MarketPrice:   price,
		Confidence:    0.65,
		StrategyID:    s.ID(),
	}, nil
}
