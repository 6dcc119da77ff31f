package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
)

const IDModelVsMarket = "s24_model_vs_market"

var politicalKeywords = []string{
	"election", "president", "senator", "governor", "congress",
	"house", "senate", "vote", "ballot", "primary", "nominee",
	"democrat", "republican", "gop",
}

// Estimator devuelve la probabilidad de YES según un modelo externo.
// ok es false si el modelo no cubre el mercado.
type Estimator interface {
	Estimate(ctx context.Context, m domain.Market) (prob float64, ok bool, err error)
}

// EstimateTable es un Estimator estático indexado por condition ID.
type EstimateTable map[string]float64

// Estimate implementa Estimator.
func (t EstimateTable) Estimate(_ context.Context, m domain.Market) (float64, bool, error) {
	p, ok := t[m.ConditionID]
	return p, ok, nil
}

// ModelVsMarket opera en la dirección del modelo cuando diverge del precio.
type ModelVsMarket struct {
	Base
	model     Estimator
	threshold float64
}

// NewModelVsMarket crea la estrategia. model no puede ser nil.
func NewModelVsMarket(sizer kelly.Sizer, p Params, model Estimator) *ModelVsMarket {
	return &ModelVsMarket{
		Base:      NewBase(IDModelVsMarket, domain.TierA, "trade toward model probability on political markets", sizer),
		model:     model,
		threshold: p.Float("min_divergence", 0.05),
	}
}

func (s *ModelVsMarket) Scan(markets []domain.Market) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, m := range markets {
		if !m.Tradable() || !containsAny(m.Question, politicalKeywords) {
			continue
		}
		yes := m.YesToken().Price
		if yes <= 0 || yes >= 1 {
			continue
		}
		opps = append(opps, opportunity(m, yes, nil))
	}
	return opps
}

func (s *ModelVsMarket) Analyze(ctx context.Context, opp domain.Opportunity) (*domain.Signal, error) {
	prob, ok, err := s.model.Estimate(ctx, opp.Market)
	if err != nil {
		return nil, fmt.Errorf("model_vs_market: estimate %s: %w", opp.MarketID(), err)
	}
	if !ok {
		return nil, nil
	}
	if err := domain.CheckProbability("model", prob); err != nil {
		return nil, fmt.Errorf("model_vs_market: %w", err)
	}

	yes := opp.MarketPrice
	if math.Abs(prob-yes) < s.threshold {
		return nil, nil
	}

	sig := &domain.Signal{
		MarketID:   opp.MarketID(),
		Side:       domain.SideBuy,
		Confidence: 0.60,
		StrategyID: s.ID(),
		Metadata:   map[string]any{"model_prob": prob},
	}
	if prob > yes {
		sig.TokenID = opp.Market.YesToken().TokenID
		sig.EstimatedProb = prob
		sig.MarketPrice = yes
	} else {
		sig.TokenID = opp.Market.NoToken().TokenID
		sig.EstimatedProb = 1 - prob
		sig.MarketPrice = noPrice(opp.Market)
	}
	if sig.TokenID == "" {
		return nil, nil
	}
	return sig, nil
}
