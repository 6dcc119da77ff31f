package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
	"github.com/alejandrodnm/polyalpha/internal/ports"
	"github.com/alejandrodnm/polyalpha/internal/scanner"
)

const IDFlashCrash = "s68_flash_crash"

// FlashCrash compra YES tras una caída brusca, apostando a una recuperación parcial.
// Si hay BookProvider, el precio de entrada es el best ask real del book.
type FlashCrash struct {
	Base
	books     ports.BookProvider
	minVolume float64
	minPrior  float64
	crashPct  float64
	minMove   float64
	recovery  float64
	minEdge   float64
}

// NewFlashCrash crea la estrategia. books es opcional.
func NewFlashCrash(sizer kelly.Sizer, p Params, books ports.BookProvider) *FlashCrash {
	return &FlashCrash{
		Base:      NewBase(IDFlashCrash, domain.TierB, "buy sudden YES drops expecting partial recovery", sizer),
		books:     books,
		minVolume: p.Float("min_volume", 5000),
		minPrior:  p.Float("min_prior_price", 0.30),
		crashPct:  p.Float("crash_threshold", 0.20),
		minMove:   p.Float("spike_threshold", scanner.DefaultSpikeThreshold),
		recovery:  p.Float("recovery_estimate", 0.70),
		minEdge:   p.Float("min_edge", 0.05),
	}
}

func (s *FlashCrash) Scan(markets []domain.Market) []domain.Opportunity {
	var opps []domain.Opportunity
	for _, m := range markets {
		if !m.Tradable() || m.Volume < s.minVolume {
			continue
		}
		yes := m.YesToken()
		prior, cur := yes.PrevPrice, yes.Price
		if prior < s.minPrior || cur >= prior {
			continue
		}
		if !scanner.IsPriceSpike(prior, cur, s.minMove) {
			continue
		}
		drop := (prior - cur) / prior
		if drop < s.crashPct {
			continue
		}
		opps = append(opps, opportunity(m, cur, map[string]any{
			"prior_price": prior,
			"drop_pct":    drop,
		}))
	}
	return opps
}

func (s *FlashCrash) Analyze(ctx context.Context, opp domain.Opportunity) (*domain.Signal, error) {
	prior := opp.Meta("prior_price", 0)
	if prior <= 0 || opp.Meta("drop_pct", 0) < s.crashPct {
		return nil, nil
	}
	tok := opp.Market.YesToken()
	if tok.TokenID == "" {
		return nil, nil
	}

	price := opp.MarketPrice
	target := price + (prior-price)*s.recovery
	est := math.Min(0.99, target)

	if s.books != nil {
		ob, err := s.books.FetchOrderBook(ctx, tok.TokenID)
		if err != nil {
			return nil, fmt.Errorf("flash_crash: book %s: %w", tok.TokenID, err)
		}
		if ask := ob.BestAsk(); ask > 0 {
			price = ask
		}
	}

	if price <= 0 || price >= 1 || est-price < s.minEdge {
		return nil, nil
	}
	return &domain.Signal{
		MarketID:      opp.MarketID(),
		TokenID:       tok.TokenID,
		Side:          domain.SideBuy,
		EstimatedProb: est,
		MarketPrice:   price,
		Confidence:    0.50,
		StrategyID:    s.ID(),
		Metadata: map[string]any{
			"prior_price":     prior,
			"recovery_target": target,
		},
	}, nil
}
