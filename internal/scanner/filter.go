package scanner

import (
	"math"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// DefaultSpikeThreshold es el movimiento absoluto de precio que se considera spike.
const DefaultSpikeThreshold = 0.15

// Apply devuelve los mercados que pasan el filtro, preservando el orden.
func Apply(markets []domain.Market, filter domain.MarketFilter) []domain.Market {
	out := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if filter.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// IsPriceSpike indica si el precio se movió al menos threshold en valor absoluto.
// Sin historia (previous <= 0) nunca hay spike.
func IsPriceSpike(previous, current, threshold float64) bool {
	if previous <= 0 || current <= 0 {
		return false
	}
	return math.Abs(current-previous) >= threshold
}
