package scanner

import (
	"sync"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// PriceMemory recuerda el último precio visto por token y anota los snapshots
// nuevos con PrevPrice. Lo usan tanto el pipeline como el replay de backtest.
type PriceMemory struct {
	mu     sync.Mutex
	prices map[string]float64 // tokenID → último precio
}

// NewPriceMemory crea una memoria vacía.
func NewPriceMemory() *PriceMemory {
	return &PriceMemory{prices: make(map[string]float64)}
}

// Annotate devuelve copias de los mercados con PrevPrice rellenado y
// registra los precios actuales para la próxima llamada.
func (pm *PriceMemory) Annotate(markets []domain.Market) []domain.Market {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	out := make([]domain.Market, len(markets))
	for i, m := range markets {
		c := m.Clone()
		for j, t := range c.Tokens {
			c.Tokens[j].PrevPrice = pm.prices[t.TokenID]
			if t.Price > 0 {
				pm.prices[t.TokenID] = t.Price
			}
		}
		out[i] = c
	}
	return out
}

// Last devuelve el último precio conocido de un token.
func (pm *PriceMemory) Last(tokenID string) (float64, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.prices[tokenID]
	return p, ok
}
