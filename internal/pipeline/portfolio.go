package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// Portfolio lleva la caja y las posiciones abiertas, como mucho una por mercado.
type Portfolio struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]domain.Position // marketID → posición
	realized  float64
}

// NewPortfolio crea una cartera con la caja inicial dada.
func NewPortfolio(cash float64) *Portfolio {
	return &Portfolio{cash: cash, positions: make(map[string]domain.Position)}
}

// Cash devuelve la caja disponible.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Realized devuelve el P&L realizado acumulado.
func (p *Portfolio) Realized() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realized
}

// Bankroll es la caja más el capital comprometido en posiciones abiertas.
// Es la base del sizing y del límite de pérdida diaria.
func (p *Portfolio) Bankroll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.cash
	for _, pos := range p.sorted() {
		b += pos.Cost()
	}
	return b
}

// Equity es la caja más el valor de mercado de las posiciones abiertas.
func (p *Portfolio) Equity() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.cash
	for _, pos := range p.sorted() {
		e += pos.Value()
	}
	return e
}

// Positions devuelve las posiciones abiertas ordenadas por apertura y mercado.
func (p *Portfolio) Positions() []domain.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sorted()
}

// sorted devuelve las posiciones en orden fijo para que las sumas en coma
// flotante no dependan del orden de iteración del map. Requiere p.mu.
func (p *Portfolio) sorted() []domain.Position {
	out := make([]domain.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.Before(out[j].OpenedAt)
		}
		return out[i].MarketID < out[j].MarketID
	})
	return out
}

// Position devuelve la posición abierta en el mercado, si existe.
func (p *Portfolio) Position(marketID string) (domain.Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[marketID]
	return pos, ok
}

// Open registra la posición y descuenta su coste más la comisión.
func (p *Portfolio) Open(pos domain.Position, fee float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[pos.MarketID] = pos
	p.cash -= pos.Cost() + fee
}

// Mark actualiza el precio actual de la posición en el mercado.
func (p *Portfolio) Mark(marketID string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos, ok := p.positions[marketID]; ok && price > 0 {
		p.positions[marketID] = pos.WithPrice(price)
	}
}

// Close cierra la posición del mercado a exit y devuelve el trade resultante.
func (p *Portfolio) Close(marketID string, exit float64, at time.Time, reason string) (domain.ClosedTrade, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[marketID]
	if !ok {
		return domain.ClosedTrade{}, false
	}
	trade := pos.Close(exit, at, reason)
	delete(p.positions, marketID)
	p.cash += pos.Cost() + trade.RealizedPnL
	p.realized += trade.RealizedPnL
	return trade, true
}
