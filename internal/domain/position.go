package domain

import "time"

// Position es la exposición abierta resultante de una orden aceptada.
type Position struct {
	MarketID     string
	TokenID      string
	Outcome      string
	Question     string
	Side         Side
	EntryPrice   float64
	Size         float64
	CurrentPrice float64
	StrategyID   string
	OrderID      string
	OpenedAt     time.Time
}

// NewPosition construye la posición a partir de una orden ejecutada.
func NewPosition(o Order, m Market) Position {
	tok, _ := m.Token(o.TokenID)
	return Position{
		MarketID:     o.MarketID,
		TokenID:      o.TokenID,
		Outcome:      tok.Outcome,
		Question:     m.Question,
		Side:         o.Side,
		EntryPrice:   o.Price,
		Size:         o.Size,
		CurrentPrice: o.Price,
		StrategyID:   o.StrategyID,
		OrderID:      o.ID,
		OpenedAt:     o.CreatedAt,
	}
}

// Cost devuelve el capital comprometido al abrir.
func (p Position) Cost() float64 {
	return p.EntryPrice * p.Size
}

// Value devuelve el valor de mercado actual de la posición.
func (p Position) Value() float64 {
	return p.Cost() + p.UnrealizedPnL()
}

// UnrealizedPnL es (current - entry) × size para compras; el signo se invierte en ventas.
func (p Position) UnrealizedPnL() float64 {
	return pnl(p.Side, p.EntryPrice, p.CurrentPrice, p.Size)
}

// WithPrice devuelve una copia marcada al precio dado.
func (p Position) WithPrice(price float64) Position {
	p.CurrentPrice = price
	return p
}

// Close cierra la posición al precio exit.
func (p Position) Close(exit float64, at time.Time, reason string) ClosedTrade {
	p.CurrentPrice = exit
	return ClosedTrade{
		Position:    p,
		ExitPrice:   exit,
		RealizedPnL: pnl(p.Side, p.EntryPrice, exit, p.Size),
		ClosedAt:    at,
		Reason:      reason,
	}
}

// ClosedTrade es una posición cerrada con su P&L realizado.
type ClosedTrade struct {
	Position
	ExitPrice   float64
	RealizedPnL float64
	ClosedAt    time.Time
	Reason      string // resolved | closed | end_of_replay
}

// Won indica si el trade cerró con ganancia.
func (t ClosedTrade) Won() bool {
	return t.RealizedPnL > 0
}

func pnl(side Side, entry, exit, size float64) float64 {
	d := (exit - entry) * size
	if side == SideSell {
		return -d
	}
	return d
}
