package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
	"github.com/alejandrodnm/polyalpha/internal/ports"
)

// Strategy define el contrato de una estrategia de trading.
// Scan es puro; Analyze puede consultar datos externos y recibe un ctx con timeout.
type Strategy interface {
	// ID devuelve el identificador único de la estrategia.
	ID() string

	// Tier devuelve la prioridad de la estrategia en el Risk Gate.
	Tier() domain.Tier

	// Scan selecciona los mercados candidatos.
	Scan(markets []domain.Market) []domain.Opportunity

	// Analyze devuelve un Signal si detecta edge, o nil si no lo hay.
	Analyze(ctx context.Context, opp domain.Opportunity) (*domain.Signal, error)

	// Execute envía la orden al port. size está en shares y ya pasó por el gate.
	Execute(ctx context.Context, exec ports.OrderExecutor, sig domain.Signal, size float64) (*domain.Order, error)

	// SizePosition devuelve el importe en USDC a arriesgar.
	SizePosition(sig domain.Signal, bankroll float64) (float64, error)
}

// Base implementa ID, Tier, Execute y SizePosition. Las estrategias concretas
// la embeben y solo implementan Scan y Analyze.
type Base struct {
	id    string
	tier  domain.Tier
	desc  string
	sizer kelly.Sizer
}

// NewBase crea la parte común de una estrategia.
func NewBase(id string, tier domain.Tier, desc string, sizer kelly.Sizer) Base {
	return Base{id: id, tier: tier, desc: desc, sizer: sizer}
}

func (b Base) ID() string { return b.id }
func (b Base) Tier() domain.Tier { return b.tier }
func (b Base) Description() string { return b.desc }
func (b Base) Sizer() kelly.Sizer { return b.sizer }

// SizePosition aplica Kelly fraccional con la fracción de la estrategia.
func (b Base) SizePosition(sig domain.Signal, bankroll float64) (float64, error) {
	amount, err := b.sizer.BetAmount(bankroll, sig.EstimatedProb, sig.MarketPrice)
	if err != nil {
		return 0, fmt.Errorf("strategy %s: size: %w", b.id, err)
	}
	return amount, nil
}

// Execute envía una orden límite al precio de mercado del signal.
func (b Base) Execute(ctx context.Context, exec ports.OrderExecutor, sig domain.Signal, size float64) (*domain.Order, error) {
	return Submit(ctx, exec, sig, size)
}

// Submit envía el signal al port y construye la Order a partir del resultado.
// Si el port falla no se crea ninguna Order.
func Submit(ctx context.Context, exec ports.OrderExecutor, sig domain.Signal, size float64) (*domain.Order, error) {
	if size <= 0 {
		return nil, fmt.Errorf("strategy.Submit %s: non-positive size %v", sig.StrategyID, size)
	}

	req := domain.PlaceOrderRequest{
		MarketID:   sig.MarketID,
		TokenID:    sig.TokenID,
		Side:       sig.Side,
		Price:      sig.MarketPrice,
		Size:       size,
		StrategyID: sig.StrategyID,
	}

	res, err := exec.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("strategy.Submit %s %s: %w", sig.StrategyID, sig.MarketID, err)
	}

	order := &domain.Order{
		ID:         res.OrderID,
		MarketID:   req.MarketID,
		TokenID:    req.TokenID,
		Side:       req.Side,
		Price:      req.Price,
		Size:       req.Size,
		Fee:        res.Fee,
		StrategyID: req.StrategyID,
		Status:     res.Status,
		ExchangeID: res.ExchangeID,
		CreatedAt:  res.At,
	}
	if res.FillPrice > 0 {
		order.Price = res.FillPrice
	}
	if res.FilledSize > 0 {
		order.Size = res.FilledSize
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	return order, nil
}

// opportunity construye una Opportunity para m al precio dado.
func opportunity(m domain.Market, price float64, meta map[string]any) domain.Opportunity {
	if meta == nil {
		meta = map[string]any{}
	}
	return domain.Opportunity{
		Market:      m,
		MarketPrice: price,
		Category:    m.Category,
		Metadata:    meta,
		ObservedAt:  m.SnapshotAt,
	}
}

// noPrice devuelve el precio del token NO, derivándolo del YES si falta.
func noPrice(m domain.Market) float64 {
	if p := m.NoToken().Price; p > 0 {
		return p
	}
	return 1 - m.YesToken().Price
}
