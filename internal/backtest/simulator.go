package backtest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

const (
	DefaultSlippagePct = 0.005
	DefaultFeePct      = 0.0001

	minFillPrice = 0.001
	maxFillPrice = 0.999
)

// FillSimulator implementa ports.OrderExecutor para el replay.
// Llena siempre la orden completa con slippage en contra de la dirección
// del trade. Los IDs son secuenciales: dos replays iguales dan los mismos IDs.
type FillSimulator struct {
	mu       sync.Mutex
	slippage float64
	fee      float64
	at       time.Time
	seq      int
	fills    []domain.OrderResult
}

// NewFillSimulator crea un simulador con slippage y comisión como fracción.
func NewFillSimulator(slippagePct, feePct float64) *FillSimulator {
	return &FillSimulator{slippage: slippagePct, fee: feePct}
}

// advance fija el timestamp de las próximas órdenes.
func (s *FillSimulator) advance(at time.Time) {
	s.mu.Lock()
	s.at = at
	s.mu.Unlock()
}

// FillPrice devuelve el precio de llenado para side a price.
// Nunca mejora el precio pedido.
func (s *FillSimulator) FillPrice(side domain.Side, price float64) float64 {
	if side == domain.SideSell {
		return math.Min(price, math.Max(price*(1-s.slippage), minFillPrice))
	}
	return math.Max(price, math.Min(price*(1+s.slippage), maxFillPrice))
}

// UnitCost es el coste por share con slippage y comisión.
func (s *FillSimulator) UnitCost(side domain.Side, price float64) float64 {
	return s.FillPrice(side, price) * (1 + s.fee)
}

// PlaceOrder implementa ports.OrderExecutor.
func (s *FillSimulator) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderResult{}, err
	}
	if req.Size <= 0 {
		return domain.OrderResult{}, fmt.Errorf("backtest.PlaceOrder: %w: size %.4f", domain.ErrRejectedOrder, req.Size)
	}
	if err := domain.CheckProbability("price", req.Price); err != nil {
		return domain.OrderResult{}, fmt.Errorf("backtest.PlaceOrder: %w: %w", domain.ErrRejectedOrder, err)
	}

	fill := s.FillPrice(req.Side, req.Price)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	res := domain.OrderResult{
		OrderID:    fmt.Sprintf("bt-%06d", s.seq),
		Status:     domain.OrderFilled,
		FillPrice:  fill,
		FilledSize: req.Size,
		Fee:        fill * req.Size * s.fee,
		At:         s.at,
	}
	s.fills = append(s.fills, res)
	return res, nil
}

// Fills devuelve una copia de los llenados simulados.
func (s *FillSimulator) Fills() []domain.OrderResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OrderResult, len(s.fills))
	copy(out, s.fills)
	return out
}
