package paper

// executor.go: ejecución simulada para modo paper.
//
// Cada orden se llena al instante al precio pedido. No hay libro ni cola:
// el objetivo es ejercitar el pipeline completo sin tocar el exchange.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// Executor implementa ports.OrderExecutor sin enviar nada a la red.
type Executor struct {
	mu      sync.Mutex
	feeRate float64
	now     func() time.Time
	orders  []domain.OrderResult
}

// NewExecutor crea un Executor. feeRate es la comisión sobre el nocional (0.0001 = 1bp).
func NewExecutor(feeRate float64) *Executor {
	return &Executor{feeRate: feeRate, now: time.Now}
}

// PlaceOrder registra la orden como llena a precio límite.
func (e *Executor) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderResult{}, err
	}
	if req.Size <= 0 {
		return domain.OrderResult{}, fmt.Errorf("paper: %w: size %.4f", domain.ErrRejectedOrder, req.Size)
	}
	if err := domain.CheckProbability("price", req.Price); err != nil {
		return domain.OrderResult{}, fmt.Errorf("paper: %w: %w", domain.ErrRejectedOrder, err)
	}

	id := req.ClientID
	if id == "" {
		id = uuid.NewString()
	}

	res := domain.OrderResult{
		OrderID:    id,
		ExchangeID: "paper-" + id,
		Status:     domain.OrderPaper,
		FillPrice:  req.Price,
		FilledSize: req.Size,
		Fee:        req.Price * req.Size * e.feeRate,
		At:         e.now().UTC(),
	}

	e.mu.Lock()
	e.orders = append(e.orders, res)
	e.mu.Unlock()
	return res, nil
}

// Orders devuelve una copia de las órdenes simuladas hasta ahora.
func (e *Executor) Orders() []domain.OrderResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.OrderResult, len(e.orders))
	copy(out, e.orders)
	return out
}

// Notional devuelve el total invertido, comisiones incluidas.
func (e *Executor) Notional() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total float64
	for _, o := range e.orders {
		total += o.FillPrice*o.FilledSize + o.Fee
	}
	return total
}

// UnitCost devuelve el coste de un share a price con la comisión incluida.
func (e *Executor) UnitCost(_ domain.Side, price float64) float64 {
	return price * (1 + e.feeRate)
}
