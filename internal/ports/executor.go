package ports

import (
	"context"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// OrderExecutor is the execution port. Paper, live and the backtest fill
// simulator all implement it.
type OrderExecutor interface {
	// PlaceOrder submits the order. A non-nil error means no exposure was created.
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.OrderResult, error)
}
