package ports

import (
	"context"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// BookProvider obtiene el orderbook de un token.
type BookProvider interface {
	FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
}
