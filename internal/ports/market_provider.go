package ports

import (
	"context"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// MarketProvider obtiene snapshots de mercados desde la fuente de datos.
type MarketProvider interface {
	// FetchMarkets devuelve los mercados que cumplen el filtro.
	// El provider puede aplicar el filtro en origen; el Scanner lo vuelve a aplicar.
	FetchMarkets(ctx context.Context, filter domain.MarketFilter) ([]domain.Market, error)
}

// MarketLookup obtiene mercados concretos por conditionID, estén o no activos.
type MarketLookup interface {
	FetchMarketsByID(ctx context.Context, conditionIDs []string) ([]domain.Market, error)
}
