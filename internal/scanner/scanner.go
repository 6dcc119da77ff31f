package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/ports"
)

// FetchFunc adapta una función al port MarketProvider.
type FetchFunc func(ctx context.Context, filter domain.MarketFilter) ([]domain.Market, error)

// FetchMarkets implementa ports.MarketProvider.
func (f FetchFunc) FetchMarkets(ctx context.Context, filter domain.MarketFilter) ([]domain.Market, error) {
	return f(ctx, filter)
}

// Scanner obtiene mercados del provider y aplica los filtros configurados.
// No decide edge ni mantiene estado entre ciclos.
type Scanner struct {
	markets ports.MarketProvider
	books   ports.BookProvider
	filter  domain.MarketFilter
}

// New crea un Scanner. books puede ser nil si ninguna estrategia consulta orderbooks.
func New(markets ports.MarketProvider, books ports.BookProvider, filter domain.MarketFilter) *Scanner {
	return &Scanner{markets: markets, books: books, filter: filter}
}

// Filter devuelve el filtro por defecto del scanner.
func (s *Scanner) Filter() domain.MarketFilter {
	return s.filter
}

// Scan devuelve los mercados que pasan el filtro por defecto.
func (s *Scanner) Scan(ctx context.Context) ([]domain.Market, error) {
	return s.ScanWith(ctx, s.filter)
}

// ScanWith devuelve los mercados que pasan filter.
// Un fallo del provider se devuelve envuelto en domain.ErrDataUnavailable.
func (s *Scanner) ScanWith(ctx context.Context, filter domain.MarketFilter) ([]domain.Market, error) {
	start := time.Now()

	raw, err := s.markets.FetchMarkets(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("scanner.Scan: %w: %w", domain.ErrDataUnavailable, err)
	}

	markets := Apply(raw, filter)

	slog.Debug("scan complete",
		"fetched", len(raw),
		"passed", len(markets),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return markets, nil
}

// OrderBook devuelve el orderbook de un token.
func (s *Scanner) OrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	if s.books == nil {
		return domain.OrderBook{}, fmt.Errorf("scanner.OrderBook: %w: no book provider", domain.ErrDataUnavailable)
	}
	ob, err := s.books.FetchOrderBook(ctx, tokenID)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("scanner.OrderBook %s: %w: %w", tokenID, domain.ErrDataUnavailable, err)
	}
	return ob, nil
}
