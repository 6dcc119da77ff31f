package scanner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockBookProvider struct {
	books map[string]domain.OrderBook
	err   error
}

func (m *mockBookProvider) FetchOrderBook(_ context.Context, tokenID string) (domain.OrderBook, error) {
	return m.books[tokenID], m.err
}

func makeMarket(id string, yes, volume, liquidity float64, category string) domain.Market {
	return domain.Market{
		ConditionID: id,
		Question:    "Market " + id,
		Category:    category,
		Volume:      volume,
		Liquidity:   liquidity,
		Active:      true,
		Tokens: []domain.Token{
			{TokenID: id + "_yes", Outcome: "Yes", Price: yes},
			{TokenID: id + "_no", Outcome: "No", Price: 1 - yes},
		},
	}
}

func staticFetch(markets []domain.Market, err error) scanner.FetchFunc {
	return func(context.Context, domain.MarketFilter) ([]domain.Market, error) {
		return markets, err
	}
}

// --- tests ---

func TestScanner_Scan_AppliesFilters(t *testing.T) {
	inactive := makeMarket("0x3", 0.5, 9000, 900, "crypto")
	inactive.Active = false

	fetch := staticFetch([]domain.Market{
		makeMarket("0x1", 0.5, 10000, 1000, "Politics"),
		makeMarket("0x2", 0.5, 100, 1000, "politics"),
		inactive,
		makeMarket("0x4", 0.5, 10000, 1000, "sports"),
	}, nil)

	s := scanner.New(fetch, nil, domain.MarketFilter{
		MinVolume:  1000,
		ActiveOnly: true,
		Categories: []string{"politics"},
	})

	markets, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "0x1", markets[0].ConditionID)
}

func TestScanner_Scan_EmptyCategoriesMeansAll(t *testing.T) {
	fetch := staticFetch([]domain.Market{
		makeMarket("0x1", 0.5, 0, 0, "politics"),
		makeMarket("0x2", 0.5, 0, 0, "sports"),
	}, nil)

	markets, err := scanner.New(fetch, nil, domain.MarketFilter{}).Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, markets, 2)
}

func TestScanner_Scan_ProviderErrorIsDataUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	s := scanner.New(staticFetch(nil, cause), nil, domain.MarketFilter{})

	_, err := s.Scan(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))
	assert.True(t, errors.Is(err, cause))
}

func TestScanner_OrderBook(t *testing.T) {
	books := &mockBookProvider{books: map[string]domain.OrderBook{
		"tok": {TokenID: "tok", Asks: []domain.BookEntry{{Price: 0.4, Size: 10}}},
	}}
	s := scanner.New(staticFetch(nil, nil), books, domain.MarketFilter{})

	ob, err := s.OrderBook(context.Background(), "tok")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, ob.BestAsk(), 1e-9)

	books.err = errors.New("timeout")
	_, err = s.OrderBook(context.Background(), "tok")
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))

	_, err = scanner.New(staticFetch(nil, nil), nil, domain.MarketFilter{}).OrderBook(context.Background(), "tok")
	assert.True(t, errors.Is(err, domain.ErrDataUnavailable))
}

func TestIsPriceSpike(t *testing.T) {
	assert.True(t, scanner.IsPriceSpike(0.50, 0.30, scanner.DefaultSpikeThreshold))
	assert.True(t, scanner.IsPriceSpike(0.30, 0.50, scanner.DefaultSpikeThreshold))
	assert.False(t, scanner.IsPriceSpike(0.50, 0.40, scanner.DefaultSpikeThreshold))
	assert.True(t, scanner.IsPriceSpike(0.50, 0.25, 0.25))
	assert.False(t, scanner.IsPriceSpike(0, 0.9, 0.15), "no history")
}

func TestPriceMemory_Annotate(t *testing.T) {
	pm := scanner.NewPriceMemory()

	first := pm.Annotate([]domain.Market{makeMarket("0x1", 0.60, 0, 0, "")})
	assert.Equal(t, 0.0, first[0].YesToken().PrevPrice)

	in := []domain.Market{makeMarket("0x1", 0.40, 0, 0, "")}
	second := pm.Annotate(in)
	assert.InDelta(t, 0.60, second[0].YesToken().PrevPrice, 1e-9)
	assert.InDelta(t, 0.40, second[0].YesToken().Price, 1e-9)
	assert.Equal(t, 0.0, in[0].YesToken().PrevPrice, "input snapshot untouched")

	last, ok := pm.Last("0x1_yes")
	require.True(t, ok)
	assert.InDelta(t, 0.40, last, 1e-9)
}
