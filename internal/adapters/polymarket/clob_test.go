package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(clobSrv, gammaSrv *httptest.Server) *polymarket.Client {
	clobURL := ""
	gammaURL := ""
	if clobSrv != nil {
		clobURL = clobSrv.URL
	}
	if gammaSrv != nil {
		gammaURL = gammaSrv.URL
	}
	return polymarket.NewClient(clobURL, gammaURL)
}

func TestFetchOrderBook_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "token_yes_001", r.URL.Query().Get("token_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"asset_id": "token_yes_001",
			"bids": [{"price": "0.69", "size": "50"}, {"price": "0.70", "size": "100"}],
			"asks": [{"price": "0.74", "size": "10"}, {"price": "0.72", "size": "80"}, {"price": "0", "size": "5"}]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	book, err := client.FetchOrderBook(context.Background(), "token_yes_001")
	require.NoError(t, err)

	assert.Equal(t, "token_yes_001", book.TokenID)
	assert.InDelta(t, 0.70, book.BestBid(), 0.001)
	assert.InDelta(t, 0.72, book.BestAsk(), 0.001)
	assert.InDelta(t, 0.71, book.Midpoint(), 0.001)
	assert.Len(t, book.Asks, 2, "zero-price levels dropped")
}

func TestFetchOrderBook_ServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	_, err := client.FetchOrderBook(context.Background(), "tok")
	assert.Error(t, err)
	assert.Equal(t, 4, calls, "initial attempt + 3 retries")
}

func TestFetchOrderBook_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	_, err := client.FetchOrderBook(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, 1, calls)
}

func TestFetchPriceHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices-history", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("market"))
		assert.Equal(t, "max", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"history": [
			{"t": 1717243200, "p": 0.55},
			{"t": 1717239600, "p": 0.50},
			{"t": 1717246800, "p": 1.0}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	hist, err := client.FetchPriceHistory(context.Background(), "tok", 60)
	require.NoError(t, err)
	require.Len(t, hist, 2, "out-of-range prices dropped")
	assert.True(t, hist[0].At.Before(hist[1].At))

	p, ok := domain.PriceAt(hist, time.Unix(1717243199, 0))
	require.True(t, ok)
	assert.InDelta(t, 0.50, p, 1e-9)

	p, ok = domain.PriceAt(hist, time.Unix(1717250000, 0))
	require.True(t, ok)
	assert.InDelta(t, 0.55, p, 1e-9)

	_, ok = domain.PriceAt(hist, time.Unix(1717200000, 0))
	assert.False(t, ok)
}
