package polymarket_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gammaFixture = `[
	{
		"id": "501",
		"conditionId": "0xabc",
		"question": "Will it rain tomorrow?",
		"slug": "will-it-rain",
		"category": "Weather",
		"endDate": "2025-07-01T12:00:00Z",
		"outcomes": "[\"No\", \"Yes\"]",
		"outcomePrices": "[\"0.35\", \"0.65\"]",
		"clobTokenIds": "[\"tok_no\", \"tok_yes\"]",
		"volume": "12500.5",
		"liquidity": 3000,
		"active": true,
		"closed": false
	},
	{
		"id": "502",
		"conditionId": "0xmulti",
		"question": "Who wins?",
		"outcomes": "[\"A\", \"B\", \"C\"]",
		"outcomePrices": "[\"0.3\", \"0.3\", \"0.4\"]",
		"clobTokenIds": "[\"a\", \"b\", \"c\"]",
		"active": true
	},
	{
		"id": "503",
		"conditionId": "0xdone",
		"question": "Was it sunny?",
		"endDateIso": "2025-01-01",
		"outcomes": "[\"Yes\", \"No\"]",
		"outcomePrices": "[\"0.999\", \"0.001\"]",
		"clobTokenIds": "[\"done_yes\", \"done_no\"]",
		"active": false,
		"closed": true
	}
]`

func TestFetchMarkets_MapsBinaryMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		assert.Equal(t, "1000", r.URL.Query().Get("volume_num_min"))
		w.Write([]byte(gammaFixture))
	}))
	defer srv.Close()

	client := newTestClient(nil, srv)
	markets, err := client.FetchMarkets(context.Background(), domain.MarketFilter{ActiveOnly: true, MinVolume: 1000})
	require.NoError(t, err)
	require.Len(t, markets, 2, "non-binary market dropped")

	m := markets[0]
	assert.Equal(t, "0xabc", m.ConditionID)
	assert.Equal(t, "Weather", m.Category)
	assert.InDelta(t, 12500.5, m.Volume, 1e-9)
	assert.InDelta(t, 3000, m.Liquidity, 1e-9)
	assert.Equal(t, 2025, m.EndDate.Year())
	assert.False(t, m.SnapshotAt.IsZero())

	// YES siempre primero, aunque la API lo devuelva segundo
	assert.Equal(t, "Yes", m.Tokens[0].Outcome)
	assert.Equal(t, "tok_yes", m.YesToken().TokenID)
	assert.InDelta(t, 0.65, m.YesToken().Price, 1e-9)
	assert.InDelta(t, 0.35, m.NoToken().Price, 1e-9)
	assert.False(t, m.Resolved())

	done := markets[1]
	assert.True(t, done.Resolved())
	v, ok := done.Settlement("done_yes")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, 1, int(done.EndDate.Month()))
}

func TestFetchMarkets_PaginatesAndHonoursLimit(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Write([]byte(fullPage(r.URL.Query().Get("offset"))))
	}))
	defer srv.Close()

	client := newTestClient(nil, srv)
	markets, err := client.FetchMarkets(context.Background(), domain.MarketFilter{Limit: 150})
	require.NoError(t, err)
	assert.Len(t, markets, 150)
	assert.Equal(t, 2, pages)
}

func TestFetchMarkets_ServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(nil, srv)
	_, err := client.FetchMarkets(context.Background(), domain.MarketFilter{})
	assert.Error(t, err)
}

func TestFetchClosedMarkets_OnlyResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("closed"))
		w.Write([]byte(gammaFixture))
	}))
	defer srv.Close()

	client := newTestClient(nil, srv)
	markets, err := client.FetchClosedMarkets(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "0xdone", markets[0].ConditionID)
}

// fullPage devuelve 100 mercados binarios distintos para el offset dado.
func fullPage(offset string) string {
	out := "["
	for i := 0; i < 100; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"conditionId":"0x%s_%d","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.5\",\"0.5\"]","clobTokenIds":"[\"y%d\",\"n%d\"]","active":true}`,
			offset, i, i, i)
	}
	return out + "]"
}

func TestFetchMarketsByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"0xabc", "0xdone"}, r.URL.Query()["condition_ids"])
		w.Write([]byte(gammaFixture))
	}))
	defer srv.Close()

	client := newTestClient(nil, srv)
	markets, err := client.FetchMarketsByID(context.Background(), []string{"0xabc", "0xdone"})
	require.NoError(t, err)
	assert.Len(t, markets, 2)
}
