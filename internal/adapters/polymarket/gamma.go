package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
	maxGammaPages    = 50
	lookupBatch      = 20
)

// FetchMarkets implementa ports.MarketProvider sobre GET /markets de Gamma.
// Pagina por offset hasta agotar resultados o alcanzar filter.Limit.
// Volumen, liquidez y estado se filtran en origen; las categorías las aplica el Scanner.
func (c *Client) FetchMarkets(ctx context.Context, filter domain.MarketFilter) ([]domain.Market, error) {
	q := url.Values{}
	if filter.ActiveOnly {
		q.Set("active", "true")
		q.Set("closed", "false")
	}
	if filter.MinVolume > 0 {
		q.Set("volume_num_min", strconv.FormatFloat(filter.MinVolume, 'f', -1, 64))
	}
	if filter.MinLiquidity > 0 {
		q.Set("liquidity_num_min", strconv.FormatFloat(filter.MinLiquidity, 'f', -1, 64))
	}

	markets, err := c.pageMarkets(ctx, q, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("gamma.FetchMarkets: %w", err)
	}
	slog.Info("markets fetched", "total", len(markets))
	return markets, nil
}

// FetchClosedMarkets devuelve hasta limit mercados binarios ya resueltos,
// del más antiguo al más reciente por fecha de cierre.
func (c *Client) FetchClosedMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	q := url.Values{}
	q.Set("closed", "true")
	q.Set("order", "id")
	q.Set("ascending", "false")

	markets, err := c.pageMarkets(ctx, q, 0)
	if err != nil {
		return nil, fmt.Errorf("gamma.FetchClosedMarkets: %w", err)
	}

	resolved := markets[:0]
	for _, m := range markets {
		if m.Resolved() && !m.EndDate.IsZero() {
			resolved = append(resolved, m)
		}
		if limit > 0 && len(resolved) >= limit {
			break
		}
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].EndDate.Before(resolved[j].EndDate)
	})
	return resolved, nil
}

// FetchMarketsByID implementa ports.MarketLookup: devuelve los mercados pedidos
// aunque ya estén cerrados. Consulta en lotes de lookupBatch IDs.
func (c *Client) FetchMarketsByID(ctx context.Context, conditionIDs []string) ([]domain.Market, error) {
	now := time.Now().UTC()
	var out []domain.Market
	for start := 0; start < len(conditionIDs); start += lookupBatch {
		end := min(start+lookupBatch, len(conditionIDs))
		q := url.Values{}
		for _, id := range conditionIDs[start:end] {
			q.Add("condition_ids", id)
		}

		var resp gammaMarketsResponse
		if err := c.get(ctx, c.gammaLimiter, c.gammaBase+gammaMarketsPath+"?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("gamma.FetchMarketsByID: %w", err)
		}
		out = append(out, mapGammaMarkets(resp, now)...)
	}
	return out, nil
}

func (c *Client) pageMarkets(ctx context.Context, q url.Values, limit int) ([]domain.Market, error) {
	var all []domain.Market
	now := time.Now().UTC()

	for page := 0; page < maxGammaPages; page++ {
		q.Set("limit", strconv.Itoa(gammaPageSize))
		q.Set("offset", strconv.Itoa(page*gammaPageSize))
		u := c.gammaBase + gammaMarketsPath + "?" + q.Encode()

		var resp gammaMarketsResponse
		if err := c.get(ctx, c.gammaLimiter, u, &resp); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		all = append(all, mapGammaMarkets(resp, now)...)

		slog.Debug("fetched markets page",
			"page", page,
			"count", len(resp),
			"total", len(all),
		)

		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}
		if len(resp) < gammaPageSize {
			break
		}
	}
	return all, nil
}
