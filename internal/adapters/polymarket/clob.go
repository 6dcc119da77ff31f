package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

const (
	bookPath          = "/book"
	pricesHistoryPath = "/prices-history"
)

// FetchOrderBook implementa ports.BookProvider sobre GET /book.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	u := c.clobBase + bookPath + "?token_id=" + url.QueryEscape(tokenID)

	var resp bookResponse
	if err := c.get(ctx, c.booksLimiter, u, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob.FetchOrderBook %s: %w", tokenID, err)
	}
	return mapOrderBook(tokenID, resp), nil
}

// FetchPriceHistory devuelve la serie de precios completa de un token,
// ordenada por tiempo. fidelity es la resolución en minutos.
func (c *Client) FetchPriceHistory(ctx context.Context, tokenID string, fidelity int) ([]domain.PricePoint, error) {
	if fidelity <= 0 {
		fidelity = 1
	}
	q := url.Values{}
	q.Set("market", tokenID)
	q.Set("interval", "max")
	q.Set("fidelity", strconv.Itoa(fidelity))

	var resp priceHistoryResponse
	if err := c.get(ctx, c.clobLimiter, c.clobBase+pricesHistoryPath+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("clob.FetchPriceHistory %s: %w", tokenID, err)
	}

	out := make([]domain.PricePoint, 0, len(resp.History))
	for _, p := range resp.History {
		if p.P <= 0 || p.P >= 1 {
			continue
		}
		out = append(out, domain.PricePoint{At: time.Unix(p.T, 0).UTC(), Price: p.P})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}
