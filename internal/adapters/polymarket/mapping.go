package polymarket

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// resolvedPrice es el precio a partir del cual un outcome de un mercado cerrado
// se considera ganador.
const resolvedPrice = 0.9

// mapGammaMarkets convierte los DTOs de Gamma a domain.Market.
// Los mercados no binarios o mal formados se descartan.
func mapGammaMarkets(raw []gammaMarket, at time.Time) []domain.Market {
	markets := make([]domain.Market, 0, len(raw))
	for _, r := range raw {
		m, err := mapGammaMarket(r, at)
		if err != nil {
			continue
		}
		markets = append(markets, m)
	}
	return markets
}

// mapGammaMarket convierte un gammaMarket a domain.Market con YES primero.
func mapGammaMarket(r gammaMarket, at time.Time) (domain.Market, error) {
	outcomes, err := parseStringArray(r.Outcomes)
	if err != nil {
		return domain.Market{}, fmt.Errorf("outcomes: %w", err)
	}
	ids, err := parseStringArray(r.ClobTokenIDs)
	if err != nil {
		return domain.Market{}, fmt.Errorf("clobTokenIds: %w", err)
	}
	prices, err := parseStringArray(r.OutcomePrices)
	if err != nil {
		return domain.Market{}, fmt.Errorf("outcomePrices: %w", err)
	}
	if len(outcomes) != 2 || len(ids) != 2 || len(prices) != 2 {
		return domain.Market{}, fmt.Errorf("market %s is not binary", r.ConditionID)
	}

	id := r.ConditionID
	if id == "" {
		id = r.ID
	}
	if id == "" {
		return domain.Market{}, fmt.Errorf("market without id")
	}

	m := domain.Market{
		ConditionID: id,
		Question:    r.Question,
		Slug:        r.Slug,
		Category:    r.Category,
		Volume:      number(r.Volume),
		Volume24h:   number(r.Volume24h),
		Liquidity:   number(r.Liquidity),
		Active:      r.Active,
		Closed:      r.Closed,
		EndDate:     parseDate(r.EndDate, r.EndDateISO),
		SnapshotAt:  at,
		Tokens:      make([]domain.Token, 0, 2),
	}

	for i := range outcomes {
		p, _ := strconv.ParseFloat(prices[i], 64)
		m.Tokens = append(m.Tokens, domain.Token{
			TokenID: strings.TrimSpace(ids[i]),
			Outcome: outcomes[i],
			Price:   p,
			Winner:  r.Closed && p >= resolvedPrice,
		})
	}

	// YES primero
	if strings.EqualFold(m.Tokens[1].Outcome, "yes") {
		m.Tokens[0], m.Tokens[1] = m.Tokens[1], m.Tokens[0]
	}
	return m, nil
}

// parseStringArray decodifica un array JSON serializado en un string: "[\"Yes\", \"No\"]".
func parseStringArray(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func number(n json.Number) float64 {
	v, err := n.Float64()
	if err != nil {
		return 0
	}
	return v
}

// parseDate prueba los formatos que usa Polymarket sobre cada candidato.
func parseDate(candidates ...string) time.Time {
	for _, s := range candidates {
		if s == "" {
			continue
		}
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02 15:04:05-07",
			"2006-01-02 15:04:05+00",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// mapOrderBook convierte la respuesta de /book a domain.OrderBook.
func mapOrderBook(tokenID string, r bookResponse) domain.OrderBook {
	id := r.AssetID
	if id == "" {
		id = tokenID
	}
	return domain.OrderBook{
		TokenID: id,
		Bids:    mapBookEntries(r.Bids, false),
		Asks:    mapBookEntries(r.Asks, true),
	}
}

// mapBookEntries convierte entries raw a domain.BookEntry y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		size, _ := strconv.ParseFloat(r.Size, 64)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
