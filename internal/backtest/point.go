package backtest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// Point es una observación histórica: el snapshot de un mercado en Timestamp
// y el precio YES observado.
type Point struct {
	Timestamp time.Time
	Market    domain.Market
	Price     float64
}

// Validate comprueba que el punto se pueda reproducir.
// Los precios 0 y 1 son válidos: aparecen en mercados resueltos.
func (p Point) Validate() error {
	if p.Timestamp.IsZero() {
		return fmt.Errorf("backtest: point for %q without timestamp", p.Market.ConditionID)
	}
	if p.Market.ConditionID == "" {
		return fmt.Errorf("backtest: point at %s without market id", p.Timestamp.Format(time.RFC3339))
	}
	if math.IsNaN(p.Price) || p.Price < 0 || p.Price > 1 {
		return fmt.Errorf("%w: %s yes price %v outside [0,1]", domain.ErrInvalidPrice, p.Market.ConditionID, p.Price)
	}
	return nil
}

// snapshot devuelve el mercado con el precio del punto aplicado al token YES
// y SnapshotAt fijado al timestamp.
func (p Point) snapshot() domain.Market {
	m := p.Market.Clone()
	m.SnapshotAt = p.Timestamp
	yes := m.YesToken().TokenID
	for i, t := range m.Tokens {
		switch {
		case t.TokenID == yes:
			m.Tokens[i].Price = p.Price
		case t.Price <= 0 && !m.Resolved():
			m.Tokens[i].Price = 1 - p.Price
		}
	}
	return m
}

// SortPoints ordena la serie por timestamp y, a igual timestamp, por mercado.
// Es estable: dos puntos idénticos conservan su orden de entrada.
func SortPoints(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Market.ConditionID < b.Market.ConditionID
	})
}

// batch son los snapshots que comparten timestamp.
type batch struct {
	at      time.Time
	markets []domain.Market
}

// batches agrupa una serie ya ordenada por timestamp. Si un mercado aparece
// dos veces en el mismo instante gana el último.
func batches(points []Point) []batch {
	var out []batch
	for i := 0; i < len(points); {
		at := points[i].Timestamp
		idx := make(map[string]int)
		var markets []domain.Market
		for ; i < len(points) && points[i].Timestamp.Equal(at); i++ {
			m := points[i].snapshot()
			if k, ok := idx[m.ConditionID]; ok {
				markets[k] = m
				continue
			}
			idx[m.ConditionID] = len(markets)
			markets = append(markets, m)
		}
		out = append(out, batch{at: at, markets: markets})
	}
	return out
}

// binaryMarket construye un mercado binario con los token IDs {id}_yes y {id}_no,
// la convención de las series históricas.
func binaryMarket(id, question, category string, yes, no float64) domain.Market {
	return domain.Market{
		ConditionID: id,
		Question:    question,
		Category:    category,
		Active:      true,
		Tokens: []domain.Token{
			{TokenID: id + "_yes", Outcome: "Yes", Price: yes},
			{TokenID: id + "_no", Outcome: "No", Price: no},
		},
	}
}

// resolve marca el mercado como cerrado con el outcome ganador.
func resolve(m *domain.Market, yesWon bool) {
	m.Active = false
	m.Closed = true
	for i, t := range m.Tokens {
		isYes := strings.EqualFold(t.Outcome, "yes")
		m.Tokens[i].Winner = isYes == yesWon
		if m.Tokens[i].Winner {
			m.Tokens[i].Price = 1
		} else {
			m.Tokens[i].Price = 0
		}
	}
}
