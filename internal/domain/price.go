package domain

import "time"

// PricePoint es un precio histórico de un token.
type PricePoint struct {
	At    time.Time
	Price float64
}

// PriceAt devuelve el último precio en o antes de at. history debe estar
// ordenado por tiempo. ok es false si no hay ninguno.
func PriceAt(history []PricePoint, at time.Time) (price float64, ok bool) {
	for _, p := range history {
		if p.At.After(at) {
			break
		}
		price, ok = p.Price, true
	}
	return price, ok
}
