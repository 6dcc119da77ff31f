package strategy

import "strings"

// Params son los parámetros numéricos de una estrategia, tal como vienen de la config.
type Params map[string]float64

// Float devuelve params[key] o def si no está definido.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// containsAny indica si text contiene alguna de las keywords (case-insensitive).
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
