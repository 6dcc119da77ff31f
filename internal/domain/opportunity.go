package domain

import "time"

// Opportunity es un mercado candidato que una estrategia marcó para análisis.
// No implica edge: eso lo decide Analyze.
type Opportunity struct {
	Market      Market // snapshot completo en el momento del scan
	MarketPrice float64
	Category    string
	Metadata    map[string]any
	ObservedAt  time.Time
}

// MarketID devuelve el condition ID del mercado de la oportunidad.
func (o Opportunity) MarketID() string {
	return o.Market.ConditionID
}

// Meta devuelve un valor float de Metadata, o def si no existe.
func (o Opportunity) Meta(key string, def float64) float64 {
	if v, ok := o.Metadata[key].(float64); ok {
		return v
	}
	return def
}
