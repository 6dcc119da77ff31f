package domain

import (
	"fmt"
	"math"
)

// Side es la dirección de una orden.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal es una recomendación de trade con probabilidad estimada.
// El edge siempre se deriva de EstimatedProb y MarketPrice.
type Signal struct {
	MarketID      string
	TokenID       string
	Side          Side
	EstimatedProb float64
	MarketPrice   float64
	Confidence    float64 // informativo: no interviene en sizing ni en el gate
	StrategyID    string
	Metadata      map[string]any
}

// Edge devuelve EstimatedProb - MarketPrice.
func (s Signal) Edge() float64 {
	return s.EstimatedProb - s.MarketPrice
}

// Validate comprueba que probabilidad y precio estén en (0,1).
func (s Signal) Validate() error {
	if err := CheckProbability("estimated_prob", s.EstimatedProb); err != nil {
		return err
	}
	if err := CheckProbability("market_price", s.MarketPrice); err != nil {
		return err
	}
	if s.Confidence < 0 || s.Confidence > 1 || math.IsNaN(s.Confidence) {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidPrice, s.Confidence)
	}
	if s.Side != SideBuy && s.Side != SideSell {
		return fmt.Errorf("domain.Signal: unknown side %q", s.Side)
	}
	return nil
}

// CheckProbability devuelve ErrInvalidPrice si v no está en el intervalo abierto (0,1).
func CheckProbability(name string, v float64) error {
	if math.IsNaN(v) || v <= 0 || v >= 1 {
		return fmt.Errorf("%w: %s %v outside (0,1)", ErrInvalidPrice, name, v)
	}
	return nil
}
