// Package kelly implementa el sizing por Kelly fraccional para mercados binarios.
//
// Para comprar un token a precio m con probabilidad estimada p:
//
//	fullKelly   = max(0, (p - m) / (1 - m))
//	optimalSize = min(fullKelly × fraction, maxFraction)
//	betAmount   = bankroll × optimalSize
package kelly

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

const (
	DefaultFraction    = 0.25
	DefaultMaxFraction = 0.06
)

// Sizer aplica Kelly fraccional con un tope absoluto.
type Sizer struct {
	Fraction    float64 // (0,1]
	MaxFraction float64 // tope de bankroll por posición, (0,1]
}

// Default devuelve el sizer con los valores por defecto.
func Default() Sizer {
	return Sizer{Fraction: DefaultFraction, MaxFraction: DefaultMaxFraction}
}

// New valida y construye un Sizer.
func New(fraction, maxFraction float64) (Sizer, error) {
	s := Sizer{Fraction: fraction, MaxFraction: maxFraction}
	if err := s.Validate(); err != nil {
		return Sizer{}, err
	}
	return s, nil
}

// Validate comprueba que fraction y maxFraction estén en (0,1].
func (s Sizer) Validate() error {
	if math.IsNaN(s.Fraction) || s.Fraction <= 0 || s.Fraction > 1 {
		return fmt.Errorf("kelly: fraction %v outside (0,1]", s.Fraction)
	}
	if math.IsNaN(s.MaxFraction) || s.MaxFraction <= 0 || s.MaxFraction > 1 {
		return fmt.Errorf("kelly: max fraction %v outside (0,1]", s.MaxFraction)
	}
	return nil
}

// FullKelly devuelve la fracción óptima de bankroll sin escalar.
// Nunca es negativa: sin edge no hay apuesta.
func FullKelly(p, m float64) (float64, error) {
	if err := checkInputs(p, m); err != nil {
		return 0, err
	}
	return math.Max(0, (p-m)/(1-m)), nil
}

// HalfKelly es FullKelly × 0.5.
func HalfKelly(p, m float64) (float64, error) {
	f, err := FullKelly(p, m)
	return f * 0.5, err
}

// OptimalSize devuelve la fracción de bankroll a arriesgar, siempre ≤ MaxFraction.
func (s Sizer) OptimalSize(p, m float64) (float64, error) {
	f, err := FullKelly(p, m)
	if err != nil {
		return 0, err
	}
	return math.Min(f*s.Fraction, s.MaxFraction), nil
}

// BetAmount devuelve el importe en USDC a arriesgar.
func (s Sizer) BetAmount(bankroll, p, m float64) (float64, error) {
	size, err := s.OptimalSize(p, m)
	if err != nil {
		return 0, err
	}
	if bankroll <= 0 {
		return 0, nil
	}
	return bankroll * size, nil
}

func checkInputs(p, m float64) error {
	if err := domain.CheckProbability("probability", p); err != nil {
		return fmt.Errorf("kelly: %w", err)
	}
	if err := domain.CheckProbability("price", m); err != nil {
		return fmt.Errorf("kelly: %w", err)
	}
	return nil
}
