package domain

import (
	"fmt"
	"strings"
)

// Tier clasifica estrategias por prioridad. S es la más alta.
// El orden numérico es el orden de evaluación en el Risk Gate.
type Tier int

const (
	TierS Tier = iota
	TierA
	TierB
	TierC
)

func (t Tier) String() string {
	switch t {
	case TierS:
		return "S"
	case TierA:
		return "A"
	case TierB:
		return "B"
	case TierC:
		return "C"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier convierte "S", "A", "B" o "C" en un Tier.
func ParseTier(s string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "S":
		return TierS, nil
	case "A":
		return TierA, nil
	case "B":
		return TierB, nil
	case "C":
		return TierC, nil
	}
	return 0, fmt.Errorf("domain.ParseTier: unknown tier %q", s)
}
