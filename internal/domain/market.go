package domain

import (
	"strings"
	"time"
)

// Market es un snapshot inmutable de un mercado de predicción binario.
// Cada ciclo de scan produce snapshots nuevos; nunca se mutan en sitio.
type Market struct {
	ConditionID string
	Question    string
	Slug        string
	Category    string
	EndDate     time.Time // fecha de resolución (zero si se desconoce)
	Volume      float64   // volumen total en USDC
	Volume24h   float64
	Liquidity   float64
	Tokens      []Token // ordenados: YES primero, NO después
	Active      bool
	Closed      bool
	SnapshotAt  time.Time // momento en que se observó el snapshot
}

// Token es uno de los outcomes del mercado.
type Token struct {
	TokenID   string
	Outcome   string  // "Yes" | "No"
	Price     float64 // último precio observado
	PrevPrice float64 // precio del snapshot anterior, 0 si no hay historia
	Winner    bool    // true solo en mercados resueltos
}

// Clone devuelve una copia profunda del snapshot.
func (m Market) Clone() Market {
	c := m
	c.Tokens = make([]Token, len(m.Tokens))
	copy(c.Tokens, m.Tokens)
	return c
}

// Tradable indica si el mercado admite órdenes nuevas.
func (m Market) Tradable() bool {
	return m.Active && !m.Closed
}

// YesToken devuelve el token YES del mercado.
func (m Market) YesToken() Token {
	return m.outcome("yes", 0)
}

// NoToken devuelve el token NO del mercado.
func (m Market) NoToken() Token {
	return m.outcome("no", 1)
}

func (m Market) outcome(name string, fallback int) Token {
	for _, t := range m.Tokens {
		if strings.EqualFold(t.Outcome, name) {
			return t
		}
	}
	if fallback < len(m.Tokens) {
		return m.Tokens[fallback]
	}
	return Token{}
}

// Token busca un token por su ID.
func (m Market) Token(tokenID string) (Token, bool) {
	for _, t := range m.Tokens {
		if t.TokenID == tokenID {
			return t, true
		}
	}
	return Token{}, false
}

// Resolved indica si algún outcome fue marcado como ganador.
func (m Market) Resolved() bool {
	for _, t := range m.Tokens {
		if t.Winner {
			return true
		}
	}
	return false
}

// Settlement devuelve el valor de liquidación del token (1 ganador, 0 perdedor).
// ok es false si el mercado todavía no se resolvió.
func (m Market) Settlement(tokenID string) (value float64, ok bool) {
	if !m.Resolved() {
		return 0, false
	}
	t, found := m.Token(tokenID)
	if !found {
		return 0, false
	}
	if t.Winner {
		return 1, true
	}
	return 0, true
}

// DaysToResolution devuelve los días entre ref y EndDate.
// Devuelve -1 si EndDate no está definido.
func (m Market) DaysToResolution(ref time.Time) float64 {
	if m.EndDate.IsZero() {
		return -1
	}
	d := m.EndDate.Sub(ref).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// AsOf devuelve el instante de referencia del snapshot: SnapshotAt si existe,
// o fallback en caso contrario.
func (m Market) AsOf(fallback time.Time) time.Time {
	if m.SnapshotAt.IsZero() {
		return fallback
	}
	return m.SnapshotAt
}

// TruncateQuestion devuelve la pregunta del mercado truncada a maxLen caracteres.
// Si la pregunta está vacía usa los primeros caracteres del conditionID como fallback.
func TruncateQuestion(question, conditionID string, maxLen int) string {
	q := question
	if q == "" {
		if len(conditionID) > 20 {
			q = conditionID[:20] + "..."
		} else {
			q = conditionID
		}
	}
	if len(q) > maxLen {
		q = q[:maxLen-3] + "..."
	}
	return q
}

// MarketFilter son los criterios que el Scanner aplica a los mercados candidatos.
type MarketFilter struct {
	MinVolume    float64
	MinLiquidity float64
	ActiveOnly   bool
	Categories   []string // vacío = todas
	Limit        int      // 0 = sin límite (solo lo usa el provider)
}

// Match indica si el mercado pasa el filtro.
func (f MarketFilter) Match(m Market) bool {
	if f.ActiveOnly && !m.Tradable() {
		return false
	}
	if m.Volume < f.MinVolume {
		return false
	}
	if m.Liquidity < f.MinLiquidity {
		return false
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if strings.EqualFold(c, m.Category) {
			return true
		}
	}
	return false
}
