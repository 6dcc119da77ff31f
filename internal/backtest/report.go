package backtest

import (
	"math"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// Los retornos por paso se anualizan con 252 sesiones, los de balance con 365 días.
const (
	periodsPerYear = 252
	daysPerYear    = 365
)

// EquityPoint es el valor de la cartera tras procesar un timestamp.
type EquityPoint struct {
	At    time.Time
	Value float64
}

// Report es el resultado de un replay completo.
type Report struct {
	RunID          string
	Strategies     []string
	From           time.Time
	To             time.Time
	Points         int
	InitialBalance float64
	FinalBalance   float64

	Signals  int
	Rejected int
	Orders   []domain.Order
	Closed   []domain.ClosedTrade
	Equity   []EquityPoint

	TotalReturn      float64
	WinRate          float64
	AnnualizedReturn float64
	Sharpe           float64
	MaxDrawdown      float64
}

// Trades devuelve el número de órdenes ejecutadas.
func (r *Report) Trades() int { return len(r.Orders) }

// Summary devuelve las métricas que se persisten en el journal.
func (r *Report) Summary() domain.BacktestSummary {
	id := ""
	if len(r.Strategies) == 1 {
		id = r.Strategies[0]
	} else if len(r.Strategies) > 1 {
		id = "multi"
	}
	return domain.BacktestSummary{
		RunID:            r.RunID,
		StrategyID:       id,
		From:             r.From,
		To:               r.To,
		Points:           r.Points,
		InitialBalance:   r.InitialBalance,
		FinalBalance:     r.FinalBalance,
		Trades:           r.Trades(),
		WinRate:          r.WinRate,
		AnnualizedReturn: r.AnnualizedReturn,
		Sharpe:           r.Sharpe,
		MaxDrawdown:      r.MaxDrawdown,
	}
}

func (r *Report) compute() {
	values := make([]float64, len(r.Equity))
	for i, p := range r.Equity {
		values[i] = p.Value
	}
	if r.InitialBalance > 0 {
		r.TotalReturn = r.FinalBalance/r.InitialBalance - 1
	}
	r.WinRate = WinRate(r.Closed)
	r.AnnualizedReturn = AnnualizedReturn(r.InitialBalance, r.FinalBalance, r.To.Sub(r.From))
	r.Sharpe = Sharpe(values)
	r.MaxDrawdown = MaxDrawdown(values)
}

// WinRate es la fracción de trades cerrados con P&L positivo.
func WinRate(trades []domain.ClosedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.Won() {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// AnnualizedReturn compone el retorno total a un año: (final/initial)^(365/días) - 1.
// Periodos de menos de un día cuentan como un día.
func AnnualizedReturn(initial, final float64, span time.Duration) float64 {
	if initial <= 0 {
		return 0
	}
	if final <= 0 {
		return -1
	}
	days := math.Max(span.Hours()/24, 1)
	return math.Pow(final/initial, daysPerYear/days) - 1
}

// Sharpe es media/desviación de los retornos por paso de la curva de equity,
// anualizado por √252. Devuelve 0 con menos de dos retornos o sin varianza.
func Sharpe(equity []float64) float64 {
	var returns []float64
	for i := 1; i < len(equity); i++ {
		if equity[i-1] > 0 {
			returns = append(returns, equity[i]/equity[i-1]-1)
		}
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)
	if std < 1e-12 {
		return 0
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// MaxDrawdown es la mayor caída relativa desde un máximo previo de la curva.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	var maxDD float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			maxDD = math.Max(maxDD, (peak-v)/peak)
		}
	}
	return maxDD
}
