package risk_test

import (
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func signal(market string, p, m float64) domain.Signal {
	return domain.Signal{
		MarketID:      market,
		TokenID:       market + "_yes",
		Side:          domain.SideBuy,
		EstimatedProb: p,
		MarketPrice:   m,
		Confidence:    0.5,
		StrategyID:    "test",
	}
}

func positions(n int) []domain.Position {
	out := make([]domain.Position, n)
	for i := range out {
		out[i] = domain.Position{MarketID: string(rune('a' + i)), StrategyID: "other"}
	}
	return out
}

func TestGate_RejectsLowEdge(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	d := g.Check(signal("m1", 0.55, 0.52), 10000, nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, risk.ReasonEdgeBelowMin, d.Reason)
}

func TestGate_EdgeExactlyAtMinimumPasses(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	assert.True(t, g.CanTrade(signal("m1", 0.70, 0.65), 10000, nil))
}

func TestGate_MaxOpenPositions(t *testing.T) {
	limits := risk.DefaultLimits()
	limits.MaxOpenPositions = 3
	g := risk.NewGate(limits, t0)

	assert.True(t, g.CanTrade(signal("new", 0.8, 0.5), 10000, positions(2)))
	d := g.Check(signal("new", 0.8, 0.5), 10000, positions(3))
	assert.Equal(t, risk.ReasonMaxOpen, d.Reason)
}

func TestGate_DailyLossBlocksUntilReset(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	sig := signal("m1", 0.8, 0.5)

	g.RecordLoss(499)
	assert.True(t, g.CanTrade(sig, 10000, nil))

	g.RecordLoss(1)
	d := g.Check(sig, 10000, nil)
	assert.Equal(t, risk.ReasonDailyLoss, d.Reason)
	assert.False(t, g.CanTrade(sig, 10000, nil))

	g.ResetDaily(t0.Add(2 * time.Hour))
	assert.True(t, g.CanTrade(sig, 10000, nil))
}

func TestGate_ResetDailyAdvancesDayStart(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	g.RecordLoss(600)

	resetAt := t0.Add(3 * time.Hour)
	g.ResetDaily(resetAt)
	st := g.State()
	assert.Equal(t, 0.0, st.DailyLoss)
	assert.Equal(t, resetAt, st.DayStart)

	// Un reset con una hora anterior no retrocede la ventana.
	g.ResetDaily(t0)
	assert.Equal(t, resetAt, g.State().DayStart)

	// Tras un reset manual, RollDay solo actúa al cambiar de día UTC.
	g.RecordLoss(100)
	assert.False(t, g.RollDay(t0.Add(5*time.Hour)))
	assert.InDelta(t, 100, g.State().DailyLoss, 1e-9)
	assert.True(t, g.RollDay(t0.Add(24*time.Hour)))
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), g.State().DayStart)
}

func TestGate_RecordLossIgnoresNonPositive(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	g.RecordLoss(-50)
	g.RecordLoss(0)
	assert.Equal(t, 0.0, g.State().DailyLoss)
}

func TestGate_RollDay(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	g.RecordLoss(600)

	assert.False(t, g.RollDay(t0.Add(10*time.Hour)), "same UTC day")
	assert.InDelta(t, 600, g.State().DailyLoss, 1e-9)

	assert.True(t, g.RollDay(t0.Add(15*time.Hour)))
	st := g.State()
	assert.Equal(t, 0.0, st.DailyLoss)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), st.DayStart)
}

func TestGate_DuplicateMarket(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	open := []domain.Position{{MarketID: "m1", StrategyID: "s03"}}
	d := g.Check(signal("m1", 0.8, 0.5), 10000, open)
	assert.Equal(t, risk.ReasonDuplicateMarket, d.Reason)
	assert.True(t, g.CanTrade(signal("m2", 0.8, 0.5), 10000, open))
}

func TestGate_CheckOrder(t *testing.T) {
	limits := risk.DefaultLimits()
	limits.MaxOpenPositions = 1
	g := risk.NewGate(limits, t0)
	g.RecordLoss(10000)

	// Todo falla: el motivo debe ser el primero en el orden de evaluación.
	open := []domain.Position{{MarketID: "m1"}}
	assert.Equal(t, risk.ReasonEdgeBelowMin, g.Check(signal("m1", 0.51, 0.50), 10000, open).Reason)
	assert.Equal(t, risk.ReasonMaxOpen, g.Check(signal("m1", 0.9, 0.50), 10000, open).Reason)
	assert.Equal(t, risk.ReasonDailyLoss, g.Check(signal("m1", 0.9, 0.50), 10000, nil).Reason)
}

func TestGate_InvalidSignal(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	d := g.Check(signal("m1", 0.9, 1.0), 10000, nil)
	assert.Equal(t, risk.ReasonInvalidSignal, d.Reason)
}

func TestGate_MaxPositionSize(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	assert.InDelta(t, 2000.0, g.MaxPositionSize(10000, 0.5), 1e-9)
	assert.Equal(t, 0.0, g.MaxPositionSize(10000, 0))
}

func TestGate_ConcurrentRecordLoss(t *testing.T) {
	g := risk.NewGate(risk.DefaultLimits(), t0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.RecordLoss(1)
			_ = g.CanTrade(signal("m", 0.9, 0.5), 10000, nil)
		}()
	}
	wg.Wait()
	assert.InDelta(t, 100.0, g.State().DailyLoss, 1e-9)
}

func TestLimits_Validate(t *testing.T) {
	require.NoError(t, risk.DefaultLimits().Validate())
	bad := risk.DefaultLimits()
	bad.MaxOpenPositions = 0
	assert.Error(t, bad.Validate())
}
