// Package risk contains the Risk Gate: the only component allowed to approve
// a signal for execution. It owns the daily-loss state and nothing else.
package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// edgeEpsilon absorbs float noise when edge equals MinEdge exactly (0.70-0.65).
const edgeEpsilon = 1e-9

// Reason identifies which check rejected a signal.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonInvalidSignal   Reason = "invalid_signal"
	ReasonEdgeBelowMin    Reason = "edge_below_min"
	ReasonMaxOpen         Reason = "max_open_positions"
	ReasonDailyLoss       Reason = "daily_loss_limit"
	ReasonDuplicateMarket Reason = "duplicate_market"
)

// Limits are the configured hard limits.
type Limits struct {
	MinEdge          float64
	MaxOpenPositions int
	MaxDailyLossPct  float64
	MaxPositionPct   float64
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{
		MinEdge:          0.05,
		MaxOpenPositions: 20,
		MaxDailyLossPct:  0.05,
		MaxPositionPct:   0.10,
	}
}

// Validate checks that every limit is usable.
func (l Limits) Validate() error {
	if l.MinEdge < 0 || l.MinEdge >= 1 {
		return fmt.Errorf("risk: min edge %v outside [0,1)", l.MinEdge)
	}
	if l.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk: max open positions must be positive, got %d", l.MaxOpenPositions)
	}
	if l.MaxDailyLossPct <= 0 || l.MaxDailyLossPct > 1 {
		return fmt.Errorf("risk: max daily loss pct %v outside (0,1]", l.MaxDailyLossPct)
	}
	if l.MaxPositionPct <= 0 || l.MaxPositionPct > 1 {
		return fmt.Errorf("risk: max position pct %v outside (0,1]", l.MaxPositionPct)
	}
	return nil
}

// Decision is the outcome of a gate check. A rejection is not an error.
type Decision struct {
	Allowed bool
	Reason  Reason
	Detail  string
}

// State is the mutable part of the gate.
type State struct {
	DailyLoss float64
	DayStart  time.Time // start of the loss window: last manual reset or UTC midnight
}

// Gate evaluates signals against the limits. Safe for concurrent use; all
// state changes go through RecordLoss, ResetDaily and RollDay.
type Gate struct {
	mu     sync.Mutex
	limits Limits
	state  State
}

// NewGate creates a gate whose trading day starts at the UTC day of now.
func NewGate(limits Limits, now time.Time) *Gate {
	return &Gate{
		limits: limits,
		state:  State{DayStart: dayOf(now)},
	}
}

// Limits returns the configured limits.
func (g *Gate) Limits() Limits {
	return g.limits
}

// State returns a snapshot of the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// CanTrade reports whether the signal passes every check.
func (g *Gate) CanTrade(sig domain.Signal, bankroll float64, open []domain.Position) bool {
	return g.Check(sig, bankroll, open).Allowed
}

// Check runs, in order: minimum edge, open-position count, daily loss, and
// duplicate market. It stops at the first failure.
func (g *Gate) Check(sig domain.Signal, bankroll float64, open []domain.Position) Decision {
	if err := sig.Validate(); err != nil {
		return reject(ReasonInvalidSignal, err.Error())
	}

	edge := sig.Edge()
	if edge+edgeEpsilon < g.limits.MinEdge {
		return reject(ReasonEdgeBelowMin, fmt.Sprintf("edge %.4f < %.4f", edge, g.limits.MinEdge))
	}

	if len(open) >= g.limits.MaxOpenPositions {
		return reject(ReasonMaxOpen, fmt.Sprintf("%d open >= %d", len(open), g.limits.MaxOpenPositions))
	}

	g.mu.Lock()
	loss := g.state.DailyLoss
	g.mu.Unlock()
	limit := bankroll * g.limits.MaxDailyLossPct
	if loss >= limit {
		return reject(ReasonDailyLoss, fmt.Sprintf("daily loss %.2f >= %.2f", loss, limit))
	}

	for _, p := range open {
		if p.MarketID == sig.MarketID {
			return reject(ReasonDuplicateMarket, "position already open by "+p.StrategyID)
		}
	}

	return Decision{Allowed: true}
}

// RecordLoss adds a realized loss (positive amount) to the daily total.
// Non-positive or NaN amounts are ignored.
func (g *Gate) RecordLoss(amount float64) {
	if math.IsNaN(amount) || amount <= 0 {
		return
	}
	g.mu.Lock()
	g.state.DailyLoss += amount
	g.mu.Unlock()
}

// ResetDaily clears the daily loss and starts a new loss window at now.
// A now earlier than the current window start leaves DayStart unchanged.
func (g *Gate) ResetDaily(now time.Time) {
	now = now.UTC()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.DailyLoss = 0
	if now.After(g.state.DayStart) {
		g.state.DayStart = now
	}
}

// RollDay resets the daily loss when now falls on a later UTC day than the
// current one. Returns true if a reset happened.
func (g *Gate) RollDay(now time.Time) bool {
	day := dayOf(now)
	g.mu.Lock()
	defer g.mu.Unlock()
	if !day.After(g.state.DayStart) {
		return false
	}
	g.state.DayStart = day
	g.state.DailyLoss = 0
	return true
}

// MaxPositionSize returns the largest order size in shares allowed at price.
func (g *Gate) MaxPositionSize(bankroll, price float64) float64 {
	if price <= 0 || bankroll <= 0 {
		return 0
	}
	return bankroll * g.limits.MaxPositionPct / price
}

func reject(r Reason, detail string) Decision {
	return Decision{Reason: r, Detail: detail}
}

func dayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
