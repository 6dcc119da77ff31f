package domain

import "time"

// EventKind identifica el tipo de notificación.
type EventKind string

const (
	EventOrderPlaced    EventKind = "order_placed"
	EventOrderRejected  EventKind = "order_rejected"
	EventPositionClosed EventKind = "position_closed"
	EventCycleFailed    EventKind = "cycle_failed"
	EventDailySummary   EventKind = "daily_summary"
)

// Event es el payload que reciben los notifiers.
type Event struct {
	Kind    EventKind
	Message string
	Fields  map[string]any
	At      time.Time
}

// CycleSummary resume un ciclo del pipeline para el journal.
type CycleSummary struct {
	StartedAt time.Time
	Duration  time.Duration
	Markets   int
	Signals   int
	Accepted  int
	Rejected  int
	Orders    int
	Err       string
}

// BacktestSummary son las métricas persistidas de una corrida de backtest.
type BacktestSummary struct {
	RunID            string
	StrategyID       string
	From             time.Time
	To               time.Time
	Points           int
	InitialBalance   float64
	FinalBalance     float64
	Trades           int
	WinRate          float64
	AnnualizedReturn float64
	Sharpe           float64
	MaxDrawdown      float64
}
