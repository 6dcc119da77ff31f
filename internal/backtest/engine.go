// Package backtest reproduce series históricas de mercados a través del mismo
// Trader que usa el pipeline en vivo, cambiando solo el executor por un
// simulador de fills determinista.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyalpha/internal/pipeline"
	"github.com/alejandrodnm/polyalpha/internal/risk"
	"github.com/alejandrodnm/polyalpha/internal/scanner"
	"github.com/alejandrodnm/polyalpha/internal/strategy"
)

// State es la fase de una corrida.
type State string

const (
	StateIdle      State = "idle"
	StateReplaying State = "replaying"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
)

var (
	// ErrNotIdle: el engine ya se usó. Cada corrida necesita un Engine nuevo.
	ErrNotIdle = errors.New("backtest: engine is not idle")
	// ErrEmptySeries: no hay puntos que reproducir.
	ErrEmptySeries = errors.New("backtest: empty series")
)

const endOfReplay = "end_of_replay"

// Config son los parámetros de una corrida.
type Config struct {
	InitialBalance float64
	SlippagePct    float64
	FeePct         float64
	Limits         risk.Limits
}

// DefaultConfig devuelve $10000, 0.5% de slippage, 1bp de comisión y los
// límites de riesgo por defecto.
func DefaultConfig() Config {
	return Config{
		InitialBalance: 10000,
		SlippagePct:    DefaultSlippagePct,
		FeePct:         DefaultFeePct,
		Limits:         risk.DefaultLimits(),
	}
}

// Validate comprueba la configuración.
func (c Config) Validate() error {
	if c.InitialBalance <= 0 {
		return fmt.Errorf("backtest: initial balance must be positive, got %v", c.InitialBalance)
	}
	if c.SlippagePct < 0 || c.SlippagePct >= 1 {
		return fmt.Errorf("backtest: slippage %v outside [0,1)", c.SlippagePct)
	}
	if c.FeePct < 0 || c.FeePct >= 1 {
		return fmt.Errorf("backtest: fee %v outside [0,1)", c.FeePct)
	}
	return c.Limits.Validate()
}

// Engine ejecuta un único replay. Idle → Replaying → Complete | Failed.
// Cada Engine tiene su propio gate, cartera y simulador: varias corridas
// pueden ir en paralelo sin compartir estado.
type Engine struct {
	cfg        Config
	strategies []strategy.Strategy

	mu    sync.Mutex
	state State
	err   error
}

// New crea un engine para las estrategias dadas.
func New(cfg Config, strategies ...strategy.Strategy) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest.New: %w", err)
	}
	if len(strategies) == 0 {
		return nil, errors.New("backtest.New: at least one strategy is required")
	}
	return &Engine{cfg: cfg, strategies: strategies, state: StateIdle}, nil
}

// State devuelve la fase actual.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err devuelve el motivo del fallo si la corrida terminó en Failed.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Run reproduce la serie y devuelve el informe. Si falla, el engine queda en
// Failed y no hay informe parcial.
func (e *Engine) Run(ctx context.Context, series []Point) (*Report, error) {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return nil, ErrNotIdle
	}
	e.state = StateReplaying
	e.mu.Unlock()

	report, err := e.replay(ctx, series)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state, e.err = StateFailed, err
		slog.Error("backtest failed", "strategies", len(e.strategies), "err", err)
		return nil, fmt.Errorf("backtest.Run: %w", err)
	}
	e.state = StateComplete
	return report, nil
}

func (e *Engine) replay(ctx context.Context, series []Point) (*Report, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	points := make([]Point, len(series))
	copy(points, series)
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	SortPoints(points)
	from, to := points[0].Timestamp, points[len(points)-1].Timestamp

	reg := strategy.NewRegistry()
	ids := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
		ids = append(ids, s.ID())
	}

	gate := risk.NewGate(e.cfg.Limits, from)
	sim := NewFillSimulator(e.cfg.SlippagePct, e.cfg.FeePct)
	portfolio := pipeline.NewPortfolio(e.cfg.InitialBalance)
	trader, err := pipeline.NewTrader(pipeline.TraderConfig{
		Registry:  reg,
		Gate:      gate,
		Executor:  sim,
		Portfolio: portfolio,
	})
	if err != nil {
		return nil, err
	}
	memory := scanner.NewPriceMemory()

	report := &Report{
		RunID:          e.runID(ids, points),
		Strategies:     ids,
		From:           from,
		To:             to,
		Points:         len(points),
		InitialBalance: e.cfg.InitialBalance,
		Equity:         []EquityPoint{{At: from, Value: e.cfg.InitialBalance}},
	}

	slog.Info("backtest started",
		"run_id", report.RunID,
		"strategies", strings.Join(ids, ","),
		"points", len(points),
		"from", from.Format(time.RFC3339),
		"to", to.Format(time.RFC3339),
	)

	for _, b := range batches(points) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim.advance(b.at)
		step, err := trader.Step(ctx, memory.Annotate(b.markets), b.at)
		if err != nil {
			return nil, err
		}
		report.Signals += step.Signals
		report.Rejected += len(step.Rejections)
		report.Orders = append(report.Orders, step.Orders...)
		report.Closed = append(report.Closed, step.Closed...)
		report.Equity = append(report.Equity, EquityPoint{At: b.at, Value: portfolio.Equity()})
	}

	// Lo que siga abierto se cierra al último precio marcado.
	for _, pos := range portfolio.Positions() {
		trade, ok := portfolio.Close(pos.MarketID, pos.CurrentPrice, to, endOfReplay)
		if !ok {
			continue
		}
		if trade.RealizedPnL < 0 {
			gate.RecordLoss(-trade.RealizedPnL)
		}
		report.Closed = append(report.Closed, trade)
	}

	report.FinalBalance = portfolio.Cash()
	report.compute()

	slog.Info("backtest complete",
		"run_id", report.RunID,
		"trades", report.Trades(),
		"final_balance", fmt.Sprintf("%.2f", report.FinalBalance),
		"win_rate", fmt.Sprintf("%.2f", report.WinRate),
		"sharpe", fmt.Sprintf("%.2f", report.Sharpe),
		"max_drawdown", fmt.Sprintf("%.4f", report.MaxDrawdown),
	)
	return report, nil
}

// runID deriva un ID estable de los parámetros y la serie: la misma corrida
// siempre tiene el mismo ID.
func (e *Engine) runID(ids []string, points []Point) string {
	key := fmt.Sprintf("%s|%.4f|%.6f|%.6f|%s|%s|%d",
		strings.Join(ids, ","),
		e.cfg.InitialBalance, e.cfg.SlippagePct, e.cfg.FeePct,
		points[0].Timestamp.Format(time.RFC3339Nano),
		points[len(points)-1].Timestamp.Format(time.RFC3339Nano),
		len(points),
	)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
