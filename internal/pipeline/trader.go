// Package pipeline convierte snapshots de mercado en órdenes: reparte el trabajo
// entre estrategias, ordena los signals y los pasa uno a uno por el Risk Gate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/ports"
	"github.com/alejandrodnm/polyalpha/internal/risk"
	"github.com/alejandrodnm/polyalpha/internal/strategy"
)

const (
	// DefaultStrategyTimeout acota Scan + Analyze de una estrategia por ciclo.
	DefaultStrategyTimeout = 10 * time.Second

	// Los shares se redondean hacia abajo a 2 decimales, como acepta el CLOB.
	sizeScale = 100
)

// Rejection es un signal que no llegó a orden.
type Rejection struct {
	Signal domain.Signal
	Reason risk.Reason
	Detail string
}

// StepResult es lo producido por un paso del Trader.
type StepResult struct {
	Markets    int
	Signals    int
	Orders     []domain.Order
	Closed     []domain.ClosedTrade
	Rejections []Rejection
	Failed     int // órdenes que el port rechazó o no pudo enviar
}

// TraderConfig agrupa las dependencias del Trader.
type TraderConfig struct {
	Registry        *strategy.Registry
	Gate            *risk.Gate
	Executor        ports.OrderExecutor
	Portfolio       *Portfolio
	Notifier        ports.Notifier // nil = sin notificaciones
	Journal         ports.Journal  // nil = sin persistencia
	StrategyTimeout time.Duration  // <= 0 = sin timeout por estrategia
}

// Trader ejecuta el paso señal→orden sobre un conjunto de snapshots.
// No es reentrante: un solo llamador a Step a la vez.
type Trader struct {
	registry  *strategy.Registry
	gate      *risk.Gate
	exec      ports.OrderExecutor
	portfolio *Portfolio
	notifier  ports.Notifier
	journal   ports.Journal
	timeout   time.Duration
}

// NewTrader crea un Trader.
func NewTrader(cfg TraderConfig) (*Trader, error) {
	if cfg.Registry == nil || cfg.Gate == nil || cfg.Executor == nil || cfg.Portfolio == nil {
		return nil, errors.New("pipeline.NewTrader: registry, gate, executor and portfolio are required")
	}
	n := cfg.Notifier
	if n == nil {
		n = nopNotifier{}
	}
	return &Trader{
		registry:  cfg.Registry,
		gate:      cfg.Gate,
		exec:      cfg.Executor,
		portfolio: cfg.Portfolio,
		notifier:  n,
		journal:   cfg.Journal,
		timeout:   cfg.StrategyTimeout,
	}, nil
}

// Portfolio devuelve la cartera que gestiona el Trader.
func (t *Trader) Portfolio() *Portfolio { return t.portfolio }

// Gate devuelve el Risk Gate del Trader.
func (t *Trader) Gate() *risk.Gate { return t.gate }

// Step procesa un snapshot completo:
//  1. lanza todas las estrategias habilitadas en paralelo,
//  2. rueda el día del gate y liquida o marca las posiciones abiertas,
//  3. ordena los signals por tier, edge desc, estrategia y mercado,
//  4. los pasa uno a uno por el gate y ejecuta los aprobados.
//
// Si ctx se cancela durante el paso 1 el ciclo no cambia nada: ni cartera ni
// estado del gate. Una cancelación posterior solo detiene las órdenes pendientes.
func (t *Trader) Step(ctx context.Context, markets []domain.Market, now time.Time) (StepResult, error) {
	res := StepResult{Markets: len(markets)}

	candidates, err := t.collect(ctx, markets)
	res.Signals = len(candidates)
	if err != nil {
		return res, fmt.Errorf("pipeline.Step: collect: %w", err)
	}

	if t.gate.RollDay(now) {
		t.notifier.Notify(ctx, domain.Event{
			Kind:    domain.EventDailySummary,
			Message: "new trading day",
			Fields: map[string]any{
				"equity":    t.portfolio.Equity(),
				"realized":  t.portfolio.Realized(),
				"positions": len(t.portfolio.Positions()),
			},
			At: now,
		})
	}

	res.Closed = t.settle(ctx, markets, now)

	sortCandidates(candidates)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("pipeline.Step: commit: %w", err)
		}
		t.commit(ctx, c, now, &res)
	}
	return res, nil
}

// settle liquida posiciones de mercados resueltos o cerrados y marca el resto.
func (t *Trader) settle(ctx context.Context, markets []domain.Market, now time.Time) []domain.ClosedTrade {
	byID := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		byID[m.ConditionID] = m
	}

	var closed []domain.ClosedTrade
	for _, pos := range t.portfolio.Positions() {
		m, ok := byID[pos.MarketID]
		if !ok {
			continue
		}

		var (
			exit   float64
			reason string
		)
		if v, ok := m.Settlement(pos.TokenID); ok {
			exit, reason = v, "resolved"
		} else if m.Closed {
			tok, _ := m.Token(pos.TokenID)
			exit, reason = tok.Price, "closed"
		} else {
			if tok, ok := m.Token(pos.TokenID); ok {
				t.portfolio.Mark(pos.MarketID, tok.Price)
			}
			continue
		}

		trade, ok := t.portfolio.Close(pos.MarketID, exit, now, reason)
		if !ok {
			continue
		}
		if trade.RealizedPnL < 0 {
			t.gate.RecordLoss(-trade.RealizedPnL)
		}
		closed = append(closed, trade)

		slog.Info("position closed",
			"market", pos.MarketID,
			"strategy", pos.StrategyID,
			"reason", reason,
			"entry", pos.EntryPrice,
			"exit", exit,
			"pnl", fmt.Sprintf("%.2f", trade.RealizedPnL),
		)
		t.notifier.Notify(ctx, domain.Event{
			Kind:    domain.EventPositionClosed,
			Message: fmt.Sprintf("%s %s @ %.4f", reason, domain.TruncateQuestion(pos.Question, pos.MarketID, 40), exit),
			Fields: map[string]any{
				"market":   pos.MarketID,
				"strategy": pos.StrategyID,
				"pnl":      trade.RealizedPnL,
			},
			At: now,
		})
		if t.journal != nil {
			if err := t.journal.SaveClosedTrade(ctx, trade); err != nil {
				slog.Warn("journal error", "op", "save_closed_trade", "err", err)
			}
		}
	}
	return closed
}

// commit pasa un candidato por el gate, lo dimensiona y lo ejecuta.
func (t *Trader) commit(ctx context.Context, c candidate, now time.Time, res *StepResult) {
	sig := c.signal
	bankroll := t.portfolio.Bankroll()
	open := t.portfolio.Positions()

	decision := t.gate.Check(sig, bankroll, open)
	if !decision.Allowed {
		slog.Info("signal rejected by risk gate",
			"strategy", sig.StrategyID,
			"market", sig.MarketID,
			"edge", fmt.Sprintf("%.4f", sig.Edge()),
			"reason", decision.Reason,
			"detail", decision.Detail,
		)
		res.Rejections = append(res.Rejections, Rejection{Signal: sig, Reason: decision.Reason, Detail: decision.Detail})
		return
	}

	size, err := t.size(c, bankroll)
	if err != nil {
		slog.Warn("sizing failed", "strategy", sig.StrategyID, "market", sig.MarketID, "err", err)
		res.Failed++
		return
	}
	if size <= 0 {
		slog.Debug("zero size after caps", "strategy", sig.StrategyID, "market", sig.MarketID)
		return
	}

	order, err := c.strategy.Execute(ctx, t.exec, sig, size)
	if err != nil || order == nil {
		res.Failed++
		slog.Warn("order failed", "strategy", sig.StrategyID, "market", sig.MarketID, "err", err)
		if errors.Is(err, domain.ErrRejectedOrder) {
			t.notifier.Notify(ctx, domain.Event{
				Kind:    domain.EventOrderRejected,
				Message: fmt.Sprintf("%s rejected on %s", sig.StrategyID, sig.MarketID),
				Fields:  map[string]any{"err": err.Error()},
				At:      now,
			})
		}
		return
	}

	pos := domain.NewPosition(*order, c.market)
	t.portfolio.Open(pos, order.Fee)
	res.Orders = append(res.Orders, *order)

	slog.Info("order placed",
		"strategy", order.StrategyID,
		"market", order.MarketID,
		"side", order.Side,
		"outcome", pos.Outcome,
		"price", order.Price,
		"size", order.Size,
		"edge", fmt.Sprintf("%.4f", sig.Edge()),
		"confidence", sig.Confidence,
	)
	t.notifier.Notify(ctx, domain.Event{
		Kind: domain.EventOrderPlaced,
		Message: fmt.Sprintf("%s %s @ %.4f x %.2f | %s", order.Side, pos.Outcome, order.Price, order.Size,
			domain.TruncateQuestion(c.market.Question, order.MarketID, 40)),
		Fields: map[string]any{
			"strategy": order.StrategyID,
			"market":   order.MarketID,
			"edge":     sig.Edge(),
			"cost":     order.Cost(),
		},
		At: now,
	})
	if t.journal != nil {
		if err := t.journal.SaveOrder(ctx, *order, sig); err != nil {
			slog.Warn("journal error", "op", "save_order", "err", err)
		}
	}
}

// size convierte la apuesta Kelly (USDC) en shares y aplica el tope del gate
// y la caja disponible.
func (t *Trader) size(c candidate, bankroll float64) (float64, error) {
	sig := c.signal
	bet, err := c.strategy.SizePosition(sig, bankroll)
	if err != nil {
		return 0, err
	}
	price := sig.MarketPrice
	unit := price
	if q, ok := t.exec.(unitCoster); ok {
		unit = q.UnitCost(sig.Side, price)
	}
	shares := bet / price
	shares = math.Min(shares, t.gate.MaxPositionSize(bankroll, price))
	shares = math.Min(shares, t.portfolio.Cash()/unit)
	if shares <= 0 || math.IsNaN(shares) {
		return 0, nil
	}
	return math.Floor(shares*sizeScale+1e-9) / sizeScale, nil
}

// unitCoster lo implementan los executors que llenan a un precio distinto del
// pedido. UnitCost es lo que cuesta un share incluyendo slippage y comisión.
type unitCoster interface {
	UnitCost(side domain.Side, price float64) float64
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Event) {}
