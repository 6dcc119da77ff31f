package notify

import (
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// StrategyRow es una fila del listado de estrategias.
type StrategyRow struct {
	ID          string
	Tier        domain.Tier
	Enabled     bool
	Description string
}

// PrintStrategies imprime el registro de estrategias por tier.
func (c *Console) PrintStrategies(rows []StrategyRow) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(rows) == 0 {
		fmt.Fprintln(c.out, "\n  No strategies registered.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Tier", "Strategy", "Enabled", "Description")
	for _, r := range rows {
		enabled := "no"
		if r.Enabled {
			enabled = "yes"
		}
		table.Append(r.Tier.String(), r.ID, enabled, truncate(r.Description, 60))
	}
	table.Render()
}

// PrintPositions imprime las posiciones abiertas con su P&L no realizado.
func (c *Console) PrintPositions(positions []domain.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n── OPEN POSITIONS (%d) ──\n", len(positions))
	if len(positions) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Outcome", "Strategy", "Entry", "Now", "Size", "uPnL")
	var total float64
	for _, p := range positions {
		total += p.UnrealizedPnL()
		table.Append(
			domain.TruncateQuestion(p.Question, p.MarketID, 35),
			p.Outcome,
			p.StrategyID,
			fmt.Sprintf("%.4f", p.EntryPrice),
			fmt.Sprintf("%.4f", p.CurrentPrice),
			fmt.Sprintf("%.2f", p.Size),
			fmt.Sprintf("$%+.2f", p.UnrealizedPnL()),
		)
	}
	table.Render()
	fmt.Fprintf(c.out, "  Total uPnL: $%+.2f\n", total)
}

// BacktestReportInput agrupa lo necesario para imprimir una corrida de backtest.
type BacktestReportInput struct {
	Summary domain.BacktestSummary
	Trades  []domain.ClosedTrade
}

// PrintBacktest imprime las métricas de una corrida y sus trades.
func (c *Console) PrintBacktest(in BacktestReportInput) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := in.Summary
	fmt.Fprintf(c.out, "\n╔══════════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(c.out, "║  BACKTEST — %-48s ║\n", truncate(s.StrategyID, 48))
	fmt.Fprintf(c.out, "╚══════════════════════════════════════════════════════════════╝\n\n")

	fmt.Fprintf(c.out, "  Period:            %s → %s (%d points)\n",
		s.From.Format("2006-01-02"), s.To.Format("2006-01-02"), s.Points)
	fmt.Fprintf(c.out, "  Initial balance:   $%.2f\n", s.InitialBalance)
	fmt.Fprintf(c.out, "  Ending balance:    $%.2f\n", s.FinalBalance)
	fmt.Fprintf(c.out, "  Trades:            %d (win rate %s)\n", s.Trades, pct(s.WinRate))
	fmt.Fprintf(c.out, "  Annualized return: %s\n", pct(s.AnnualizedReturn))
	fmt.Fprintf(c.out, "  Sharpe:            %.2f\n", s.Sharpe)
	fmt.Fprintf(c.out, "  Max drawdown:      %s\n", pct(s.MaxDrawdown))

	if len(in.Trades) == 0 {
		fmt.Fprintln(c.out, "\n  No trades executed.")
		return
	}

	fmt.Fprintln(c.out)
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Outcome", "Entry", "Exit", "Size", "PnL", "Reason")
	for i, t := range in.Trades {
		table.Append(
			fmt.Sprintf("%d", i+1),
			domain.TruncateQuestion(t.Question, t.MarketID, 30),
			t.Outcome,
			fmt.Sprintf("%.4f", t.EntryPrice),
			fmt.Sprintf("%.4f", t.ExitPrice),
			fmt.Sprintf("%.2f", t.Size),
			fmt.Sprintf("$%+.2f", t.RealizedPnL),
			t.Reason,
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// PrintBacktestRuns imprime el histórico de corridas guardadas en el journal.
func (c *Console) PrintBacktestRuns(runs []domain.BacktestSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No backtest runs stored.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Strategy", "From", "To", "Trades", "Win", "Final$", "Ann.", "Sharpe", "MaxDD")
	for _, r := range runs {
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		table.Append(
			id,
			r.StrategyID,
			r.From.Format("2006-01-02"),
			r.To.Format("2006-01-02"),
			fmt.Sprintf("%d", r.Trades),
			pct(r.WinRate),
			fmt.Sprintf("%.2f", r.FinalBalance),
			pct(r.AnnualizedReturn),
			fmt.Sprintf("%.2f", r.Sharpe),
			pct(r.MaxDrawdown),
		)
	}
	table.Render()
}
