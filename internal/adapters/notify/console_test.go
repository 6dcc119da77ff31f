package notify_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/adapters/notify"
	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestConsole_Notify_PrintsKindMessageAndSortedFields(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	n.Notify(context.Background(), domain.Event{
		Kind:    domain.EventOrderPlaced,
		Message: "BUY NO @ 0.4000",
		Fields:  map[string]any{"strategy": "s03_nothing_ever_happens", "edge": 0.3, "market": "0xabc"},
		At:      time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "09:30:00")
	assert.Contains(t, out, "ORDER")
	assert.Contains(t, out, "BUY NO @ 0.4000")
	assert.Contains(t, out, "edge=0.3000")
	assert.Less(t, strings.Index(out, "edge="), strings.Index(out, "market="))
	assert.Less(t, strings.Index(out, "market="), strings.Index(out, "strategy="))
}

func TestConsole_PrintCycle(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	open := []domain.Position{
		{MarketID: "m1", EntryPrice: 0.40, CurrentPrice: 0.50, Size: 100, Side: domain.SideBuy},
	}
	n.PrintCycle(domain.CycleSummary{
		StartedAt: time.Now(),
		Markets:   42,
		Signals:   3,
		Accepted:  1,
		Rejected:  2,
		Orders:    1,
		Err:       "scanner down",
	}, open, 9960)

	out := buf.String()
	assert.Contains(t, out, "42 mkts")
	assert.Contains(t, out, "1 pos")
	assert.Contains(t, out, "exp $40.00")
	assert.Contains(t, out, "upnl $+10.00")
	assert.Contains(t, out, "!! scanner down")
}

func TestConsole_PrintStrategies(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	n.PrintStrategies([]notify.StrategyRow{
		{ID: "s03_nothing_ever_happens", Tier: domain.TierS, Enabled: true, Description: "buy NO on hype"},
		{ID: "s85_microcap_monopoly", Tier: domain.TierC, Enabled: false},
	})

	out := buf.String()
	assert.Contains(t, out, "s03_nothing_ever_happens")
	assert.Contains(t, out, "s85_microcap_monopoly")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "no")
}

func TestConsole_PrintStrategies_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf).PrintStrategies(nil)
	assert.Contains(t, buf.String(), "No strategies registered")
}

func TestConsole_PrintBacktest(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	pos := domain.Position{MarketID: "0xabc", Question: strings.Repeat("Q", 50), Outcome: "No", EntryPrice: 0.4, Size: 100}
	n.PrintBacktest(notify.BacktestReportInput{
		Summary: domain.BacktestSummary{
			StrategyID:     "s22_longshot_bias",
			InitialBalance: 10000,
			FinalBalance:   10060,
			Trades:         1,
			WinRate:        1,
			Sharpe:         1.25,
			MaxDrawdown:    0.02,
		},
		Trades: []domain.ClosedTrade{pos.Close(1, time.Now(), "resolved")},
	})

	out := buf.String()
	assert.Contains(t, out, "s22_longshot_bias")
	assert.Contains(t, out, "$10060.00")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "$+60.00")
	assert.Contains(t, out, "resolved")
	assert.Contains(t, out, "...")
}

func TestConsole_PrintBacktest_NoTrades(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf).PrintBacktest(notify.BacktestReportInput{})
	assert.Contains(t, buf.String(), "No trades executed")
}

func TestConsole_PrintPositions(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf)

	n.PrintPositions([]domain.Position{
		{MarketID: "m1", Question: "Will it rain?", Outcome: "Yes", StrategyID: "s12", EntryPrice: 0.95, CurrentPrice: 0.97, Size: 10, Side: domain.SideBuy},
	})
	out := buf.String()
	assert.Contains(t, out, "OPEN POSITIONS (1)")
	assert.Contains(t, out, "Will it rain?")
	assert.Contains(t, out, "Total uPnL: $+0.20")
}
