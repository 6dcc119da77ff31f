package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// Console implementa ports.Notifier escribiendo una línea por evento.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Notify imprime el evento en formato compacto: hora, tipo, mensaje y campos ordenados.
func (c *Console) Notify(_ context.Context, e domain.Event) {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %-15s %s", at.Format("15:04:05"), eventLabel(e.Kind), e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%s", k, formatField(e.Fields[k]))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, sb.String())
}

// PrintCycle imprime el estado compacto tras un ciclo del pipeline.
func (c *Console) PrintCycle(s domain.CycleSummary, open []domain.Position, cash float64) {
	var exposure, unrealized float64
	for _, p := range open {
		exposure += p.Cost()
		unrealized += p.UnrealizedPnL()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d mkts | %d signals | %d accepted | %d rejected | +%d orders | %d pos | exp $%.2f | upnl $%+.2f | cash $%.2f (%s)",
		s.StartedAt.Format("15:04:05"), s.Markets, s.Signals, s.Accepted, s.Rejected,
		s.Orders, len(open), exposure, unrealized, cash, s.Duration.Truncate(time.Millisecond))
	if s.Err != "" {
		fmt.Fprintf(&sb, "\n  !! %s", s.Err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, sb.String())
}

// --- helpers ---

func eventLabel(k domain.EventKind) string {
	switch k {
	case domain.EventOrderPlaced:
		return "ORDER"
	case domain.EventOrderRejected:
		return "REJECTED"
	case domain.EventPositionClosed:
		return "CLOSED"
	case domain.EventCycleFailed:
		return "CYCLE FAILED"
	case domain.EventDailySummary:
		return "DAILY"
	default:
		return strings.ToUpper(string(k))
	}
}

func formatField(v any) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.4f", x)
	case string:
		if strings.ContainsAny(x, " \t") {
			return fmt.Sprintf("%q", x)
		}
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
