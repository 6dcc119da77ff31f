package ports

import (
	"context"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// Notifier recibe eventos del pipeline. Es fire-and-forget: nunca debe bloquear
// ni hacer fallar al llamador.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event)
}
