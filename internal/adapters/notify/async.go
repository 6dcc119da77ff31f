package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/ports"
)

const defaultBuffer = 64

// Async reparte eventos a varios sinks desde una goroutine propia.
// Notify nunca bloquea: si el buffer está lleno el evento se descarta.
type Async struct {
	sinks   []ports.Notifier
	ch      chan domain.Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsync arranca el dispatcher. buffer <= 0 usa el tamaño por defecto.
func NewAsync(buffer int, sinks ...ports.Notifier) *Async {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	a := &Async{
		sinks: sinks,
		ch:    make(chan domain.Event, buffer),
		done:  make(chan struct{}),
	}
	go a.loop()
	return a
}

// Notify encola el evento sin bloquear.
func (a *Async) Notify(_ context.Context, e domain.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- e:
	default:
		n := a.dropped.Add(1)
		slog.Warn("notification dropped, buffer full", "kind", e.Kind, "dropped_total", n)
	}
}

// Dropped devuelve cuántos eventos se descartaron por buffer lleno.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close deja de aceptar eventos y espera a que se entreguen los encolados.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *Async) loop() {
	defer close(a.done)
	for e := range a.ch {
		for _, s := range a.sinks {
			deliver(s, e)
		}
	}
}

// deliver aísla cada sink: un panic no tumba el dispatcher.
func deliver(s ports.Notifier, e domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("notifier panic", "kind", e.Kind, "panic", r)
		}
	}()
	s.Notify(context.Background(), e)
}
