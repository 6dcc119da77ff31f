package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// Registry mantiene las estrategias disponibles indexadas por ID.
// Es seguro para uso concurrente.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	strategy Strategy
	enabled  bool
}

// NewRegistry crea un registry vacío.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register añade una estrategia habilitada.
// Devuelve domain.ErrDuplicateStrategy si el ID ya existe.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[s.ID()]; ok {
		return fmt.Errorf("strategy.Register %q: %w", s.ID(), domain.ErrDuplicateStrategy)
	}
	r.entries[s.ID()] = &entry{strategy: s, enabled: true}
	return nil
}

// Enable habilita la estrategia id.
func (r *Registry) Enable(id string) error {
	return r.setEnabled(id, true)
}

// Disable deshabilita la estrategia id.
func (r *Registry) Disable(id string) error {
	return r.setEnabled(id, false)
}

func (r *Registry) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("strategy %q: %w", id, domain.ErrUnknownStrategy)
	}
	e.enabled = enabled
	return nil
}

// Get devuelve la estrategia por ID.
func (r *Registry) Get(id string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.strategy, true
}

// IsEnabled indica si la estrategia id está registrada y habilitada.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return ok && e.enabled
}

// All devuelve todas las estrategias ordenadas por tier y luego por ID.
func (r *Registry) All() []Strategy {
	return r.collect(func(*entry) bool { return true })
}

// Enabled devuelve las estrategias habilitadas ordenadas por tier y luego por ID.
func (r *Registry) Enabled() []Strategy {
	return r.collect(func(e *entry) bool { return e.enabled })
}

// ByTier devuelve las estrategias habilitadas de un tier.
func (r *Registry) ByTier(t domain.Tier) []Strategy {
	return r.collect(func(e *entry) bool { return e.enabled && e.strategy.Tier() == t })
}

// Len devuelve el número de estrategias registradas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) collect(keep func(*entry) bool) []Strategy {
	r.mu.RLock()
	out := make([]Strategy, 0, len(r.entries))
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e.strategy)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier() != out[j].Tier() {
			return out[i].Tier() < out[j].Tier()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}
