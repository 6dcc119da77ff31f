package strategy

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
	"github.com/alejandrodnm/polyalpha/internal/ports"
)

// Settings es la configuración por estrategia.
type Settings struct {
	Enabled       *bool // nil = habilitada si tiene sus dependencias
	KellyFraction float64
	MaxFraction   float64
	Params        Params
}

// Deps son las dependencias externas que algunas estrategias necesitan.
type Deps struct {
	Books     ports.BookProvider
	Estimator Estimator
}

type builder func(sizer kelly.Sizer, p Params, deps Deps) Strategy

var builtins = map[string]builder{
	IDNothingEverHappens: func(k kelly.Sizer, p Params, _ Deps) Strategy { return NewNothingEverHappens(k, p) },
	IDHighProbHarvesting: func(k kelly.Sizer, p Params, _ Deps) Strategy { return NewHighProbHarvesting(k, p) },
	IDLongshotBias:       func(k kelly.Sizer, p Params, _ Deps) Strategy { return NewLongshotBias(k, p) },
	IDModelVsMarket: func(k kelly.Sizer, p Params, d Deps) Strategy {
		if d.Estimator == nil {
			return nil
		}
		return NewModelVsMarket(k, p, d.Estimator)
	},
	IDFlashCrash:       func(k kelly.Sizer, p Params, d Deps) Strategy { return NewFlashCrash(k, p, d.Books) },
	IDMicrocapMonopoly: func(k kelly.Sizer, p Params, _ Deps) Strategy { return NewMicrocapMonopoly(k, p) },
}

// BuiltinIDs devuelve los IDs de las estrategias incluidas, ordenados.
func BuiltinIDs() []string {
	ids := make([]string, 0, len(builtins))
	for id := range builtins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewCatalog registra todas las estrategias incluidas aplicando settings.
// defaults es el sizer usado cuando una estrategia no define su propia fracción.
// Las estrategias sin sus dependencias (p.ej. sin Estimator) no se registran.
func NewCatalog(settings map[string]Settings, defaults kelly.Sizer, deps Deps) (*Registry, error) {
	for id := range settings {
		if _, ok := builtins[id]; !ok {
			return nil, fmt.Errorf("strategy.NewCatalog: %q: %w", id, domain.ErrUnknownStrategy)
		}
	}

	reg := NewRegistry()
	for _, id := range BuiltinIDs() {
		st := settings[id]

		sizer := defaults
		if st.KellyFraction > 0 {
			sizer.Fraction = st.KellyFraction
		}
		if st.MaxFraction > 0 {
			sizer.MaxFraction = st.MaxFraction
		}
		if err := sizer.Validate(); err != nil {
			return nil, fmt.Errorf("strategy.NewCatalog: %s: %w", id, err)
		}

		s := builtins[id](sizer, st.Params, deps)
		if s == nil {
			slog.Debug("strategy skipped: missing dependencies", "strategy", id)
			continue
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
		if st.Enabled != nil && !*st.Enabled {
			if err := reg.Disable(id); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

// ScanFilter ajusta el filtro del scanner a las estrategias habilitadas en reg.
// s85_microcap_monopoly solo opera mercados por debajo de su max_liquidity, así
// que con ella habilitada el suelo global de liquidez se quita; el resto de
// estrategias aplica sus propios umbrales de volumen y precio.
func ScanFilter(reg *Registry, f domain.MarketFilter) domain.MarketFilter {
	if reg.IsEnabled(IDMicrocapMonopoly) {
		f.MinLiquidity = 0
	}
	return f
}
