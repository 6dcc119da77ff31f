package kelly_test

import (
	"errors"
	"testing"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullKelly_Scenario(t *testing.T) {
	f, err := kelly.FullKelly(0.70, 0.50)
	require.NoError(t, err)
	assert.InDelta(t, 0.40, f, 1e-9)
}

func TestSizer_Scenario(t *testing.T) {
	s, err := kelly.New(0.25, 0.25)
	require.NoError(t, err)

	size, err := s.OptimalSize(0.70, 0.50)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, size, 1e-9)

	bet, err := s.BetAmount(10000, 0.70, 0.50)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, bet, 1e-6)
}

func TestFullKelly_NoEdgeIsZero(t *testing.T) {
	for _, tc := range []struct{ p, m float64 }{
		{0.50, 0.50},
		{0.40, 0.50},
		{0.01, 0.99},
	} {
		f, err := kelly.FullKelly(tc.p, tc.m)
		require.NoError(t, err)
		assert.Equal(t, 0.0, f, "p=%v m=%v", tc.p, tc.m)
	}
}

func TestOptimalSize_CapNeverExceeded(t *testing.T) {
	for _, frac := range []float64{0.1, 0.25, 0.5, 1.0} {
		s := kelly.Sizer{Fraction: frac, MaxFraction: 0.06}
		for _, p := range []float64{0.55, 0.7, 0.9, 0.99} {
			for _, m := range []float64{0.01, 0.2, 0.5} {
				size, err := s.OptimalSize(p, m)
				require.NoError(t, err)
				assert.LessOrEqual(t, size, 0.06)
				assert.GreaterOrEqual(t, size, 0.0)
			}
		}
	}
}

func TestBetAmount_LinearInBankroll(t *testing.T) {
	s := kelly.Sizer{Fraction: 0.25, MaxFraction: 0.5}
	a, err := s.BetAmount(1000, 0.65, 0.55)
	require.NoError(t, err)
	b, err := s.BetAmount(3000, 0.65, 0.55)
	require.NoError(t, err)
	assert.InDelta(t, 3*a, b, 1e-9)

	zero, err := s.BetAmount(0, 0.65, 0.55)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)
}

func TestFullKelly_InvalidInputs(t *testing.T) {
	for _, tc := range []struct{ p, m float64 }{
		{0.5, 1.0},
		{0.5, 0},
		{1.0, 0.5},
		{-0.1, 0.5},
	} {
		_, err := kelly.FullKelly(tc.p, tc.m)
		assert.True(t, errors.Is(err, domain.ErrInvalidPrice), "p=%v m=%v", tc.p, tc.m)
	}
}

func TestHalfKelly(t *testing.T) {
	f, err := kelly.HalfKelly(0.70, 0.50)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, f, 1e-9)
}

func TestNew_RejectsBadFractions(t *testing.T) {
	_, err := kelly.New(0, 0.1)
	assert.Error(t, err)
	_, err = kelly.New(1.5, 0.1)
	assert.Error(t, err)
	_, err = kelly.New(0.5, 0)
	assert.Error(t, err)

	assert.NoError(t, kelly.Default().Validate())
}
