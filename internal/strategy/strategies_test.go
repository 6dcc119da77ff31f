package strategy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/kelly"
	"github.com/alejandrodnm/polyalpha/internal/risk"
	"github.com/alejandrodnm/polyalpha/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExecutor struct {
	reqs []domain.PlaceOrderRequest
	res  domain.OrderResult
	err  error
}

func (m *mockExecutor) PlaceOrder(_ context.Context, req domain.PlaceOrderRequest) (domain.OrderResult, error) {
	m.reqs = append(m.reqs, req)
	return m.res, m.err
}

type mockBooks struct {
	book domain.OrderBook
	err  error
}

func (m *mockBooks) FetchOrderBook(context.Context, string) (domain.OrderBook, error) {
	return m.book, m.err
}

type failingEstimator struct{}

func (failingEstimator) Estimate(context.Context, domain.Market) (float64, bool, error) {
	return 0, false, errors.New("model offline")
}

func market(id, question string, yes float64) domain.Market {
	return domain.Market{
		ConditionID: id,
		Question:    question,
		Active:      true,
		Volume:      10000,
		Tokens: []domain.Token{
			{TokenID: id + "_yes", Outcome: "Yes", Price: yes},
			{TokenID: id + "_no", Outcome: "No", Price: 1 - yes},
		},
	}
}

func analyzeAll(t *testing.T, s strategy.Strategy, markets []domain.Market) []domain.Signal {
	t.Helper()
	var out []domain.Signal
	for _, opp := range s.Scan(markets) {
		sig, err := s.Analyze(context.Background(), opp)
		require.NoError(t, err)
		if sig != nil {
			out = append(out, *sig)
		}
	}
	return out
}

// --- s03 ---

func TestNothingEverHappens(t *testing.T) {
	s := strategy.NewNothingEverHappens(kelly.Default(), nil)
	markets := []domain.Market{
		market("war", "Will Russia invade Finland?", 0.40),
		market("boring", "Will GDP grow 2%?", 0.40),
		market("cheap", "Will the president resign?", 0.10),
		market("slim", "Will there be a market crash?", 0.22),
	}

	sigs := analyzeAll(t, s, markets)
	require.Len(t, sigs, 1)
	sig := sigs[0]
	assert.Equal(t, "war", sig.MarketID)
	assert.Equal(t, "war_no", sig.TokenID)
	assert.InDelta(t, 0.70, sig.EstimatedProb, 1e-9)
	assert.InDelta(t, 0.60, sig.MarketPrice, 1e-9)
	assert.InDelta(t, 0.10, sig.Edge(), 1e-9)
	assert.Equal(t, domain.SideBuy, sig.Side)
	assert.Equal(t, strategy.IDNothingEverHappens, sig.StrategyID)
}

// --- s12 ---

func TestHighProbHarvesting(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	near := market("near", "Will the sun rise?", 0.96)
	near.SnapshotAt = now
	near.EndDate = now.Add(10 * 24 * time.Hour)

	far := market("far", "Will the sun rise in 2030?", 0.96)
	far.SnapshotAt = now
	far.EndDate = now.Add(90 * 24 * time.Hour)

	low := market("low", "Coin flip", 0.60)

	s := strategy.NewHighProbHarvesting(kelly.Default(), nil)
	sigs := analyzeAll(t, s, []domain.Market{near, far, low})
	require.Len(t, sigs, 1)
	assert.Equal(t, "near_yes", sigs[0].TokenID)
	assert.InDelta(t, 0.99, sigs[0].EstimatedProb, 1e-9)
	assert.InDelta(t, (0.04/0.96)*36.5, sigs[0].Metadata["annualized_yield"], 1e-9)
}

func TestAnnualizedYield(t *testing.T) {
	assert.InDelta(t, 0.05*365/0.95/30, strategy.AnnualizedYield(0.95, 30), 1e-9)
	assert.Equal(t, 0.0, strategy.AnnualizedYield(1, 30))
	assert.Equal(t, 0.0, strategy.AnnualizedYield(0.95, 0))
}

// --- s22 ---

func TestLongshotBias(t *testing.T) {
	s := strategy.NewLongshotBias(kelly.Default(), nil)
	sigs := analyzeAll(t, s, []domain.Market{
		market("long", "Will a 100-1 horse win?", 0.10),
		market("mid", "Toss up", 0.50),
	})
	require.Len(t, sigs, 1)
	assert.Equal(t, "long_no", sigs[0].TokenID)
	assert.InDelta(t, 0.90, sigs[0].MarketPrice, 1e-9)
	assert.InDelta(t, 0.03, sigs[0].Edge(), 1e-9)
}

// --- s24 ---

func TestModelVsMarket(t *testing.T) {
	model := strategy.EstimateTable{"up": 0.70, "down": 0.20, "close": 0.52}
	s := strategy.NewModelVsMarket(kelly.Default(), nil, model)

	sigs := analyzeAll(t, s, []domain.Market{
		market("up", "Will the Democrat win the election?", 0.50),
		market("down", "Will the senate flip?", 0.50),
		market("close", "Will the governor veto?", 0.50),
		market("sports", "Will the Lakers win?", 0.50),
		market("uncovered", "Who wins the primary?", 0.50),
	})
	require.Len(t, sigs, 2)

	assert.Equal(t, "up_yes", sigs[0].TokenID)
	assert.InDelta(t, 0.70, sigs[0].EstimatedProb, 1e-9)

	assert.Equal(t, "down_no", sigs[1].TokenID)
	assert.InDelta(t, 0.80, sigs[1].EstimatedProb, 1e-9)
	assert.InDelta(t, 0.50, sigs[1].MarketPrice, 1e-9)
}

func TestModelVsMarket_EstimatorError(t *testing.T) {
	s := strategy.NewModelVsMarket(kelly.Default(), nil, failingEstimator{})
	opps := s.Scan([]domain.Market{market("x", "Election day", 0.5)})
	require.Len(t, opps, 1)
	_, err := s.Analyze(context.Background(), opps[0])
	assert.Error(t, err)
}

// --- s68 ---

func crashed(prior, cur float64) domain.Market {
	m := market("crash", "Will BTC close above 100k?", cur)
	m.Tokens[0].PrevPrice = prior
	return m
}

func TestFlashCrash_DetectsDrop(t *testing.T) {
	s := strategy.NewFlashCrash(kelly.Default(), nil, nil)
	sigs := analyzeAll(t, s, []domain.Market{crashed(0.60, 0.40), crashed(0.60, 0.55)})
	require.Len(t, sigs, 1)
	assert.Equal(t, "crash_yes", sigs[0].TokenID)
	assert.InDelta(t, 0.54, sigs[0].EstimatedProb, 1e-9)
	assert.InDelta(t, 0.40, sigs[0].MarketPrice, 1e-9)
}

func TestFlashCrash_LowVolumeOrNoHistory(t *testing.T) {
	s := strategy.NewFlashCrash(kelly.Default(), nil, nil)
	thin := crashed(0.60, 0.40)
	thin.Volume = 100
	assert.Empty(t, s.Scan([]domain.Market{thin, market("new", "fresh", 0.40)}))
}

func TestFlashCrash_UsesBookAsk(t *testing.T) {
	books := &mockBooks{book: domain.OrderBook{Asks: []domain.BookEntry{{Price: 0.52, Size: 100}}}}
	s := strategy.NewFlashCrash(kelly.Default(), nil, books)

	// ask 0.52 deja solo 0.02 de edge frente al objetivo 0.54
	assert.Empty(t, analyzeAll(t, s, []domain.Market{crashed(0.60, 0.40)}))

	books.book.Asks[0].Price = 0.42
	sigs := analyzeAll(t, s, []domain.Market{crashed(0.60, 0.40)})
	require.Len(t, sigs, 1)
	assert.InDelta(t, 0.42, sigs[0].MarketPrice, 1e-9)

	books.err = errors.New("book down")
	opps := s.Scan([]domain.Market{crashed(0.60, 0.40)})
	_, err := s.Analyze(context.Background(), opps[0])
	assert.Error(t, err)
}

// --- s85 ---

func TestMicrocapMonopoly(t *testing.T) {
	s := strategy.NewMicrocapMonopoly(kelly.Default(), nil)
	thin := market("thin", "Obscure event", 0.50)
	thin.Liquidity = 150
	deep := market("deep", "Popular event", 0.50)
	deep.Liquidity = 50000

	sigs := analyzeAll(t, s, []domain.Market{thin, deep})
	require.Len(t, sigs, 1)
	assert.InDelta(t, 0.44, sigs[0].MarketPrice, 1e-9)
	assert.InDelta(t, 0.50, sigs[0].EstimatedProb, 1e-9)
	assert.GreaterOrEqual(t, sigs[0].Edge(), risk.DefaultLimits().MinEdge)
	assert.Equal(t, domain.TierC, s.Tier())
}

// --- Base ---

func TestBase_SizePositionUsesKelly(t *testing.T) {
	s := strategy.NewBase("x", domain.TierA, "", kelly.Sizer{Fraction: 0.25, MaxFraction: 0.25})
	bet, err := s.SizePosition(domain.Signal{EstimatedProb: 0.70, MarketPrice: 0.50}, 10000)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, bet, 1e-6)

	_, err = s.SizePosition(domain.Signal{EstimatedProb: 0.70, MarketPrice: 1}, 10000)
	assert.True(t, errors.Is(err, domain.ErrInvalidPrice))
}

func TestBase_ExecuteBuildsOrderFromResult(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	exec := &mockExecutor{res: domain.OrderResult{
		OrderID: "o-1", Status: domain.OrderPaper, FillPrice: 0.51, Fee: 0.01, At: at,
	}}
	s := strategy.NewBase("x", domain.TierA, "", kelly.Default())
	sig := domain.Signal{MarketID: "m", TokenID: "m_yes", Side: domain.SideBuy, EstimatedProb: 0.7, MarketPrice: 0.5, StrategyID: "x"}

	order, err := s.Execute(context.Background(), exec, sig, 100)
	require.NoError(t, err)
	require.Len(t, exec.reqs, 1)
	assert.InDelta(t, 0.5, exec.reqs[0].Price, 1e-9)
	assert.Equal(t, "o-1", order.ID)
	assert.Equal(t, domain.OrderPaper, order.Status)
	assert.InDelta(t, 0.51, order.Price, 1e-9)
	assert.InDelta(t, 100.0, order.Size, 1e-9)
	assert.Equal(t, at, order.CreatedAt)
}

func TestBase_ExecuteRejected(t *testing.T) {
	exec := &mockExecutor{err: domain.ErrRejectedOrder}
	s := strategy.NewBase("x", domain.TierA, "", kelly.Default())
	sig := domain.Signal{MarketID: "m", TokenID: "m_yes", Side: domain.SideBuy, EstimatedProb: 0.7, MarketPrice: 0.5}

	order, err := s.Execute(context.Background(), exec, sig, 10)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, domain.ErrRejectedOrder))

	_, err = s.Execute(context.Background(), exec, sig, 0)
	assert.Error(t, err)
	assert.Len(t, exec.reqs, 1, "zero size never reaches the port")
}
