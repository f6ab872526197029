package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-satt/bordem/config"
	"github.com/gr-satt/bordem/internal/adapters/logger"
	"github.com/gr-satt/bordem/internal/domain"
	"github.com/gr-satt/bordem/internal/ports"
	"github.com/gr-satt/bordem/internal/risk"
)

type mockTrader struct {
	balance   float64
	lastPrice float64

	closedSymbols []string
	cancelledAll  bool
}

func (m *mockTrader) Balance(ctx context.Context) (float64, error)     { return m.balance, nil }
func (m *mockTrader) PositionQty(ctx context.Context) (float64, error) { return 0, nil }
func (m *mockTrader) LastPrice(ctx context.Context, symbol string) (float64, error) {
	return m.lastPrice, nil
}
func (m *mockTrader) MarketOrder(ctx context.Context, symbol string, qty int) (*ports.OrderResult, error) {
	return nil, nil
}
func (m *mockTrader) LimitOrder(ctx context.Context, symbol string, qty int, price float64) (*ports.OrderResult, error) {
	return nil, nil
}
func (m *mockTrader) BulkOrder(ctx context.Context, symbol string, qty int, price float64, offsetPct float64) ([]ports.OrderResult, error) {
	return nil, nil
}
func (m *mockTrader) ClosePosition(ctx context.Context, symbol string) (*ports.OrderResult, error) {
	m.closedSymbols = append(m.closedSymbols, symbol)
	return &ports.OrderResult{Symbol: symbol}, nil
}
func (m *mockTrader) CancelAllOrders(ctx context.Context) ([]ports.OrderResult, error) {
	m.cancelledAll = true
	return nil, nil
}
func (m *mockTrader) OrderQty(ctx context.Context, symbol string, leverage int) (int, error) {
	return 0, nil
}

type mockMarketData struct {
	result  *ports.IndicatorResult
	lastReq ports.IndicatorRequest
}

func (m *mockMarketData) Candles(ctx context.Context, symbol, timeframe string, count int) ([]*domain.Candle, error) {
	return nil, nil
}
func (m *mockMarketData) Indicator(ctx context.Context, req ports.IndicatorRequest) (*ports.IndicatorResult, error) {
	m.lastReq = req
	return m.result, nil
}

type memoryEvents struct {
	appended []*domain.Event
}

func (m *memoryEvents) Append(ctx context.Context, event *domain.Event) (int64, error) {
	m.appended = append(m.appended, event)
	return int64(len(m.appended)), nil
}
func (m *memoryEvents) FindRecent(ctx context.Context, limit int) ([]*domain.Event, error) {
	return m.appended, nil
}

type mockMailer struct {
	subjects []string
	bodies   []string
}

func (m *mockMailer) Send(ctx context.Context, subject, body string) error {
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return nil
}

func testConfig(floor float64) *config.Config {
	return &config.Config{
		Symbol:          "XBTUSD",
		Timeframe:       "1h",
		IndicatorName:   "RSI",
		IndicatorPeriod: 14,
		IndicatorSource: "close",
		FailsafeFloor:   floor,
	}
}

func newTestService(t *testing.T, cfg *config.Config, trader *mockTrader, md *mockMarketData, mailer ports.Mailer) (*MonitorService, *memoryEvents) {
	t.Helper()
	log := logger.NewStdLogger(logger.LevelError)
	events := &memoryEvents{}

	riskMgr, err := risk.New(risk.Config{
		FailsafeFloor: cfg.FailsafeFloor,
		Trader:        trader,
		Logger:        log,
		Events:        events,
	})
	require.NoError(t, err)

	svc, err := NewMonitorService(cfg, log, trader, md, riskMgr, events, mailer)
	require.NoError(t, err)
	return svc, events
}

func TestRunCycle(t *testing.T) {
	trader := &mockTrader{balance: 1.5, lastPrice: 64250.5}
	md := &mockMarketData{result: &ports.IndicatorResult{
		Name:    "RSI",
		Outputs: map[string][]float64{"value": {48.1, 52.3, 55.7}},
	}}
	mailer := &mockMailer{}
	svc, events := newTestService(t, testConfig(0.5), trader, md, mailer)

	require.NoError(t, svc.RunCycle(context.Background()))

	assert.Equal(t, "RSI", md.lastReq.Name)
	assert.Equal(t, "XBTUSD", md.lastReq.Symbol)
	assert.Equal(t, indicatorInstances, md.lastReq.Instances)

	require.Len(t, events.appended, 1)
	assert.Equal(t, "cycle", events.appended[0].Operation)
	assert.Contains(t, events.appended[0].Details, "RSI")

	require.Len(t, mailer.subjects, 1)
	assert.Equal(t, "XBTUSD RSI snapshot", mailer.subjects[0])
	assert.Contains(t, mailer.bodies[0], "55.7000")
	assert.Contains(t, mailer.bodies[0], "64250.50")
}

func TestRunCycleWithoutMailer(t *testing.T) {
	trader := &mockTrader{balance: 1.5, lastPrice: 64000}
	md := &mockMarketData{result: &ports.IndicatorResult{
		Name:    "RSI",
		Outputs: map[string][]float64{"value": {50}},
	}}
	svc, events := newTestService(t, testConfig(0), trader, md, nil)

	require.NoError(t, svc.RunCycle(context.Background()))
	require.Len(t, events.appended, 1)
}

func TestRunCycleFailsafe(t *testing.T) {
	trader := &mockTrader{balance: 0.1, lastPrice: 64000}
	md := &mockMarketData{}
	mailer := &mockMailer{}
	svc, events := newTestService(t, testConfig(0.5), trader, md, mailer)

	err := svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrBalanceFailsafe)

	// Exposure flattened, failsafe alert sent, no cycle event recorded.
	assert.Equal(t, []string{"XBTUSD"}, trader.closedSymbols)
	assert.True(t, trader.cancelledAll)
	require.Len(t, mailer.subjects, 1)
	assert.Equal(t, "Balance failsafe tripped", mailer.subjects[0])
	require.Len(t, events.appended, 1)
	assert.Equal(t, "failsafe", events.appended[0].Operation)
}

func TestStartSingleCycle(t *testing.T) {
	trader := &mockTrader{balance: 1.5, lastPrice: 64000}
	md := &mockMarketData{result: &ports.IndicatorResult{
		Name:    "RSI",
		Outputs: map[string][]float64{"value": {50}},
	}}
	svc, events := newTestService(t, testConfig(0), trader, md, nil)

	require.NoError(t, svc.Start(context.Background()))
	require.Len(t, events.appended, 1)
}

func TestNewMonitorServiceValidatesDependencies(t *testing.T) {
	log := logger.NewStdLogger(logger.LevelError)
	_, err := NewMonitorService(nil, log, &mockTrader{}, &mockMarketData{}, nil, &memoryEvents{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfiguration)
}

func TestSummarize(t *testing.T) {
	got := summarize(&ports.IndicatorResult{
		Name: "MACD",
		Outputs: map[string][]float64{
			"macd":   {1.5},
			"signal": {1.25},
			"hist":   {0.25},
		},
	})
	assert.Equal(t, "hist: 0.2500, macd: 1.5000, signal: 1.2500", got)
}
