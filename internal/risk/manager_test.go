package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-satt/bordem/internal/adapters/logger"
	"github.com/gr-satt/bordem/internal/domain"
	"github.com/gr-satt/bordem/internal/ports"
)

type stubTrader struct {
	balance    float64
	balanceErr error

	closedSymbols []string
	cancelledAll  bool
}

func (s *stubTrader) Balance(ctx context.Context) (float64, error) { return s.balance, s.balanceErr }
func (s *stubTrader) PositionQty(ctx context.Context) (float64, error) {
	return 0, nil
}
func (s *stubTrader) LastPrice(ctx context.Context, symbol string) (float64, error) { return 0, nil }
func (s *stubTrader) MarketOrder(ctx context.Context, symbol string, qty int) (*ports.OrderResult, error) {
	return nil, nil
}
func (s *stubTrader) LimitOrder(ctx context.Context, symbol string, qty int, price float64) (*ports.OrderResult, error) {
	return nil, nil
}
func (s *stubTrader) BulkOrder(ctx context.Context, symbol string, qty int, price float64, offsetPct float64) ([]ports.OrderResult, error) {
	return nil, nil
}
func (s *stubTrader) ClosePosition(ctx context.Context, symbol string) (*ports.OrderResult, error) {
	s.closedSymbols = append(s.closedSymbols, symbol)
	return &ports.OrderResult{Symbol: symbol}, nil
}
func (s *stubTrader) CancelAllOrders(ctx context.Context) ([]ports.OrderResult, error) {
	s.cancelledAll = true
	return nil, nil
}
func (s *stubTrader) OrderQty(ctx context.Context, symbol string, leverage int) (int, error) {
	return 0, nil
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

func newTestManager(t *testing.T, floor float64, trader *stubTrader, events ports.EventRepository) *Manager {
	t.Helper()
	m, err := New(Config{
		FailsafeFloor: floor,
		Trader:        trader,
		Logger:        logger.NewStdLogger(logger.LevelError),
		Events:        events,
	})
	require.NoError(t, err)
	return m
}

func TestCheckBalanceAboveFloor(t *testing.T) {
	trader := &stubTrader{balance: 1.5}
	m := newTestManager(t, 0.5, trader, nil)

	balance, err := m.CheckBalance(context.Background(), "XBTUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.5, balance)
	assert.Empty(t, trader.closedSymbols)
	assert.False(t, trader.cancelledAll)
}

func TestCheckBalanceBreachFlattensExposure(t *testing.T) {
	trader := &stubTrader{balance: 0.2}
	events := &memoryEvents{}
	m := newTestManager(t, 0.5, trader, events)

	balance, err := m.CheckBalance(context.Background(), "XBTUSD")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrBalanceFailsafe)
	assert.Equal(t, 0.2, balance)
	assert.Equal(t, []string{"XBTUSD"}, trader.closedSymbols)
	assert.True(t, trader.cancelledAll)

	require.Len(t, events.appended, 1)
	assert.Equal(t, "failsafe", events.appended[0].Operation)
}

func TestCheckBalanceZeroFloorDisablesFailsafe(t *testing.T) {
	trader := &stubTrader{balance: 0.0001}
	m := newTestManager(t, 0, trader, nil)

	_, err := m.CheckBalance(context.Background(), "XBTUSD")
	require.NoError(t, err)
	assert.Empty(t, trader.closedSymbols)
}

func TestCheckBalancePropagatesBalanceError(t *testing.T) {
	trader := &stubTrader{balanceErr: errors.New("wallet unavailable")}
	m := newTestManager(t, 0.5, trader, nil)

	_, err := m.CheckBalance(context.Background(), "XBTUSD")
	require.Error(t, err)
	assert.Empty(t, trader.closedSymbols)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{Logger: logger.NewStdLogger(logger.LevelError)})
	assert.ErrorIs(t, err, ports.ErrConfiguration)

	_, err = New(Config{Trader: &stubTrader{}})
	assert.ErrorIs(t, err, ports.ErrConfiguration)
}
