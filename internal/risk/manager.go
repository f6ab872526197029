package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/gr-satt/bordem/internal/domain"
	"github.com/gr-satt/bordem/internal/ports"
)

// Config holds configuration for the balance failsafe.
type Config struct {
	// FailsafeFloor is the wallet balance (in BTC) below which all exposure
	// is flattened. Zero disables the check.
	FailsafeFloor float64
	Trader        ports.Trader
	Logger        ports.Logger
	Events        ports.EventRepository
}

// Manager watches the account balance and flattens exposure when it falls
// below the configured floor.
type Manager struct {
	floor  float64
	trader ports.Trader
	logger ports.Logger
	events ports.EventRepository
}

// New creates a new balance failsafe manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Trader == nil {
		return nil, fmt.Errorf("%w: trader is required for risk manager", ports.ErrConfiguration)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for risk manager", ports.ErrConfiguration)
	}
	return &Manager{
		floor:  cfg.FailsafeFloor,
		trader: cfg.Trader,
		logger: cfg.Logger,
		events: cfg.Events,
	}, nil
}

// CheckBalance compares the wallet balance against the floor. When breached,
// the open position on symbol is closed, all resting orders are cancelled and
// ErrBalanceFailsafe is returned so the caller can halt trading.
func (m *Manager) CheckBalance(ctx context.Context, symbol string) (float64, error) {
	balance, err := m.trader.Balance(ctx)
	if err != nil {
		return 0, err
	}
	m.logger.Info(ctx, "Balance checked", map[string]interface{}{
		"balance": balance, "floor": m.floor,
	})

	if m.floor <= 0 || balance >= m.floor {
		return balance, nil
	}

	m.logger.Error(ctx, nil, "Balance below failsafe floor, flattening exposure", map[string]interface{}{
		"balance": balance, "floor": m.floor, "symbol": symbol,
	})

	if _, err := m.trader.ClosePosition(ctx, symbol); err != nil {
		m.logger.Error(ctx, err, "Failed to close position during failsafe", map[string]interface{}{"symbol": symbol})
	}
	if _, err := m.trader.CancelAllOrders(ctx); err != nil {
		m.logger.Error(ctx, err, "Failed to cancel open orders during failsafe")
	}
	m.record(ctx, balance, symbol)

	return balance, fmt.Errorf("%w: balance %.8f below floor %.8f", ports.ErrBalanceFailsafe, balance, m.floor)
}

func (m *Manager) record(ctx context.Context, balance float64, symbol string) {
	if m.events == nil {
		return
	}
	event := &domain.Event{
		OccurredAt: time.Now(),
		Operation:  "failsafe",
		Message:    "balance below floor, exposure flattened",
		Details:    fmt.Sprintf("balance=%.8f floor=%.8f symbol=%s", balance, m.floor, symbol),
	}
	if _, err := m.events.Append(ctx, event); err != nil {
		m.logger.Error(ctx, err, "Failed to record failsafe event")
	}
}
