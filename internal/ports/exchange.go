package ports

import (
	"context"

	"github.com/gr-satt/bordem/internal/domain"
)

// OrderResult holds the essential fields of an order acknowledgement.
type OrderResult struct {
	OrderID   string  // Exchange's order ID
	Symbol    string  // Symbol for the order
	Quantity  float64 // Quantity acknowledged by the exchange
	Price     float64 // Order price (zero for market orders)
	Status    string  // Order status (e.g., New, Filled, Canceled)
	Type      string  // Order type (Market, Limit)
	ExecInst  string  // Execution instruction, if any (e.g., Close)
	Timestamp string  // Exchange-reported timestamp, verbatim
}

// Trader defines the account and trading operations the application needs.
// This abstraction decouples the orchestration and risk layers from the
// concrete exchange wrapper.
type Trader interface {
	// Balance retrieves the wallet balance denominated in the margin currency (BTC).
	Balance(ctx context.Context) (float64, error)

	// PositionQty retrieves the open position quantity (negative for shorts, zero when flat).
	PositionQty(ctx context.Context) (float64, error)

	// LastPrice retrieves the last traded price for a contract symbol.
	LastPrice(ctx context.Context, symbol string) (float64, error)

	// MarketOrder places a market order. A negative quantity sells.
	MarketOrder(ctx context.Context, symbol string, qty int) (*OrderResult, error)

	// LimitOrder places a limit order at the given price.
	LimitOrder(ctx context.Context, symbol string, qty int, price float64) (*OrderResult, error)

	// BulkOrder places a ladder of ten limit orders starting at price,
	// each rung offset by offsetPct percent from the one below it.
	BulkOrder(ctx context.Context, symbol string, qty int, price float64, offsetPct float64) ([]OrderResult, error)

	// ClosePosition submits a closing order for the open position on symbol.
	ClosePosition(ctx context.Context, symbol string) (*OrderResult, error)

	// CancelAllOrders cancels every open order on the account.
	CancelAllOrders(ctx context.Context) ([]OrderResult, error)

	// OrderQty derives a contract quantity from balance, last price and leverage.
	OrderQty(ctx context.Context, symbol string, leverage int) (int, error)
}

// MarketData defines the OHLCV and indicator retrieval operations.
type MarketData interface {
	// Candles retrieves the last count candles for symbol at the given timeframe,
	// in chronological order.
	Candles(ctx context.Context, symbol, timeframe string, count int) ([]*domain.Candle, error)

	// Indicator fetches enough candles and computes the named indicator over them.
	Indicator(ctx context.Context, req IndicatorRequest) (*IndicatorResult, error)
}

// IndicatorRequest names an indicator computation over retrieved candles.
type IndicatorRequest struct {
	Symbol    string
	Timeframe string
	Name      string // TA-Lib style name, e.g. "RSI", "BBANDS"
	Period    int
	Source    string // "open" or "close"; defaults to "close"
	Instances int    // Number of trailing values to return
}

// IndicatorResult carries the named output series of one indicator computation.
// Single-output indicators use one entry keyed "value"; multi-output
// indicators use the conventional output names (e.g. "macd", "signal", "hist").
type IndicatorResult struct {
	Name    string
	Outputs map[string][]float64
}
