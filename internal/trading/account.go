package trading

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gr-satt/bordem/internal/bitmex"
	"github.com/gr-satt/bordem/internal/domain"
	"github.com/gr-satt/bordem/internal/ports"
)

const (
	// The wallet endpoint reports balances in satoshis.
	satoshisPerBTC = 100000000

	// bulkRungs is the fixed ladder size of a bulk order.
	bulkRungs = 10
)

// Service implements the ports.Trader account and trading operations by
// calling the request client with particular endpoint names and parameters.
// It carries no state beyond its dependencies.
type Service struct {
	client *bitmex.Client
	logger ports.Logger
	events ports.EventRepository
}

// Config holds configuration for the trading facade.
type Config struct {
	Client *bitmex.Client
	Logger ports.Logger
	Events ports.EventRepository // Optional operational event log
}

// New creates a new trading facade.
func New(cfg Config) (*Service, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: exchange client is required for trading service", ports.ErrConfiguration)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for trading service", ports.ErrConfiguration)
	}
	return &Service{client: cfg.Client, logger: cfg.Logger, events: cfg.Events}, nil
}

// Balance retrieves the wallet balance in BTC.
func (s *Service) Balance(ctx context.Context) (float64, error) {
	env, err := s.client.Request(ctx, bitmex.OpWallet, nil)
	if err != nil {
		return 0, err
	}
	if len(env.Records) == 0 {
		return 0, fmt.Errorf("%w: empty wallet response", ports.ErrDecode)
	}
	amount, ok := env.Records[0].Float("amount")
	if !ok {
		return 0, fmt.Errorf("%w: wallet response missing amount", ports.ErrDecode)
	}

	balance := decimal.NewFromFloat(amount).
		Div(decimal.NewFromInt(satoshisPerBTC)).
		InexactFloat64()
	s.logger.Info(ctx, "Balance retrieved", map[string]interface{}{"balance": balance})
	s.record(ctx, "balance", strconv.FormatFloat(balance, 'f', -1, 64))
	return balance, nil
}

// PositionQty retrieves the open position quantity. A flat account yields zero.
func (s *Service) PositionQty(ctx context.Context) (float64, error) {
	env, err := s.client.Request(ctx, bitmex.OpPosition, nil)
	if err != nil {
		return 0, err
	}
	if len(env.Records) == 0 {
		return 0, nil
	}
	qty, ok := env.Records[0].Float("currentQty")
	if !ok {
		return 0, fmt.Errorf("%w: position response missing currentQty", ports.ErrDecode)
	}
	s.logger.Info(ctx, "Open position quantity retrieved", map[string]interface{}{"qty": qty})
	return qty, nil
}

// LastPrice retrieves the last traded price for a contract symbol.
func (s *Service) LastPrice(ctx context.Context, symbol string) (float64, error) {
	env, err := s.client.Request(ctx, bitmex.OpInstrument, nil)
	if err != nil {
		return 0, err
	}
	for _, rec := range env.Records {
		sym, ok := rec.Str("symbol")
		if !ok || sym != symbol {
			continue
		}
		price, ok := rec.Float("lastPrice")
		if !ok {
			return 0, fmt.Errorf("%w: instrument %s missing lastPrice", ports.ErrDecode, symbol)
		}
		s.logger.Info(ctx, "Last price retrieved", map[string]interface{}{"symbol": symbol, "price": price})
		return price, nil
	}
	return 0, fmt.Errorf("%w: no %s contract in instrument response", ports.ErrSymbolNotFound, symbol)
}

// MarketOrder places a market order. A negative quantity sells.
func (s *Service) MarketOrder(ctx context.Context, symbol string, qty int) (*ports.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderQty", strconv.Itoa(qty))
	params.Set("ordType", string(domain.OrderTypeMarket))

	env, err := s.client.Request(ctx, bitmex.OpOrder, params)
	if err != nil {
		return nil, err
	}
	res, err := firstOrder(env)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Market order placed", map[string]interface{}{"symbol": symbol, "qty": qty, "orderID": res.OrderID})
	s.record(ctx, "market_order", fmt.Sprintf("symbol=%s qty=%d orderID=%s", symbol, qty, res.OrderID))
	return res, nil
}

// LimitOrder places a limit order at the given price.
func (s *Service) LimitOrder(ctx context.Context, symbol string, qty int, price float64) (*ports.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderQty", strconv.Itoa(qty))
	params.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	params.Set("ordType", string(domain.OrderTypeLimit))

	env, err := s.client.Request(ctx, bitmex.OpOrder, params)
	if err != nil {
		return nil, err
	}
	res, err := firstOrder(env)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Limit order placed", map[string]interface{}{"symbol": symbol, "qty": qty, "price": price, "orderID": res.OrderID})
	s.record(ctx, "limit_order", fmt.Sprintf("symbol=%s qty=%d price=%v orderID=%s", symbol, qty, price, res.OrderID))
	return res, nil
}

// BulkOrder places a ladder of ten limit orders. The first rung sits at
// price; every subsequent rung is offset by a further offsetPct percent.
func (s *Service) BulkOrder(ctx context.Context, symbol string, qty int, price float64, offsetPct float64) ([]ports.OrderResult, error) {
	orders := make([]domain.Order, 0, bulkRungs)
	for _, rungPrice := range ladder(price, offsetPct, bulkRungs) {
		orders = append(orders, domain.Order{
			Symbol:   symbol,
			Quantity: qty,
			Price:    rungPrice,
			Type:     domain.OrderTypeLimit,
		})
	}

	payload, err := json.Marshal(toBulkPayload(orders))
	if err != nil {
		return nil, fmt.Errorf("%w: encoding bulk orders: %v", ports.ErrDecode, err)
	}
	params := url.Values{}
	params.Set("orders", string(payload))

	env, err := s.client.Request(ctx, bitmex.OpOrderBulk, params)
	if err != nil {
		return nil, err
	}
	results := make([]ports.OrderResult, 0, len(env.Records))
	for _, rec := range env.Records {
		results = append(results, parseOrder(rec))
	}
	s.logger.Info(ctx, "Bulk order placed", map[string]interface{}{"symbol": symbol, "rungs": len(orders), "acknowledged": len(results)})
	s.record(ctx, "bulk_order", fmt.Sprintf("symbol=%s qty=%d start=%v offsetPct=%v", symbol, qty, price, offsetPct))
	return results, nil
}

// ClosePosition submits a closing order for the open position on symbol.
func (s *Service) ClosePosition(ctx context.Context, symbol string) (*ports.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("execInst", "Close")

	env, err := s.client.Request(ctx, bitmex.OpOrder, params)
	if err != nil {
		return nil, err
	}
	res, err := firstOrder(env)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Position close submitted", map[string]interface{}{"symbol": symbol, "orderID": res.OrderID})
	s.record(ctx, "close_position", "symbol="+symbol)
	return res, nil
}

// CancelAllOrders cancels every open order on the account.
func (s *Service) CancelAllOrders(ctx context.Context) ([]ports.OrderResult, error) {
	env, err := s.client.Request(ctx, bitmex.OpOrderCancelAll, nil)
	if err != nil {
		return nil, err
	}
	results := make([]ports.OrderResult, 0, len(env.Records))
	for _, rec := range env.Records {
		results = append(results, parseOrder(rec))
	}
	s.logger.Info(ctx, "Open orders cancelled", map[string]interface{}{"count": len(results)})
	s.record(ctx, "cancel_all", strconv.Itoa(len(results)))
	return results, nil
}

// OrderQty derives a contract quantity from balance, last price and leverage.
func (s *Service) OrderQty(ctx context.Context, symbol string, leverage int) (int, error) {
	balance, err := s.Balance(ctx)
	if err != nil {
		return 0, err
	}
	price, err := s.LastPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	qty := int(balance * price * float64(leverage))
	s.logger.Info(ctx, "Order quantity derived", map[string]interface{}{"symbol": symbol, "leverage": leverage, "qty": qty})
	return qty, nil
}

func (s *Service) record(ctx context.Context, op, msg string) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Append(ctx, &domain.Event{OccurredAt: time.Now(), Operation: op, Message: msg}); err != nil {
		s.logger.Warn(ctx, "Failed to append operational event", map[string]interface{}{"operation": op, "error": err.Error()})
	}
}

// ladder computes the bulk-order price rungs. Decimal arithmetic keeps the
// rung prices stable regardless of the offset magnitude.
func ladder(price, offsetPct float64, rungs int) []float64 {
	start := decimal.NewFromFloat(price)
	step := decimal.NewFromFloat(offsetPct).Div(decimal.NewFromInt(100))
	out := make([]float64, rungs)
	for i := range out {
		factor := decimal.NewFromInt(1).Add(step.Mul(decimal.NewFromInt(int64(i))))
		out[i] = start.Mul(factor).InexactFloat64()
	}
	return out
}

// bulkEntry is the wire shape of one order inside a bulk submission.
type bulkEntry struct {
	Symbol   string  `json:"symbol"`
	OrderQty int     `json:"orderQty"`
	Price    float64 `json:"price"`
	OrdType  string  `json:"ordType"`
}

func toBulkPayload(orders []domain.Order) []bulkEntry {
	entries := make([]bulkEntry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, bulkEntry{
			Symbol:   o.Symbol,
			OrderQty: o.Quantity,
			Price:    o.Price,
			OrdType:  string(o.Type),
		})
	}
	return entries
}

func firstOrder(env *bitmex.Envelope) (*ports.OrderResult, error) {
	if len(env.Records) == 0 {
		return nil, fmt.Errorf("%w: empty order response", ports.ErrDecode)
	}
	res := parseOrder(env.Records[0])
	return &res, nil
}

func parseOrder(rec bitmex.Record) ports.OrderResult {
	orderID, _ := rec.Str("orderID")
	symbol, _ := rec.Str("symbol")
	qty, _ := rec.Float("orderQty")
	price, _ := rec.Float("price")
	status, _ := rec.Str("ordStatus")
	ordType, _ := rec.Str("ordType")
	execInst, _ := rec.Str("execInst")
	timestamp, _ := rec.Str("timestamp")
	return ports.OrderResult{
		OrderID:   orderID,
		Symbol:    symbol,
		Quantity:  qty,
		Price:     price,
		Status:    status,
		Type:      ordType,
		ExecInst:  execInst,
		Timestamp: timestamp,
	}
}
