package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gr-satt/bordem/internal/bitmex"
	"github.com/gr-satt/bordem/internal/domain"
	"github.com/gr-satt/bordem/internal/ports"
)

// supportedTimeframes are the bucket sizes the trade/bucketed endpoint accepts.
var supportedTimeframes = []string{"1m", "5m", "1h", "1d"}

// Service implements ports.MarketData: OHLCV retrieval plus the indicator
// catalog over the retrieved candles.
type Service struct {
	client *bitmex.Client
	logger ports.Logger
}

// Config holds configuration for the market data facade.
type Config struct {
	Client *bitmex.Client
	Logger ports.Logger
}

// New creates a new market data facade.
func New(cfg Config) (*Service, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: exchange client is required for market data service", ports.ErrConfiguration)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for market data service", ports.ErrConfiguration)
	}
	return &Service{client: cfg.Client, logger: cfg.Logger}, nil
}

// Candles retrieves the last count candles for symbol in chronological order.
func (s *Service) Candles(ctx context.Context, symbol, timeframe string, count int) ([]*domain.Candle, error) {
	if !timeframeSupported(timeframe) {
		return nil, fmt.Errorf("%w: %q (supported: %v)", ports.ErrUnsupportedTimeframe, timeframe, supportedTimeframes)
	}

	params := url.Values{}
	params.Set("binSize", timeframe)
	params.Set("partial", "true")
	params.Set("symbol", symbol)
	params.Set("count", strconv.Itoa(count))
	params.Set("reverse", "true")

	env, err := s.client.Request(ctx, bitmex.OpTradeBucketed, params)
	if err != nil {
		return nil, err
	}

	// The endpoint returns newest first; flip to chronological order and drop
	// rows missing core OHLC fields.
	candles := make([]*domain.Candle, 0, len(env.Records))
	for i := len(env.Records) - 1; i >= 0; i-- {
		if c, ok := parseCandle(env.Records[i], timeframe); ok {
			candles = append(candles, c)
		}
	}
	s.logger.Debug(ctx, "Candles retrieved", map[string]interface{}{
		"symbol": symbol, "timeframe": timeframe, "requested": count, "usable": len(candles),
	})
	return candles, nil
}

func timeframeSupported(timeframe string) bool {
	for _, tf := range supportedTimeframes {
		if tf == timeframe {
			return true
		}
	}
	return false
}

// parseCandle maps one trade/bucketed record onto a Candle. Records without
// the four price fields are unusable for indicator math and are dropped.
func parseCandle(rec bitmex.Record, timeframe string) (*domain.Candle, bool) {
	open, okO := rec.Float("open")
	high, okH := rec.Float("high")
	low, okL := rec.Float("low")
	cls, okC := rec.Float("close")
	if !okO || !okH || !okL || !okC {
		return nil, false
	}

	c := &domain.Candle{
		Timeframe: timeframe,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
	}
	if ts, ok := rec.Str("timestamp"); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			c.Timestamp = parsed
		}
	}
	c.Symbol, _ = rec.Str("symbol")
	c.Volume, _ = rec.Float("volume")
	c.Trades, _ = rec.Float("trades")
	c.VWAP, _ = rec.Float("vwap")
	c.Turnover, _ = rec.Float("turnover")
	return c, true
}
