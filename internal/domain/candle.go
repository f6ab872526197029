package domain

import "time"

// Candle represents a single OHLCV bucket returned by the exchange.
type Candle struct {
	Timestamp time.Time // Bucket close timestamp as reported by the exchange
	Symbol    string    // Trading symbol (e.g., "XBTUSD")
	Timeframe string    // Bucket size (e.g., "1m", "1h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Traded volume
	Trades    float64   // Number of trades in the bucket
	VWAP      float64   // Volume-weighted average price
	Turnover  float64   // Quote turnover
}
