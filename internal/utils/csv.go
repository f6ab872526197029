package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/gr-satt/bordem/internal/domain"
)

func WriteCandlesToCSV(candles []*domain.Candle, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"timestamp", "symbol", "timeframe", "open", "high", "low", "close", "volume", "trades", "vwap", "turnover"})

	for _, c := range candles {
		writer.Write([]string{
			c.Timestamp.Format(time.RFC3339),
			c.Symbol,
			c.Timeframe,
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
			strconv.FormatFloat(c.Trades, 'f', -1, 64),
			strconv.FormatFloat(c.VWAP, 'f', -1, 64),
			strconv.FormatFloat(c.Turnover, 'f', -1, 64),
		})
	}
	return writer.Error()
}
