package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-satt/bordem/internal/ports"
)

// candlePayload builds a newest-first trade/bucketed response with n rows at
// a constant price level.
func candlePayload(n int, price float64) string {
	rows := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		rows = append(rows, fmt.Sprintf(
			`{"timestamp":"2024-05-01T%02d:00:00.000Z","symbol":"XBTUSD","open":%f,"high":%f,"low":%f,"close":%f,"volume":100}`,
			i%24, price, price+1, price-1, price))
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func TestIndicatorSMAConstantSeries(t *testing.T) {
	svc, captured := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candlePayload(20, 100)))
	})

	result, err := svc.Indicator(context.Background(), ports.IndicatorRequest{
		Symbol:    "XBTUSD",
		Timeframe: "1h",
		Name:      "SMA",
		Period:    14,
		Instances: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "SMA", result.Name)
	require.Contains(t, result.Outputs, "value")
	values := result.Outputs["value"]
	require.Len(t, values, 3)
	for _, v := range values {
		assert.InDelta(t, 100.0, v, 1e-9)
	}

	// Enough candles are fetched to warm up the lookback window.
	assert.Contains(t, captured.query, "count=17")
}

func TestIndicatorLowercaseNameAndOpenSource(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candlePayload(20, 250)))
	})

	result, err := svc.Indicator(context.Background(), ports.IndicatorRequest{
		Symbol:    "XBTUSD",
		Timeframe: "1h",
		Name:      "ema",
		Period:    10,
		Source:    "open",
		Instances: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "EMA", result.Name)
	require.Len(t, result.Outputs["value"], 2)
	assert.InDelta(t, 250.0, result.Outputs["value"][0], 1e-9)
}

func TestIndicatorMultiOutput(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candlePayload(60, 100)))
	})

	result, err := svc.Indicator(context.Background(), ports.IndicatorRequest{
		Symbol:    "XBTUSD",
		Timeframe: "1h",
		Name:      "MACD",
		Period:    26,
		Instances: 2,
	})
	require.NoError(t, err)

	require.Len(t, result.Outputs, 3)
	for _, out := range []string{"macd", "signal", "hist"} {
		require.Contains(t, result.Outputs, out)
		assert.Len(t, result.Outputs[out], 2)
	}
	// Constant price means zero momentum once warmed up.
	assert.InDelta(t, 0.0, result.Outputs["macd"][1], 1e-9)
}

func TestIndicatorBollingerBands(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candlePayload(40, 100)))
	})

	result, err := svc.Indicator(context.Background(), ports.IndicatorRequest{
		Symbol:    "XBTUSD",
		Timeframe: "1h",
		Name:      "BBANDS",
		Period:    20,
		Instances: 1,
	})
	require.NoError(t, err)

	require.Len(t, result.Outputs["middle"], 1)
	assert.InDelta(t, 100.0, result.Outputs["middle"][0], 1e-9)
	// Zero variance collapses the bands onto the middle line.
	assert.InDelta(t, result.Outputs["middle"][0], result.Outputs["upper"][0], 1e-9)
	assert.InDelta(t, result.Outputs["middle"][0], result.Outputs["lower"][0], 1e-9)
}

func TestIndicatorUnknownName(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := svc.Indicator(context.Background(), ports.IndicatorRequest{
		Symbol:    "XBTUSD",
		Timeframe: "1h",
		Name:      "SUPERTREND",
		Period:    14,
		Instances: 1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUnsupportedIndicator)
}

func TestIndicatorUnknownSource(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := svc.Indicator(context.Background(), ports.IndicatorRequest{
		Symbol:    "XBTUSD",
		Timeframe: "1h",
		Name:      "RSI",
		Period:    14,
		Source:    "hl2",
		Instances: 1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUnsupportedSource)
}

// syntheticColumns builds n candles of gently varying prices so every
// catalog entry has a usable series (positive lows, nonzero volume).
func syntheticColumns(n int) columns {
	cols := columns{
		open:   make([]float64, n),
		high:   make([]float64, n),
		low:    make([]float64, n),
		close:  make([]float64, n),
		volume: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		base := 100 + float64(i%7)
		cols.open[i] = base
		cols.high[i] = base + 2
		cols.low[i] = base - 2
		cols.close[i] = base + 1
		cols.volume[i] = 1000 + float64(i)
	}
	cols.source = cols.close
	return cols
}

func TestCatalogEveryEntryComputes(t *testing.T) {
	cols := syntheticColumns(120)
	for name, spec := range catalog {
		t.Run(name, func(t *testing.T) {
			series := spec.compute(cols, 14)
			require.Len(t, series, len(spec.outputs))
			for i, out := range spec.outputs {
				assert.Len(t, series[i], 120, "output %q", out)
			}
		})
	}
}

func TestIndicatorMinMaxIndex(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candlePayload(30, 100)))
	})

	result, err := svc.Indicator(context.Background(), ports.IndicatorRequest{
		Symbol:    "XBTUSD",
		Timeframe: "1h",
		Name:      "MINMAXINDEX",
		Period:    14,
		Instances: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 2)
	require.Contains(t, result.Outputs, "minidx")
	require.Contains(t, result.Outputs, "maxidx")
	assert.Len(t, result.Outputs["minidx"], 2)
	assert.Len(t, result.Outputs["maxidx"], 2)
}

func TestSupportedCoversCatalog(t *testing.T) {
	names := Supported()
	assert.Equal(t, len(catalog), len(names))
	for _, want := range []string{"SMA", "RSI", "MACD", "BBANDS", "ATR", "OBV", "TRANGE", "MAVP", "MAXINDEX", "MININDEX", "MINMAXINDEX"} {
		assert.Contains(t, names, want)
	}
}
