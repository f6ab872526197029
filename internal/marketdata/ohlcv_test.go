package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-satt/bordem/internal/adapters/logger"
	"github.com/gr-satt/bordem/internal/bitmex"
	"github.com/gr-satt/bordem/internal/ports"
)

type capturedRequest struct {
	method string
	path   string
	query  string
}

func newTestService(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Service, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		w.Header().Set("x-ratelimit-limit", "60")
		w.Header().Set("x-ratelimit-remaining", "59")
		w.Header().Set("x-ratelimit-reset", "1700000000")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := bitmex.New(bitmex.Config{
		Logger:    logger.NewStdLogger(logger.LevelError),
		BaseURL:   srv.URL,
		Transport: http.DefaultTransport,
	})
	require.NoError(t, err)

	svc, err := New(Config{Client: client, Logger: logger.NewStdLogger(logger.LevelError)})
	require.NoError(t, err)
	return svc, captured
}

func TestCandles(t *testing.T) {
	// Newest first, as the endpoint returns with reverse=true.
	payload := `[
		{"timestamp":"2024-05-01T02:00:00.000Z","symbol":"XBTUSD","open":103,"high":104,"low":102,"close":103.5,"volume":300,"trades":30,"vwap":103.2,"turnover":3000},
		{"timestamp":"2024-05-01T01:00:00.000Z","symbol":"XBTUSD","open":101,"high":103,"low":100,"close":103,"volume":200,"trades":20,"vwap":102.1,"turnover":2000},
		{"timestamp":"2024-05-01T00:00:00.000Z","symbol":"XBTUSD","open":100,"high":102,"low":99,"close":101,"volume":100,"trades":10,"vwap":100.5,"turnover":1000}
	]`
	svc, captured := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	})

	candles, err := svc.Candles(context.Background(), "XBTUSD", "1h", 3)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "/trade/bucketed", captured.path)
	assert.Equal(t, "binSize=1h&count=3&partial=true&reverse=true&symbol=XBTUSD", captured.query)

	// Chronological order after the flip.
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 103.5, candles[2].Close)
	assert.True(t, candles[0].Timestamp.Before(candles[1].Timestamp))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), candles[0].Timestamp.UTC())
	assert.Equal(t, "XBTUSD", candles[0].Symbol)
	assert.Equal(t, "1h", candles[0].Timeframe)
	assert.Equal(t, 100.0, candles[0].Volume)
	assert.Equal(t, 100.5, candles[0].VWAP)
}

func TestCandlesDropsIncompleteRows(t *testing.T) {
	payload := `[
		{"timestamp":"2024-05-01T01:00:00.000Z","symbol":"XBTUSD","open":101,"high":103,"low":100,"close":103},
		{"timestamp":"2024-05-01T00:00:00.000Z","symbol":"XBTUSD","open":null,"high":null,"low":null,"close":null}
	]`
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	})

	candles, err := svc.Candles(context.Background(), "XBTUSD", "1h", 2)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 101.0, candles[0].Open)
}

func TestCandlesRejectsUnknownTimeframe(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := svc.Candles(context.Background(), "XBTUSD", "15m", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrUnsupportedTimeframe)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{Logger: logger.NewStdLogger(logger.LevelError)})
	assert.ErrorIs(t, err, ports.ErrConfiguration)

	client, err := bitmex.New(bitmex.Config{Logger: logger.NewStdLogger(logger.LevelError)})
	require.NoError(t, err)
	_, err = New(Config{Client: client})
	assert.ErrorIs(t, err, ports.ErrConfiguration)
}
