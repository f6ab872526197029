package marketdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"

	"github.com/gr-satt/bordem/internal/domain"
	"github.com/gr-satt/bordem/internal/ports"
)

// columns holds the candle series in column form, plus the configured source
// series (open or close) most single-series indicators operate on.
type columns struct {
	open, high, low, close, volume []float64
	source                         []float64
}

type computeFunc func(c columns, period int) [][]float64

// indicatorSpec describes one catalog entry: its output names (in the order
// the compute function returns them) and the computation itself.
type indicatorSpec struct {
	outputs []string
	compute computeFunc
}

// Indicator computes the named indicator on freshly retrieved candles and
// returns the trailing req.Instances values of each output series.
func (s *Service) Indicator(ctx context.Context, req ports.IndicatorRequest) (*ports.IndicatorResult, error) {
	name := strings.ToUpper(req.Name)
	spec, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedIndicator, req.Name)
	}

	source := req.Source
	if source == "" {
		source = "close"
	}
	if source != "open" && source != "close" {
		return nil, fmt.Errorf("%w: %q (use open or close)", ports.ErrUnsupportedSource, req.Source)
	}

	period := req.Period
	if period <= 0 {
		period = 30
	}
	instances := req.Instances
	if instances <= 0 {
		instances = 1
	}

	candles, err := s.Candles(ctx, req.Symbol, req.Timeframe, instances+period)
	if err != nil {
		return nil, err
	}

	cols := toColumns(candles, source)
	series := spec.compute(cols, period)

	result := &ports.IndicatorResult{
		Name:    name,
		Outputs: make(map[string][]float64, len(spec.outputs)),
	}
	for i, out := range spec.outputs {
		result.Outputs[out] = tail(series[i], instances)
	}
	s.logger.Debug(ctx, "Indicator computed", map[string]interface{}{
		"name": name, "symbol": req.Symbol, "timeframe": req.Timeframe,
		"period": period, "instances": instances,
	})
	return result, nil
}

func toColumns(candles []*domain.Candle, source string) columns {
	n := len(candles)
	cols := columns{
		open:   make([]float64, n),
		high:   make([]float64, n),
		low:    make([]float64, n),
		close:  make([]float64, n),
		volume: make([]float64, n),
	}
	for i, c := range candles {
		cols.open[i] = c.Open
		cols.high[i] = c.High
		cols.low[i] = c.Low
		cols.close[i] = c.Close
		cols.volume[i] = c.Volume
	}
	if source == "open" {
		cols.source = cols.open
	} else {
		cols.source = cols.close
	}
	return cols
}

func tail(series []float64, n int) []float64 {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}

// Supported returns the catalog's indicator names. The slice order is not
// stable across calls.
func Supported() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	return names
}

func one(f func(c columns, period int) []float64) computeFunc {
	return func(c columns, period int) [][]float64 {
		return [][]float64{f(c, period)}
	}
}

func fromSource(f func(in []float64, period int) []float64) computeFunc {
	return one(func(c columns, period int) []float64 { return f(c.source, period) })
}

func fromSourceOnly(f func(in []float64) []float64) computeFunc {
	return one(func(c columns, _ int) []float64 { return f(c.source) })
}

func fromHL(f func(high, low []float64, period int) []float64) computeFunc {
	return one(func(c columns, period int) []float64 { return f(c.high, c.low, period) })
}

// fromHLC feeds the configured source series in place of the close column so
// an "open" source request carries through to high/low/close indicators.
func fromHLC(f func(high, low, close []float64, period int) []float64) computeFunc {
	return one(func(c columns, period int) []float64 { return f(c.high, c.low, c.source, period) })
}

var catalog = map[string]indicatorSpec{
	// Overlap studies.
	"BBANDS": {outputs: []string{"upper", "middle", "lower"}, compute: func(c columns, period int) [][]float64 {
		upper, middle, lower := talib.BBands(c.source, period, 2.0, 2.0, talib.SMA)
		return [][]float64{upper, middle, lower}
	}},
	"DEMA": {outputs: []string{"value"}, compute: fromSource(talib.Dema)},
	"EMA":  {outputs: []string{"value"}, compute: fromSource(talib.Ema)},
	"HT_TRENDLINE": {outputs: []string{"value"}, compute: fromSourceOnly(talib.HtTrendline)},
	"KAMA":     {outputs: []string{"value"}, compute: fromSource(talib.Kama)},
	"MA":       {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 { return talib.Ma(c.source, period, talib.SMA) })},
	"MAMA": {outputs: []string{"mama", "fama"}, compute: func(c columns, _ int) [][]float64 {
		mama, fama := talib.Mama(c.source, 0.5, 0.05)
		return [][]float64{mama, fama}
	}},
	"MAVP": {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 {
		// Variable-period moving average over a constant period series,
		// bounded at half and double the requested period.
		periods := make([]float64, len(c.source))
		for i := range periods {
			periods[i] = float64(period)
		}
		minPeriod := period / 2
		if minPeriod < 2 {
			minPeriod = 2
		}
		return talib.MaVp(c.source, periods, minPeriod, period*2, talib.SMA)
	})},
	"MIDPOINT": {outputs: []string{"value"}, compute: fromSource(talib.MidPoint)},
	"MIDPRICE": {outputs: []string{"value"}, compute: fromHL(talib.MidPrice)},
	"SAR":      {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.Sar(c.high, c.low, 0.02, 0.2) })},
	"SMA":      {outputs: []string{"value"}, compute: fromSource(talib.Sma)},
	"T3":       {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 { return talib.T3(c.source, period, 0.7) })},
	"TEMA":     {outputs: []string{"value"}, compute: fromSource(talib.Tema)},
	"TRIMA":    {outputs: []string{"value"}, compute: fromSource(talib.Trima)},
	"WMA":      {outputs: []string{"value"}, compute: fromSource(talib.Wma)},

	// Momentum indicators.
	"ADX":      {outputs: []string{"value"}, compute: fromHLC(talib.Adx)},
	"ADXR":     {outputs: []string{"value"}, compute: fromHLC(talib.AdxR)},
	"APO":      {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.Apo(c.source, 12, 26, talib.SMA) })},
	"AROON": {outputs: []string{"aroondown", "aroonup"}, compute: func(c columns, period int) [][]float64 {
		down, up := talib.Aroon(c.high, c.low, period)
		return [][]float64{down, up}
	}},
	"AROONOSC": {outputs: []string{"value"}, compute: fromHL(talib.AroonOsc)},
	"BOP":      {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.Bop(c.open, c.high, c.low, c.close) })},
	"CCI":      {outputs: []string{"value"}, compute: fromHLC(talib.Cci)},
	"CMO":      {outputs: []string{"value"}, compute: fromSource(talib.Cmo)},
	"DX":       {outputs: []string{"value"}, compute: fromHLC(talib.Dx)},
	"MACD": {outputs: []string{"macd", "signal", "hist"}, compute: func(c columns, _ int) [][]float64 {
		macd, signal, hist := talib.Macd(c.source, 12, 26, 9)
		return [][]float64{macd, signal, hist}
	}},
	"MACDEXT": {outputs: []string{"macd", "signal", "hist"}, compute: func(c columns, _ int) [][]float64 {
		macd, signal, hist := talib.MacdExt(c.source, 12, talib.SMA, 26, talib.SMA, 9, talib.SMA)
		return [][]float64{macd, signal, hist}
	}},
	"MACDFIX": {outputs: []string{"macd", "signal", "hist"}, compute: func(c columns, _ int) [][]float64 {
		macd, signal, hist := talib.MacdFix(c.source, 9)
		return [][]float64{macd, signal, hist}
	}},
	"MFI": {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 {
		return talib.Mfi(c.high, c.low, c.source, c.volume, period)
	})},
	"MINUS_DI": {outputs: []string{"value"}, compute: fromHLC(talib.MinusDI)},
	"MINUS_DM": {outputs: []string{"value"}, compute: fromHL(talib.MinusDM)},
	"MOM":      {outputs: []string{"value"}, compute: fromSource(talib.Mom)},
	"PLUS_DI":  {outputs: []string{"value"}, compute: fromHLC(talib.PlusDI)},
	"PLUS_DM":  {outputs: []string{"value"}, compute: fromHL(talib.PlusDM)},
	"PPO":      {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.Ppo(c.source, 12, 26, talib.SMA) })},
	"ROC":      {outputs: []string{"value"}, compute: fromSource(talib.Roc)},
	"ROCP":     {outputs: []string{"value"}, compute: fromSource(talib.Rocp)},
	"ROCR100":  {outputs: []string{"value"}, compute: fromSource(talib.Rocr100)},
	"RSI":      {outputs: []string{"value"}, compute: fromSource(talib.Rsi)},
	"STOCH": {outputs: []string{"slowk", "slowd"}, compute: func(c columns, _ int) [][]float64 {
		slowK, slowD := talib.Stoch(c.high, c.low, c.source, 5, 3, talib.SMA, 3, talib.SMA)
		return [][]float64{slowK, slowD}
	}},
	"STOCHF": {outputs: []string{"fastk", "fastd"}, compute: func(c columns, _ int) [][]float64 {
		fastK, fastD := talib.StochF(c.high, c.low, c.source, 5, 3, talib.SMA)
		return [][]float64{fastK, fastD}
	}},
	"STOCHRSI": {outputs: []string{"fastk", "fastd"}, compute: func(c columns, period int) [][]float64 {
		fastK, fastD := talib.StochRsi(c.source, period, 5, 3, talib.SMA)
		return [][]float64{fastK, fastD}
	}},
	"TRIX": {outputs: []string{"value"}, compute: fromSource(talib.Trix)},
	"ULTOSC": {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 {
		return talib.UltOsc(c.high, c.low, c.source, 7, 14, 28)
	})},
	"WILLR": {outputs: []string{"value"}, compute: fromHLC(talib.WillR)},

	// Volume indicators.
	"AD": {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 {
		return talib.Ad(c.high, c.low, c.source, c.volume)
	})},
	"ADOSC": {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 {
		return talib.AdOsc(c.high, c.low, c.source, c.volume, 3, 10)
	})},
	"OBV": {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.Obv(c.source, c.volume) })},

	// Volatility indicators.
	"ATR":    {outputs: []string{"value"}, compute: fromHLC(talib.Atr)},
	"NATR":   {outputs: []string{"value"}, compute: fromHLC(talib.Natr)},
	"TRANGE": {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.TRange(c.high, c.low, c.source) })},

	// Price transforms.
	"AVGPRICE": {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 {
		return talib.AvgPrice(c.open, c.high, c.low, c.source)
	})},
	"MEDPRICE": {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.MedPrice(c.high, c.low) })},
	"TYPPRICE": {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.TypPrice(c.high, c.low, c.source) })},
	"WCLPRICE": {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.WclPrice(c.high, c.low, c.source) })},

	// Cycle indicators.
	"HT_DCPERIOD": {outputs: []string{"value"}, compute: fromSourceOnly(talib.HtDcPeriod)},
	"HT_DCPHASE":  {outputs: []string{"value"}, compute: fromSourceOnly(talib.HtDcPhase)},
	"HT_PHASOR": {outputs: []string{"inphase", "quadrature"}, compute: func(c columns, _ int) [][]float64 {
		inPhase, quadrature := talib.HtPhasor(c.source)
		return [][]float64{inPhase, quadrature}
	}},
	"HT_SINE": {outputs: []string{"sine", "leadsine"}, compute: func(c columns, _ int) [][]float64 {
		sine, leadSine := talib.HtSine(c.source)
		return [][]float64{sine, leadSine}
	}},
	"HT_TRENDMODE": {outputs: []string{"value"}, compute: fromSourceOnly(talib.HtTrendMode)},

	// Statistic functions.
	"BETA":   {outputs: []string{"value"}, compute: fromHL(talib.Beta)},
	"CORREL": {outputs: []string{"value"}, compute: fromHL(talib.Correl)},
	"LINEARREG":           {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 { return talib.LinearReg(c.close, period) })},
	"LINEARREG_ANGLE":     {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 { return talib.LinearRegAngle(c.close, period) })},
	"LINEARREG_INTERCEPT": {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 { return talib.LinearRegIntercept(c.close, period) })},
	"LINEARREG_SLOPE":     {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 { return talib.LinearRegSlope(c.close, period) })},
	"STDDEV": {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 { return talib.StdDev(c.close, period, 1.0) })},
	"TSF":    {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 { return talib.Tsf(c.close, period) })},
	"VAR":    {outputs: []string{"value"}, compute: one(func(c columns, period int) []float64 { return talib.Var(c.close, period) })},

	// Math transforms and operators.
	"ACOS":  {outputs: []string{"value"}, compute: fromSourceOnly(talib.Acos)},
	"ASIN":  {outputs: []string{"value"}, compute: fromSourceOnly(talib.Asin)},
	"ATAN":  {outputs: []string{"value"}, compute: fromSourceOnly(talib.Atan)},
	"CEIL":  {outputs: []string{"value"}, compute: fromSourceOnly(talib.Ceil)},
	"COS":   {outputs: []string{"value"}, compute: fromSourceOnly(talib.Cos)},
	"COSH":  {outputs: []string{"value"}, compute: fromSourceOnly(talib.Cosh)},
	"EXP":   {outputs: []string{"value"}, compute: fromSourceOnly(talib.Exp)},
	"FLOOR": {outputs: []string{"value"}, compute: fromSourceOnly(talib.Floor)},
	"LN":    {outputs: []string{"value"}, compute: fromSourceOnly(talib.Ln)},
	"LOG10": {outputs: []string{"value"}, compute: fromSourceOnly(talib.Log10)},
	"SIN":   {outputs: []string{"value"}, compute: fromSourceOnly(talib.Sin)},
	"SINH":  {outputs: []string{"value"}, compute: fromSourceOnly(talib.Sinh)},
	"SQRT":  {outputs: []string{"value"}, compute: fromSourceOnly(talib.Sqrt)},
	"TAN":   {outputs: []string{"value"}, compute: fromSourceOnly(talib.Tan)},
	"TANH":  {outputs: []string{"value"}, compute: fromSourceOnly(talib.Tanh)},
	"ADD":   {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.Add(c.high, c.low) })},
	"DIV":   {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.Div(c.high, c.low) })},
	"MULT":  {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.Mult(c.high, c.low) })},
	"SUB":   {outputs: []string{"value"}, compute: one(func(c columns, _ int) []float64 { return talib.Sub(c.high, c.low) })},
	"MAX":      {outputs: []string{"value"}, compute: fromSource(talib.Max)},
	"MAXINDEX": {outputs: []string{"value"}, compute: fromSource(talib.MaxIndex)},
	"MIN":      {outputs: []string{"value"}, compute: fromSource(talib.Min)},
	"MININDEX": {outputs: []string{"value"}, compute: fromSource(talib.MinIndex)},
	"MINMAX": {outputs: []string{"min", "max"}, compute: func(c columns, period int) [][]float64 {
		min, max := talib.MinMax(c.source, period)
		return [][]float64{min, max}
	}},
	"MINMAXINDEX": {outputs: []string{"minidx", "maxidx"}, compute: func(c columns, period int) [][]float64 {
		minIdx, maxIdx := talib.MinMaxIndex(c.source, period)
		return [][]float64{minIdx, maxIdx}
	}},
	"SUM": {outputs: []string{"value"}, compute: fromSource(talib.Sum)},
}
