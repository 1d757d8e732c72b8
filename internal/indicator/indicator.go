// Package indicator provides the technical indicator function library.
//
// Every indicator is a pure Handler: candles plus parameters in, time-aligned
// output rows out. Handlers keep no state between calls and never mutate
// their input, so they are safe to call concurrently.
//
// Warm-up policy: a handler whose window needs p prior samples emits its
// first row at the p-1'th candle (or the documented equivalent); it never
// extrapolates. Given fewer candles than the minimum window it returns an
// empty result, not an error.
package indicator

import "tradedash/internal/model"

// Row is one output sample of a handler: a timestamp plus one or more named
// numeric fields. Single-output indicators use the generic "value" field;
// multi-output indicators (MACD, Bollinger, ...) carry one field per line.
type Row struct {
	Time   int64
	Fields map[string]float64
}

// Handler computes one indicator family over a candle series.
type Handler func(candles []model.Candle, p Params) ([]Row, error)

// handlers binds the handler names stored in the configuration store to
// functions. The table is fixed at compile time; an unknown name in the
// store is a configuration error surfaced at registry load, not a crash.
var handlers = map[string]Handler{
	"sma":        SMA,
	"ema":        EMA,
	"wma":        WMA,
	"smma":       SMMA,
	"hma":        HMA,
	"vwap":       VWAP,
	"vwma":       VWMA,
	"obv":        OBV,
	"macd":       MACD,
	"rsi":        RSI,
	"stochastic": Stochastic,
	"stochrsi":   StochRSI,
	"cci":        CCI,
	"bbands":     BollingerBands,
	"atr":        ATR,
	"adx":        ADX,
	"donchian":   Donchian,
	"double_ma":  DoubleMA,
	"triple_ma":  TripleMA,
}

// Lookup resolves a handler name from the configuration store.
func Lookup(name string) (Handler, bool) {
	h, ok := handlers[name]
	return h, ok
}

// valueRow builds a single-field row keyed by the generic "value" field.
func valueRow(t int64, v float64) Row {
	return Row{Time: t, Fields: map[string]float64{"value": v}}
}
