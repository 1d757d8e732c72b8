// Package candle validates and coerces raw OHLCV input into the strict
// numeric series the indicator handlers operate on.
package candle

import (
	"encoding/json"
	"math"
	"strconv"

	"tradedash/internal/model"
)

// Raw is one loosely-typed candle row as posted by the chart frontend or
// returned by the broker API. Fields may be numbers, numeric strings, or
// absent; the normalizer sorts that out.
type Raw struct {
	Time   any `json:"time"`
	Open   any `json:"open"`
	High   any `json:"high"`
	Low    any `json:"low"`
	Close  any `json:"close"`
	Volume any `json:"volume"`
	HL2    any `json:"hl2,omitempty"`
	HLC3   any `json:"hlc3,omitempty"`
	OHLC4  any `json:"ohlc4,omitempty"`
}

// Normalize coerces raw rows into model.Candles. Rows whose time or close is
// not a finite number are dropped. Missing open/high/low fall back to close,
// missing volume to 0. Derived hl2/hlc3/ohlc4 are taken from the row if
// present, otherwise computed.
//
// Callers must feed rows already sorted by time: indicator math is positional
// over the window, not time-indexed, so Normalize does not re-sort.
// Empty or nil input yields an empty series, never an error.
func Normalize(rows []Raw) []model.Candle {
	if len(rows) == 0 {
		return nil
	}
	out := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		ts, tok := toFloat(r.Time)
		cl, cok := toFloat(r.Close)
		if !tok || !cok || !isFinite(ts) || !isFinite(cl) {
			continue
		}

		c := model.Candle{Time: int64(ts), Close: cl}
		c.Open = numOr(r.Open, cl)
		c.High = numOr(r.High, cl)
		c.Low = numOr(r.Low, cl)
		c.Volume = numOr(r.Volume, 0)
		if c.Volume < 0 {
			c.Volume = 0
		}

		c.HL2 = numOr(r.HL2, (c.High+c.Low)/2)
		c.HLC3 = numOr(r.HLC3, (c.High+c.Low+c.Close)/3)
		c.OHLC4 = numOr(r.OHLC4, (c.Open+c.High+c.Low+c.Close)/4)

		// Duplicate timestamps break positional warm-up math; keep the
		// first occurrence.
		if n := len(out); n > 0 && out[n-1].Time >= c.Time {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FromCandles re-derives hl2/hlc3/ohlc4 on already-typed candles, e.g. ones
// parsed straight from the broker history API.
func FromCandles(in []model.Candle) []model.Candle {
	out := make([]model.Candle, 0, len(in))
	for _, c := range in {
		if !isFinite(c.Close) {
			continue
		}
		c.HL2 = (c.High + c.Low) / 2
		c.HLC3 = (c.High + c.Low + c.Close) / 3
		c.OHLC4 = (c.Open + c.High + c.Low + c.Close) / 4
		if n := len(out); n > 0 && out[n-1].Time >= c.Time {
			continue
		}
		out = append(out, c)
	}
	return out
}

func numOr(v any, fallback float64) float64 {
	f, ok := toFloat(v)
	if !ok || !isFinite(f) {
		return fallback
	}
	return f
}

// toFloat coerces the value shapes encoding/json can produce, plus the int
// types that show up when rows are built in Go code.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
