package model

import "encoding/json"

// Candle is one normalized OHLCV bar. Time is a unix timestamp in seconds;
// the whole pipeline uses the same unit. Prices are float64 because candles
// arrive from the broker API already as decimal rupees.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`

	// Derived price sources, filled in by the normalizer.
	HL2   float64 `json:"hl2,omitempty"`
	HLC3  float64 `json:"hlc3,omitempty"`
	OHLC4 float64 `json:"ohlc4,omitempty"`
}

// Source returns the named price source of the candle. Unknown names fall
// back to close, matching what the chart does when a source is misspelled.
func (c *Candle) Source(name string) float64 {
	switch name {
	case "hl2":
		return c.HL2
	case "hlc3":
		return c.HLC3
	case "ohlc4":
		return c.OHLC4
	default:
		return c.Close
	}
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
