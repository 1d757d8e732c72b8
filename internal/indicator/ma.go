package indicator

import (
	"math"

	"tradedash/internal/model"
)

// SMA emits the simple moving average of close over "period" (default 20).
func SMA(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 20)
	if err != nil {
		return nil, err
	}
	vals := smaSeries(closes(candles), period)
	return rowsFromOffset(candles, vals, period-1), nil
}

// EMA emits the exponential moving average of close over "period"
// (default 20), seeded with the simple average of the first period closes.
func EMA(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 20)
	if err != nil {
		return nil, err
	}
	vals := emaSeries(closes(candles), period)
	return rowsFromOffset(candles, vals, period-1), nil
}

// WMA emits the linearly weighted moving average of close over "period"
// (default 20).
func WMA(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 20)
	if err != nil {
		return nil, err
	}
	vals := wmaSeries(closes(candles), period)
	return rowsFromOffset(candles, vals, period-1), nil
}

// SMMA emits Wilder's smoothed moving average of close over "period"
// (default 14).
func SMMA(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 14)
	if err != nil {
		return nil, err
	}
	vals := smmaSeries(closes(candles), period)
	return rowsFromOffset(candles, vals, period-1), nil
}

// HMA emits the Hull moving average:
// WMA(2*WMA(close, period/2) - WMA(close, period), sqrt(period)),
// with period/2 and sqrt(period) floored to integers. Default period 20.
func HMA(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 20)
	if err != nil {
		return nil, err
	}
	half := period / 2
	if half < 1 {
		half = 1
	}
	sqrtP := int(math.Floor(math.Sqrt(float64(period))))
	if sqrtP < 1 {
		sqrtP = 1
	}

	cl := closes(candles)
	wmaHalf := wmaSeries(cl, half)
	wmaFull := wmaSeries(cl, period)
	if wmaFull == nil {
		return nil, nil
	}

	// Both sub-averages are defined from candle index period-1 on.
	shift := period - half
	diff := make([]float64, len(wmaFull))
	for i := range wmaFull {
		diff[i] = 2*wmaHalf[i+shift] - wmaFull[i]
	}

	hull := wmaSeries(diff, sqrtP)
	return rowsFromOffset(candles, hull, period-1+sqrtP-1), nil
}

// rowsFromOffset pairs a value slice with candles starting at the given
// candle index, producing generic "value" rows.
func rowsFromOffset(candles []model.Candle, vals []float64, offset int) []Row {
	if len(vals) == 0 {
		return nil
	}
	rows := make([]Row, 0, len(vals))
	for i, v := range vals {
		rows = append(rows, valueRow(candles[offset+i].Time, v))
	}
	return rows
}
