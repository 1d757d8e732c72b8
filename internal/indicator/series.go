package indicator

import "tradedash/internal/model"

// The helpers in this file operate on plain float64 slices and share one
// alignment convention: out[i] corresponds to input index i+period-1, i.e.
// the first emitted value sits at the end of the first full window. Inputs
// shorter than the window yield nil.

// smaSeries computes a simple moving average.
func smaSeries(vals []float64, period int) []float64 {
	if len(vals) < period {
		return nil
	}
	out := make([]float64, 0, len(vals)-period+1)
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= period {
			sum -= vals[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// emaSeries computes an exponential moving average seeded with the simple
// average of the first period values, then next = v*k + prev*(1-k) with
// k = 2/(period+1). An arithmetic-only seed is deliberately not used.
func emaSeries(vals []float64, period int) []float64 {
	if len(vals) < period {
		return nil
	}
	k := 2.0 / float64(period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += vals[i]
	}
	prev := sum / float64(period)
	out := make([]float64, 0, len(vals)-period+1)
	out = append(out, prev)
	for i := period; i < len(vals); i++ {
		prev = vals[i]*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

// wmaSeries computes a linearly weighted moving average; the newest sample
// carries weight period.
func wmaSeries(vals []float64, period int) []float64 {
	if len(vals) < period {
		return nil
	}
	weightSum := float64(period*(period+1)) / 2
	out := make([]float64, 0, len(vals)-period+1)
	for i := period - 1; i < len(vals); i++ {
		sum := 0.0
		for j := 0; j < period; j++ {
			sum += vals[i-period+1+j] * float64(j+1)
		}
		out = append(out, sum/weightSum)
	}
	return out
}

// smmaSeries computes Wilder's smoothed moving average: SMA seed, then
// next = (prev*(period-1) + v) / period.
func smmaSeries(vals []float64, period int) []float64 {
	if len(vals) < period {
		return nil
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += vals[i]
	}
	prev := sum / float64(period)
	out := make([]float64, 0, len(vals)-period+1)
	out = append(out, prev)
	for i := period; i < len(vals); i++ {
		prev = (prev*float64(period-1) + vals[i]) / float64(period)
		out = append(out, prev)
	}
	return out
}

// trueRanges returns the true range per bar starting from the second candle:
// max(high-low, |high-prevClose|, |low-prevClose|). The first bar has no
// previous close and is excluded, so out[i] pairs with candles[i+1].
func trueRanges(candles []model.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		hl := candles[i].High - candles[i].Low
		hc := abs(candles[i].High - candles[i-1].Close)
		lc := abs(candles[i].Low - candles[i-1].Close)
		out = append(out, max3(hl, hc, lc))
	}
	return out
}

func closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
