package indicator

import (
	"math"

	"tradedash/internal/model"
)

// Stochastic emits the fast stochastic oscillator. Params: period (14) for
// the %K lookback and smooth (3) for the %D moving average of %K.
//
// %K = (close - lowestLow) / (highestHigh - lowestLow) * 100 over the
// trailing window. A window where high equals low has no defined %K; the
// row is emitted without the field so the chart shows a gap instead of a
// fabricated number, and %D is withheld until its window is fully defined.
func Stochastic(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 14)
	if err != nil {
		return nil, err
	}
	smooth, err := p.Period("smooth", 3)
	if err != nil {
		return nil, err
	}
	if len(candles) < period {
		return nil, nil
	}

	// kVals[i] pairs with candle index period-1+i; NaN marks undefined.
	kVals := make([]float64, 0, len(candles)-period+1)
	rows := make([]Row, 0, len(candles)-period+1)
	for i := period - 1; i < len(candles); i++ {
		hi, lo := candles[i].High, candles[i].Low
		for j := i - period + 1; j < i; j++ {
			if candles[j].High > hi {
				hi = candles[j].High
			}
			if candles[j].Low < lo {
				lo = candles[j].Low
			}
		}

		k := math.NaN()
		if hi != lo {
			k = (candles[i].Close - lo) / (hi - lo) * 100
		}
		kVals = append(kVals, k)

		fields := map[string]float64{}
		if !math.IsNaN(k) {
			fields["k"] = k
		}
		if len(kVals) >= smooth {
			sum, valid := 0.0, true
			for _, kv := range kVals[len(kVals)-smooth:] {
				if math.IsNaN(kv) {
					valid = false
					break
				}
				sum += kv
			}
			if valid {
				fields["d"] = sum / float64(smooth)
			}
		}
		rows = append(rows, Row{Time: candles[i].Time, Fields: fields})
	}
	return rows, nil
}
