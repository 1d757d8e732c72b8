package indicator

import (
	"math"

	"tradedash/internal/model"
)

// BollingerBands emits basis/upper/lower bands over "period" (default 20)
// with band width "stdDev" (default 2). The deviation is the population
// standard deviation of the window (divide by period, not period-1), matching
// the charting convention.
func BollingerBands(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 20)
	if err != nil {
		return nil, err
	}
	mult := p.Float("stdDev", 2)
	if len(candles) < period {
		return nil, nil
	}

	cl := closes(candles)
	rows := make([]Row, 0, len(cl)-period+1)
	for i := period - 1; i < len(cl); i++ {
		window := cl[i-period+1 : i+1]
		sum := 0.0
		for _, v := range window {
			sum += v
		}
		basis := sum / float64(period)

		variance := 0.0
		for _, v := range window {
			variance += (v - basis) * (v - basis)
		}
		variance /= float64(period)
		dev := math.Sqrt(variance)

		rows = append(rows, Row{
			Time: candles[i].Time,
			Fields: map[string]float64{
				"basis": basis,
				"upper": basis + mult*dev,
				"lower": basis - mult*dev,
			},
		})
	}
	return rows, nil
}

// Donchian emits the Donchian channel over "period" (default 20): highest
// high and lowest low of the trailing window, plus their midpoint.
func Donchian(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 20)
	if err != nil {
		return nil, err
	}
	if len(candles) < period {
		return nil, nil
	}

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
		rows = append(rows, Row{
			Time: candles[i].Time,
			Fields: map[string]float64{
				"upper":  hi,
				"lower":  lo,
				"middle": (hi + lo) / 2,
			},
		})
	}
	return rows, nil
}
