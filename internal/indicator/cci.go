package indicator

import "tradedash/internal/model"

// cciConstant is Lambert's scaling constant; it keeps roughly 70-80% of
// values inside the ±100 band.
const cciConstant = 0.015

// CCI emits the commodity channel index over "period" (default 20):
// (tp - SMA(tp)) / (0.015 * meanDeviation), tp = (high+low+close)/3.
// A window with zero mean deviation has no defined value.
func CCI(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 20)
	if err != nil {
		return nil, err
	}
	if len(candles) < period {
		return nil, nil
	}

	tp := make([]float64, len(candles))
	for i := range candles {
		tp[i] = candles[i].HLC3
	}

	rows := make([]Row, 0, len(candles)-period+1)
	for i := period - 1; i < len(candles); i++ {
		window := tp[i-period+1 : i+1]
		sum := 0.0
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)

		dev := 0.0
		for _, v := range window {
			dev += abs(v - mean)
		}
		dev /= float64(period)

		row := Row{Time: candles[i].Time, Fields: map[string]float64{}}
		if dev != 0 {
			row.Fields["value"] = (tp[i] - mean) / (cciConstant * dev)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
