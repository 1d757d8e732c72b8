package indicator

import "tradedash/internal/model"

// ADX emits Wilder's directional movement complex over "period" (default 14):
// +DI, -DI and the ADX line itself.
//
// Directional movement per bar: +DM = high-prevHigh when that exceeds both
// prevLow-low and zero, -DM symmetrically. The DM and TR accumulators use
// Wilder's running-sum smoothing (acc = acc - acc/period + x); DIs are the
// smoothed DMs as a percentage of smoothed TR. DX = |+DI - -DI| / (+DI + -DI)
// * 100, and ADX is DX Wilder-smoothed over another period, so the first ADX
// value needs 2*period bars of history beyond the first.
func ADX(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 14)
	if err != nil {
		return nil, err
	}
	if len(candles) < period+1 {
		return nil, nil
	}

	n := len(candles) - 1
	trs := trueRanges(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < len(candles); i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	var trAcc, plusAcc, minusAcc float64
	for i := 0; i < period; i++ {
		trAcc += trs[i]
		plusAcc += plusDM[i]
		minusAcc += minusDM[i]
	}

	type dxEntry struct {
		time            int64
		plusDI, minusDI float64
		dx              float64
	}
	var dxList []dxEntry
	for i := period; i < n; i++ {
		trAcc = trAcc - trAcc/float64(period) + trs[i]
		plusAcc = plusAcc - plusAcc/float64(period) + plusDM[i]
		minusAcc = minusAcc - minusAcc/float64(period) + minusDM[i]

		var plusDI, minusDI float64
		if trAcc > 0 {
			plusDI = plusAcc / trAcc * 100
			minusDI = minusAcc / trAcc * 100
		}
		dx := 0.0
		if plusDI+minusDI > 0 {
			dx = abs(plusDI-minusDI) / (plusDI + minusDI) * 100
		}
		dxList = append(dxList, dxEntry{
			time:    candles[i+1].Time,
			plusDI:  plusDI,
			minusDI: minusDI,
			dx:      dx,
		})
	}
	if len(dxList) < period {
		return nil, nil
	}

	adxSum := 0.0
	for i := 0; i < period; i++ {
		adxSum += dxList[i].dx
	}
	adx := adxSum / float64(period)

	rows := make([]Row, 0, len(dxList)-period+1)
	rows = append(rows, Row{
		Time: dxList[period-1].time,
		Fields: map[string]float64{
			"adx":      adx,
			"plus_di":  dxList[period-1].plusDI,
			"minus_di": dxList[period-1].minusDI,
		},
	})
	for i := period; i < len(dxList); i++ {
		adx = (adx*float64(period-1) + dxList[i].dx) / float64(period)
		rows = append(rows, Row{
			Time: dxList[i].time,
			Fields: map[string]float64{
				"adx":      adx,
				"plus_di":  dxList[i].plusDI,
				"minus_di": dxList[i].minusDI,
			},
		})
	}
	return rows, nil
}
