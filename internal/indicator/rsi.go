package indicator

import "tradedash/internal/model"

// RSI emits Wilder's relative strength index over "period" (default 14):
// initial average gain/loss over the first period deltas, Wilder smoothing
// thereafter.
//
// A completely flat window (no gains, no losses) reads 50, not 100: the
// market has shown no strength either way. Only-losses-absent reads 100.
func RSI(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 14)
	if err != nil {
		return nil, err
	}
	if len(candles) <= period {
		return nil, nil
	}

	cl := closes(candles)
	var gains, losses float64
	for i := 1; i <= period; i++ {
		delta := cl[i] - cl[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	rows := make([]Row, 0, len(cl)-period)
	rows = append(rows, valueRow(candles[period].Time, rsiValue(avgGain, avgLoss)))

	for i := period + 1; i < len(cl); i++ {
		delta := cl[i] - cl[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rows = append(rows, valueRow(candles[i].Time, rsiValue(avgGain, avgLoss)))
	}
	return rows, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// rsiValues computes the raw RSI series for reuse by StochRSI: out[i] pairs
// with input index i+period.
func rsiValues(cl []float64, period int) []float64 {
	if len(cl) <= period {
		return nil
	}
	var gains, losses float64
	for i := 1; i <= period; i++ {
		delta := cl[i] - cl[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	out := make([]float64, 0, len(cl)-period)
	out = append(out, rsiValue(avgGain, avgLoss))
	for i := period + 1; i < len(cl); i++ {
		delta := cl[i] - cl[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

// StochRSI applies the stochastic oscillator to the RSI series. Params:
// rsiPeriod (14), stochPeriod (14), kPeriod (3), dPeriod (3). %K is the SMA
// of the raw stochastic over kPeriod; %D is the SMA of %K over dPeriod.
// A flat RSI window maps to 0, same as the reference implementation.
func StochRSI(candles []model.Candle, p Params) ([]Row, error) {
	rsiPeriod, err := p.Period("rsiPeriod", 14)
	if err != nil {
		return nil, err
	}
	stochPeriod, err := p.Period("stochPeriod", 14)
	if err != nil {
		return nil, err
	}
	kPeriod, err := p.Period("kPeriod", 3)
	if err != nil {
		return nil, err
	}
	dPeriod, err := p.Period("dPeriod", 3)
	if err != nil {
		return nil, err
	}

	rsis := rsiValues(closes(candles), rsiPeriod)
	if len(rsis) < stochPeriod {
		return nil, nil
	}

	// stoch[i] pairs with candle index rsiPeriod + stochPeriod-1 + i.
	stoch := make([]float64, 0, len(rsis)-stochPeriod+1)
	for i := stochPeriod - 1; i < len(rsis); i++ {
		lo, hi := rsis[i-stochPeriod+1], rsis[i-stochPeriod+1]
		for j := i - stochPeriod + 2; j <= i; j++ {
			if rsis[j] < lo {
				lo = rsis[j]
			}
			if rsis[j] > hi {
				hi = rsis[j]
			}
		}
		v := 0.0
		if hi != lo {
			v = (rsis[i] - lo) / (hi - lo) * 100
		}
		stoch = append(stoch, v)
	}

	kVals := smaSeries(stoch, kPeriod)
	if kVals == nil {
		return nil, nil
	}
	dVals := smaSeries(kVals, dPeriod)

	base := rsiPeriod + stochPeriod - 1 + kPeriod - 1
	rows := make([]Row, 0, len(kVals))
	for i, k := range kVals {
		fields := map[string]float64{"k": k}
		if di := i - (dPeriod - 1); dVals != nil && di >= 0 {
			fields["d"] = dVals[di]
		}
		rows = append(rows, Row{Time: candles[base+i].Time, Fields: fields})
	}
	return rows, nil
}
