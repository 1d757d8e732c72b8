package indicator

import "tradedash/internal/model"

// MACD emits the moving average convergence/divergence complex. Params:
// fastPeriod (12), slowPeriod (26), signalPeriod (9).
//
// macd = EMA(close, fast) - EMA(close, slow), defined once the slow EMA is
// warm. signal = EMA over the macd series itself, seeded the same way, so it
// needs a further signalPeriod-1 macd samples. hist = macd - signal. Rows
// where signal is not yet defined carry only the macd field; the chart
// aligns series by time, not by array position, so the offset is safe.
func MACD(candles []model.Candle, p Params) ([]Row, error) {
	fast, err := p.Period("fastPeriod", 12)
	if err != nil {
		return nil, err
	}
	slow, err := p.Period("slowPeriod", 26)
	if err != nil {
		return nil, err
	}
	signalP, err := p.Period("signalPeriod", 9)
	if err != nil {
		return nil, err
	}
	if fast >= slow {
		fast, slow = slow, fast
	}

	cl := closes(candles)
	fastEMA := emaSeries(cl, fast)
	slowEMA := emaSeries(cl, slow)
	if slowEMA == nil {
		return nil, nil
	}

	// macdLine[i] pairs with candle index slow-1+i.
	macdLine := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macdLine[i] = fastEMA[i+(slow-fast)] - slowEMA[i]
	}
	signalLine := emaSeries(macdLine, signalP)

	rows := make([]Row, 0, len(macdLine))
	for i, m := range macdLine {
		fields := map[string]float64{"macd": m}
		if si := i - (signalP - 1); signalLine != nil && si >= 0 {
			fields["signal"] = signalLine[si]
			fields["hist"] = m - signalLine[si]
		}
		rows = append(rows, Row{Time: candles[slow-1+i].Time, Fields: fields})
	}
	return rows, nil
}
