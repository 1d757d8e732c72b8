package indicator

import "tradedash/internal/model"

// ATR emits Wilder's average true range over "period" (default 14). The
// first bar has no true range (no previous close), so the initial average
// covers the TRs of bars 2..period+1 and the first output lands on candle
// index period; Wilder smoothing applies from there on.
func ATR(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 14)
	if err != nil {
		return nil, err
	}
	trs := trueRanges(candles)
	if len(trs) < period {
		return nil, nil
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trs[i]
	}
	atr := sum / float64(period)

	rows := make([]Row, 0, len(trs)-period+1)
	rows = append(rows, valueRow(candles[period].Time, atr))
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
		rows = append(rows, valueRow(candles[i+1].Time, atr))
	}
	return rows, nil
}
