package indicator

import "tradedash/internal/model"

// DoubleMA emits a fast and a slow EMA as one indicator so crossovers can be
// drawn and styled together. Params: fastPeriod (9), slowPeriod (21). Rows
// start where the slower average is warm.
func DoubleMA(candles []model.Candle, p Params) ([]Row, error) {
	fast, err := p.Period("fastPeriod", 9)
	if err != nil {
		return nil, err
	}
	slow, err := p.Period("slowPeriod", 21)
	if err != nil {
		return nil, err
	}

	cl := closes(candles)
	fastEMA := emaSeries(cl, fast)
	slowEMA := emaSeries(cl, slow)
	if slowEMA == nil || fastEMA == nil {
		return nil, nil
	}

	longer := slow
	if fast > slow {
		longer = fast
	}
	rows := make([]Row, 0, len(cl)-longer+1)
	for i := longer - 1; i < len(cl); i++ {
		rows = append(rows, Row{
			Time: candles[i].Time,
			Fields: map[string]float64{
				"fast": fastEMA[i-(fast-1)],
				"slow": slowEMA[i-(slow-1)],
			},
		})
	}
	return rows, nil
}

// TripleMA is DoubleMA plus a medium leg. Params: fastPeriod (9),
// mediumPeriod (21), slowPeriod (50).
func TripleMA(candles []model.Candle, p Params) ([]Row, error) {
	fast, err := p.Period("fastPeriod", 9)
	if err != nil {
		return nil, err
	}
	medium, err := p.Period("mediumPeriod", 21)
	if err != nil {
		return nil, err
	}
	slow, err := p.Period("slowPeriod", 50)
	if err != nil {
		return nil, err
	}

	cl := closes(candles)
	fastEMA := emaSeries(cl, fast)
	mediumEMA := emaSeries(cl, medium)
	slowEMA := emaSeries(cl, slow)
	if fastEMA == nil || mediumEMA == nil || slowEMA == nil {
		return nil, nil
	}

	longer := fast
	if medium > longer {
		longer = medium
	}
	if slow > longer {
		longer = slow
	}
	rows := make([]Row, 0, len(cl)-longer+1)
	for i := longer - 1; i < len(cl); i++ {
		rows = append(rows, Row{
			Time: candles[i].Time,
			Fields: map[string]float64{
				"fast":   fastEMA[i-(fast-1)],
				"medium": mediumEMA[i-(medium-1)],
				"slow":   slowEMA[i-(slow-1)],
			},
		})
	}
	return rows, nil
}
