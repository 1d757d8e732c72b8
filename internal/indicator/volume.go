package indicator

import (
	"time"

	"tradedash/internal/model"
)

// VWAP emits the cumulative volume-weighted average price. Params:
// source (close|hl2|hlc3|ohlc4, default hlc3) and resetDaily (default true),
// which restarts the cumulative sums at each new calendar day of the bar's
// local display date. Bars before any volume has traded emit no value.
func VWAP(candles []model.Candle, p Params) ([]Row, error) {
	source := p.String("source", "hlc3")
	resetDaily := p.Bool("resetDaily", true)

	var cumPV, cumVol float64
	lastDay := ""
	rows := make([]Row, 0, len(candles))
	for i := range candles {
		c := &candles[i]
		if resetDaily {
			day := time.Unix(c.Time, 0).Local().Format("2006-01-02")
			if lastDay != "" && day != lastDay {
				cumPV, cumVol = 0, 0
			}
			lastDay = day
		}

		cumPV += c.Source(source) * c.Volume
		cumVol += c.Volume

		row := Row{Time: c.Time, Fields: map[string]float64{}}
		if cumVol > 0 {
			row.Fields["value"] = cumPV / cumVol
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// VWMA emits the volume-weighted moving average of close over "period"
// (default 20). Windows with zero traded volume emit no value.
func VWMA(candles []model.Candle, p Params) ([]Row, error) {
	period, err := p.Period("period", 20)
	if err != nil {
		return nil, err
	}
	if len(candles) < period {
		return nil, nil
	}

	rows := make([]Row, 0, len(candles)-period+1)
	for i := period - 1; i < len(candles); i++ {
		var pvSum, volSum float64
		for j := i - period + 1; j <= i; j++ {
			pvSum += candles[j].Close * candles[j].Volume
			volSum += candles[j].Volume
		}
		row := Row{Time: candles[i].Time, Fields: map[string]float64{}}
		if volSum > 0 {
			row.Fields["value"] = pvSum / volSum
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// OBV emits on-balance volume: a running total that adds volume on up-closes
// and subtracts it on down-closes. The first bar has no prior close to
// compare against, so output starts at the second candle.
func OBV(candles []model.Candle, p Params) ([]Row, error) {
	if len(candles) < 2 {
		return nil, nil
	}
	obv := 0.0
	rows := make([]Row, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			obv += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			obv -= candles[i].Volume
		}
		rows = append(rows, valueRow(candles[i].Time, obv))
	}
	return rows, nil
}
