package sqlite

import (
	"database/sql"
	"log"
)

type seedParam struct {
	key, typ, def, label string
}

type seedSeries struct {
	key, name, typ, color, yAxis string
	order                        int
	expr                         string
}

type seedIndicator struct {
	code, name, chartType, color string
	order                        int
	handler                      string
	params                       []seedParam
	series                       []seedSeries
}

// defaultIndicators is the factory catalogue written into an empty database.
// Indicators without explicit series rows get a single "value" line series
// synthesized at compute time.
var defaultIndicators = []seedIndicator{
	{
		code: "SMA", name: "Simple Moving Average", chartType: "overlay", color: "#2962FF", order: 1, handler: "sma",
		params: []seedParam{{"period", "int", "14", "Period"}},
	},
	{
		code: "EMA", name: "Exponential Moving Average", chartType: "overlay", color: "#FF6D00", order: 2, handler: "ema",
		params: []seedParam{{"period", "int", "14", "Period"}},
	},
	{
		code: "WMA", name: "Weighted Moving Average", chartType: "overlay", color: "#AA00FF", order: 3, handler: "wma",
		params: []seedParam{{"period", "int", "14", "Period"}},
	},
	{
		code: "SMMA", name: "Smoothed Moving Average", chartType: "overlay", color: "#00897B", order: 4, handler: "smma",
		params: []seedParam{{"period", "int", "14", "Period"}},
	},
	{
		code: "HMA", name: "Hull Moving Average", chartType: "overlay", color: "#D81B60", order: 5, handler: "hma",
		params: []seedParam{{"period", "int", "14", "Period"}},
	},
	{
		code: "VWAP", name: "Volume Weighted Average Price", chartType: "overlay", color: "#3949AB", order: 6, handler: "vwap",
		params: []seedParam{
			{"source", "string", "hlc3", "Price Source"},
			{"resetDaily", "bool", "true", "Reset Daily"},
		},
	},
	{
		code: "VWMA", name: "Volume Weighted Moving Average", chartType: "overlay", color: "#00ACC1", order: 7, handler: "vwma",
		params: []seedParam{{"period", "int", "20", "Period"}},
	},
	{
		code: "OBV", name: "On Balance Volume", chartType: "pane", color: "#5E35B1", order: 8, handler: "obv",
	},
	{
		code: "MACD", name: "MACD", chartType: "pane", color: "#2962FF", order: 9, handler: "macd",
		params: []seedParam{
			{"fastPeriod", "int", "12", "Fast Period"},
			{"slowPeriod", "int", "26", "Slow Period"},
			{"signalPeriod", "int", "9", "Signal Period"},
		},
		series: []seedSeries{
			{key: "macd", name: "MACD", typ: "line", color: "#2962FF", yAxis: "right", order: 1},
			{key: "signal", name: "Signal", typ: "line", color: "#FF6D00", yAxis: "right", order: 2},
			{key: "hist", name: "Histogram", typ: "histogram", color: "#26A69A", yAxis: "right", order: 3, expr: "macd - signal"},
		},
	},
	{
		code: "RSI", name: "Relative Strength Index", chartType: "pane", color: "#7B1FA2", order: 10, handler: "rsi",
		params: []seedParam{{"period", "int", "14", "Period"}},
	},
	{
		code: "STOCH", name: "Stochastic Oscillator", chartType: "pane", color: "#2962FF", order: 11, handler: "stochastic",
		params: []seedParam{
			{"period", "int", "14", "%K Period"},
			{"smooth", "int", "3", "%D Smoothing"},
		},
		series: []seedSeries{
			{key: "k", name: "%K", typ: "line", color: "#2962FF", yAxis: "right", order: 1},
			{key: "d", name: "%D", typ: "line", color: "#FF6D00", yAxis: "right", order: 2},
		},
	},
	{
		code: "STOCHRSI", name: "Stochastic RSI", chartType: "pane", color: "#E53935", order: 12, handler: "stochrsi",
		params: []seedParam{
			{"rsiPeriod", "int", "14", "RSI Period"},
			{"stochPeriod", "int", "14", "Stochastic Period"},
			{"kPeriod", "int", "3", "%K Smoothing"},
			{"dPeriod", "int", "3", "%D Smoothing"},
		},
		series: []seedSeries{
			{key: "k", name: "%K", typ: "line", color: "#E53935", yAxis: "right", order: 1},
			{key: "d", name: "%D", typ: "line", color: "#FB8C00", yAxis: "right", order: 2},
		},
	},
	{
		code: "CCI", name: "Commodity Channel Index", chartType: "pane", color: "#00897B", order: 13, handler: "cci",
		params: []seedParam{{"period", "int", "20", "Period"}},
	},
	{
		code: "BBANDS", name: "Bollinger Bands", chartType: "overlay", color: "#2962FF", order: 14, handler: "bbands",
		params: []seedParam{
			{"period", "int", "20", "Period"},
			{"stdDev", "float", "2", "Std Dev"},
		},
		series: []seedSeries{
			{key: "basis", name: "Basis", typ: "line", color: "#FF6D00", yAxis: "right", order: 1},
			{key: "upper", name: "Upper", typ: "line", color: "#2962FF", yAxis: "right", order: 2},
			{key: "lower", name: "Lower", typ: "line", color: "#2962FF", yAxis: "right", order: 3},
		},
	},
	{
		code: "ATR", name: "Average True Range", chartType: "pane", color: "#6D4C41", order: 15, handler: "atr",
		params: []seedParam{{"period", "int", "14", "Period"}},
	},
	{
		code: "ADX", name: "Average Directional Index", chartType: "pane", color: "#F4511E", order: 16, handler: "adx",
		params: []seedParam{{"period", "int", "14", "Period"}},
		series: []seedSeries{
			{key: "adx", name: "ADX", typ: "line", color: "#F4511E", yAxis: "right", order: 1},
			{key: "plus_di", name: "+DI", typ: "line", color: "#43A047", yAxis: "right", order: 2},
			{key: "minus_di", name: "-DI", typ: "line", color: "#E53935", yAxis: "right", order: 3},
		},
	},
	{
		code: "DONCHIAN", name: "Donchian Channels", chartType: "overlay", color: "#1E88E5", order: 17, handler: "donchian",
		params: []seedParam{{"period", "int", "20", "Period"}},
		series: []seedSeries{
			{key: "upper", name: "Upper", typ: "line", color: "#1E88E5", yAxis: "right", order: 1},
			{key: "lower", name: "Lower", typ: "line", color: "#1E88E5", yAxis: "right", order: 2},
			{key: "middle", name: "Middle", typ: "line", color: "#FF6D00", yAxis: "right", order: 3},
		},
	},
	{
		code: "DOUBLE_MA", name: "Double Moving Average", chartType: "overlay", color: "#2962FF", order: 18, handler: "double_ma",
		params: []seedParam{
			{"fastPeriod", "int", "9", "Fast Period"},
			{"slowPeriod", "int", "21", "Slow Period"},
		},
		series: []seedSeries{
			{key: "fast", name: "Fast MA", typ: "line", color: "#43A047", yAxis: "right", order: 1},
			{key: "slow", name: "Slow MA", typ: "line", color: "#E53935", yAxis: "right", order: 2},
		},
	},
	{
		code: "TRIPLE_MA", name: "Triple Moving Average", chartType: "overlay", color: "#2962FF", order: 19, handler: "triple_ma",
		params: []seedParam{
			{"fastPeriod", "int", "9", "Fast Period"},
			{"mediumPeriod", "int", "21", "Medium Period"},
			{"slowPeriod", "int", "50", "Slow Period"},
		},
		series: []seedSeries{
			{key: "fast", name: "Fast MA", typ: "line", color: "#43A047", yAxis: "right", order: 1},
			{key: "medium", name: "Medium MA", typ: "line", color: "#FB8C00", yAxis: "right", order: 2},
			{key: "slow", name: "Slow MA", typ: "line", color: "#E53935", yAxis: "right", order: 3},
		},
	},
}

func seedDefaults(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM indicators`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ind := range defaultIndicators {
		res, err := tx.Exec(`
			INSERT INTO indicators (code, name, chart_type, default_color, enabled, display_order)
			VALUES (?, ?, ?, ?, 1, ?)
		`, ind.code, ind.name, ind.chartType, ind.color, ind.order)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
			`INSERT INTO indicator_logic (indicator_id, handler) VALUES (?, ?)`,
			id, ind.handler,
		); err != nil {
			return err
		}

		for _, p := range ind.params {
			if _, err := tx.Exec(`
				INSERT INTO indicator_params (indicator_id, param_key, param_type, default_value, param_label)
				VALUES (?, ?, ?, ?, ?)
			`, id, p.key, p.typ, p.def, p.label); err != nil {
				return err
			}
		}

		for _, sd := range ind.series {
			expr := sql.NullString{String: sd.expr, Valid: sd.expr != ""}
			if _, err := tx.Exec(`
				INSERT INTO indicator_series (indicator_id, series_key, series_name, series_type, color, y_axis, display_order, value_expression)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, id, sd.key, sd.name, sd.typ, sd.color, sd.yAxis, sd.order, expr); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[sqlite] seeded %d default indicators", len(defaultIndicators))
	return nil
}
