package model

// Definition is one row of the indicators table: the chart-facing identity of
// an indicator. Read-only to the engine; lifecycle belongs to the config store.
type Definition struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"` // unique symbolic key, e.g. "RSI"
	Name         string `json:"name"`
	ChartType    string `json:"chart_type"` // "overlay" or "pane"
	DefaultColor string `json:"default_color"`
	Enabled      bool   `json:"enabled"`
	DisplayOrder int    `json:"display_order"`
}

// ParamDef describes one tunable parameter of an indicator and its default.
type ParamDef struct {
	IndicatorID int64  `json:"indicator_id"`
	Key         string `json:"key"`
	Type        string `json:"type"` // "int", "float", "bool", "string"
	Default     string `json:"default_value"`
	Label       string `json:"label"`
}

// SeriesDef describes how one named output line of an indicator is projected
// into a chart series. ValueExpression, when set, derives the point value
// from the handler's output fields (e.g. "macd - signal").
type SeriesDef struct {
	IndicatorID     int64  `json:"indicator_id"`
	Key             string `json:"series_key"`
	Name            string `json:"series_name"`
	Type            string `json:"series_type"` // "line", "histogram", "area"
	Color           string `json:"color"`
	YAxis           string `json:"y_axis"` // "left" or "right"
	DisplayOrder    int    `json:"display_order"`
	ValueExpression string `json:"value_expression,omitempty"`
}

// Config is a user's activation of one indicator for a single compute call:
// the code plus any parameter overrides to merge over the ParamDef defaults.
type Config struct {
	Code   string         `json:"code"`
	Params map[string]any `json:"params,omitempty"`
}

// Point is one chart point. Value nil marks insufficient warm-up data and
// serializes as JSON null, never a sentinel 0 or NaN.
type Point struct {
	Time  int64    `json:"time"`
	Value *float64 `json:"value"`
}

// ComputedSeries is one named output line of a computed indicator.
type ComputedSeries struct {
	Key     string  `json:"series_key"`
	Name    string  `json:"series_name"`
	Type    string  `json:"series_type"`
	Color   string  `json:"color"`
	Visible bool    `json:"visible"`
	YAxis   string  `json:"y_axis"`
	Data    []Point `json:"data"`
}

// IndicatorResult is one computed indicator with all of its series.
type IndicatorResult struct {
	ID           int64            `json:"id"`
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	ChartType    string           `json:"chart_type"`
	DefaultColor string           `json:"default_color"`
	Series       []ComputedSeries `json:"series"`
}

// UserSetting is one row of user_indicator_settings: which indicator a user
// has switched on and their saved parameter overrides.
type UserSetting struct {
	UserID        int64          `json:"user_id"`
	IndicatorCode string         `json:"indicator_code"`
	Params        map[string]any `json:"params"`
	Active        bool           `json:"is_active"`
}
