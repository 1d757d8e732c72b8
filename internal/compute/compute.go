// Package compute orchestrates indicator computation: it normalizes the
// candle batch, resolves each requested indicator through the registry,
// invokes its handler, and projects the output rows into chart series.
package compute

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"tradedash/internal/candle"
	"tradedash/internal/expr"
	"tradedash/internal/indicator"
	"tradedash/internal/metrics"
	"tradedash/internal/model"
	"tradedash/internal/registry"
)

// ErrNoCandles marks a request whose candle batch is empty after
// normalization. It is the only error that fails a whole compute call;
// everything else degrades to skipping a single indicator.
var ErrNoCandles = errors.New("candles array is required")

// Request is the compute call input. When Configurations is empty the
// engine falls back to computing every enabled indicator with its stored
// defaults ("all enabled" mode).
type Request struct {
	Candles        []candle.Raw   `json:"candles"`
	Configurations []model.Config `json:"configurations,omitempty"`
}

// Response is the compute call output.
type Response struct {
	Indicators []model.IndicatorResult `json:"indicators"`
}

// Engine computes indicator batches against a loaded registry. It holds no
// mutable state, so one Engine serves concurrent requests without locking.
type Engine struct {
	reg  *registry.Registry
	prom *metrics.Metrics
}

// New creates an Engine. prom may be nil in tests.
func New(reg *registry.Registry, prom *metrics.Metrics) *Engine {
	return &Engine{reg: reg, prom: prom}
}

// Compute runs one batch. The result is a pure function of the candles, the
// configurations and the registry contents: identical inputs always produce
// identical output. A failing indicator is skipped and never aborts the
// others.
func (e *Engine) Compute(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	candles := candle.Normalize(req.Candles)
	if e.prom != nil {
		e.prom.CandlesNormalized.Add(float64(len(candles)))
		e.prom.CandlesDropped.Add(float64(len(req.Candles) - len(candles)))
	}
	if len(candles) == 0 {
		return Response{Indicators: []model.IndicatorResult{}}, ErrNoCandles
	}

	entries := e.resolve(req.Configurations)
	out := make([]model.IndicatorResult, 0, len(entries))
	for _, sel := range entries {
		if ctx.Err() != nil {
			return Response{Indicators: []model.IndicatorResult{}}, ctx.Err()
		}
		res, err := e.computeOne(candles, sel.entry, sel.overrides)
		if err != nil {
			e.skip(sel.entry.Definition.Code, err)
			continue
		}
		out = append(out, res)
	}

	if e.prom != nil {
		e.prom.ComputeDur.Observe(time.Since(start).Seconds())
		e.prom.IndicatorsComputed.Add(float64(len(out)))
	}
	return Response{Indicators: out}, nil
}

type selection struct {
	entry     *registry.Entry
	overrides map[string]any
}

// resolve maps the request configurations onto registry entries, preserving
// request order; unknown or disabled codes are dropped silently. With no
// configurations the registry's display order applies.
func (e *Engine) resolve(configs []model.Config) []selection {
	if len(configs) == 0 {
		all := e.reg.All()
		sels := make([]selection, len(all))
		for i, entry := range all {
			sels[i] = selection{entry: entry}
		}
		return sels
	}

	sels := make([]selection, 0, len(configs))
	for _, cfg := range configs {
		entry, ok := e.reg.Get(cfg.Code)
		if !ok {
			if e.prom != nil {
				e.prom.IndicatorsSkipped.WithLabelValues("unknown_code").Inc()
			}
			continue
		}
		sels = append(sels, selection{entry: entry, overrides: cfg.Params})
	}
	return sels
}

// computeOne merges parameters, invokes the handler and builds the series.
func (e *Engine) computeOne(candles []model.Candle, entry *registry.Entry, overrides map[string]any) (model.IndicatorResult, error) {
	params := mergeParams(entry.Params, overrides)

	rows, err := invoke(entry.Handler, candles, params)
	if err != nil {
		return model.IndicatorResult{}, err
	}

	byTime := make(map[int64]indicator.Row, len(rows))
	for _, row := range rows {
		byTime[row.Time] = row
	}

	def := entry.Definition
	res := model.IndicatorResult{
		ID:           def.ID,
		Code:         def.Code,
		Name:         def.Name,
		ChartType:    def.ChartType,
		DefaultColor: def.DefaultColor,
	}

	seriesDefs := entry.SeriesDefs
	if len(seriesDefs) == 0 {
		// No series metadata: synthesize one default line off the
		// generic value field.
		seriesDefs = []model.SeriesDef{{
			Key:   "value",
			Name:  def.Name,
			Type:  "line",
			Color: def.DefaultColor,
			YAxis: "right",
		}}
	}

	res.Series = make([]model.ComputedSeries, 0, len(seriesDefs))
	for _, sd := range seriesDefs {
		color := sd.Color
		if color == "" {
			color = def.DefaultColor
		}
		cs := model.ComputedSeries{
			Key:     sd.Key,
			Name:    sd.Name,
			Type:    sd.Type,
			Color:   color,
			Visible: true,
			YAxis:   sd.YAxis,
			Data:    make([]model.Point, 0, len(candles)),
		}
		for i := range candles {
			t := candles[i].Time
			cs.Data = append(cs.Data, model.Point{Time: t, Value: pointValue(byTime, t, sd)})
		}
		res.Series = append(res.Series, cs)
	}
	return res, nil
}

// pointValue projects one output row onto one series point: expression
// first, then the series key, then the generic value field. Anything that
// does not resolve is a null point, never an error.
func pointValue(byTime map[int64]indicator.Row, t int64, sd model.SeriesDef) *float64 {
	row, ok := byTime[t]
	if !ok {
		return nil
	}
	if sd.ValueExpression != "" {
		v, err := expr.Eval(sd.ValueExpression, row.Fields)
		if err != nil {
			return nil
		}
		return &v
	}
	if v, ok := row.Fields[sd.Key]; ok {
		f := v
		return &f
	}
	if v, ok := row.Fields["value"]; ok {
		f := v
		return &f
	}
	return nil
}

// invoke calls a handler, converting a panic inside broken indicator math
// into an error so one bad indicator cannot take down the batch.
func invoke(h indicator.Handler, candles []model.Candle, params indicator.Params) (rows []indicator.Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(candles, params)
}

// mergeParams overlays request overrides on the stored defaults, coercing
// both per the declared param type. An override that fails coercion falls
// back to the default rather than poisoning the call.
func mergeParams(defs []model.ParamDef, overrides map[string]any) indicator.Params {
	params := make(indicator.Params, len(defs))
	for _, pd := range defs {
		if ov, ok := overrides[pd.Key]; ok {
			if v, ok := coerce(ov, pd.Type); ok {
				params[pd.Key] = v
				continue
			}
		}
		if v, ok := coerce(pd.Default, pd.Type); ok {
			params[pd.Key] = v
		}
	}
	// Overrides without a ParamDef pass through untyped; handlers validate.
	for k, v := range overrides {
		if _, ok := params[k]; !ok {
			params[k] = v
		}
	}
	return params
}

// coerce converts a raw value to the declared param type. Defaults are
// stored as strings; overrides arrive as whatever JSON produced.
func coerce(v any, paramType string) (any, bool) {
	switch paramType {
	case "int":
		switch x := v.(type) {
		case float64:
			return int(x), true
		case int:
			return x, true
		case string:
			n, err := strconv.Atoi(x)
			return n, err == nil
		}
	case "float":
		switch x := v.(type) {
		case float64:
			return x, true
		case int:
			return float64(x), true
		case string:
			f, err := strconv.ParseFloat(x, 64)
			return f, err == nil
		}
	case "bool":
		switch x := v.(type) {
		case bool:
			return x, true
		case string:
			return x == "true" || x == "1", true
		}
	case "string":
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return nil, false
}

func (e *Engine) skip(code string, err error) {
	reason := "handler_failure"
	if errors.Is(err, indicator.ErrInvalidParameter) {
		reason = "invalid_parameter"
	}
	log.Printf("[compute] skipping %s: %v", code, err)
	if e.prom != nil {
		e.prom.IndicatorsSkipped.WithLabelValues(reason).Inc()
	}
}
