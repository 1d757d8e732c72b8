package compute

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tradedash/internal/candle"
	"tradedash/internal/metrics"
	"tradedash/internal/model"
	"tradedash/internal/registry"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// ────────────────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────────────────

type fakeStore struct {
	defs     []model.Definition
	params   map[int64][]model.ParamDef
	series   map[int64][]model.SeriesDef
	handlers map[int64]string
}

func (f *fakeStore) EnabledIndicators(ctx context.Context) ([]model.Definition, error) {
	return f.defs, nil
}
func (f *fakeStore) ParamDefs(ctx context.Context, id int64) ([]model.ParamDef, error) {
	return f.params[id], nil
}
func (f *fakeStore) SeriesDefs(ctx context.Context, id int64) ([]model.SeriesDef, error) {
	return f.series[id], nil
}
func (f *fakeStore) HandlerName(ctx context.Context, id int64) (string, error) {
	return f.handlers[id], nil
}

// testStore registers an EMA(3), an RSI(2) and a MACD with a histogram
// expression series.
func testStore() *fakeStore {
	return &fakeStore{
		defs: []model.Definition{
			{ID: 1, Code: "EMA", Name: "Exponential Moving Average", ChartType: "overlay", DefaultColor: "#FF6D00", Enabled: true, DisplayOrder: 1},
			{ID: 2, Code: "RSI", Name: "Relative Strength Index", ChartType: "pane", DefaultColor: "#7B1FA2", Enabled: true, DisplayOrder: 2},
			{ID: 3, Code: "MACD", Name: "MACD", ChartType: "pane", DefaultColor: "#2962FF", Enabled: true, DisplayOrder: 3},
		},
		params: map[int64][]model.ParamDef{
			1: {{IndicatorID: 1, Key: "period", Type: "int", Default: "3"}},
			2: {{IndicatorID: 2, Key: "period", Type: "int", Default: "2"}},
			3: {
				{IndicatorID: 3, Key: "fastPeriod", Type: "int", Default: "2"},
				{IndicatorID: 3, Key: "slowPeriod", Type: "int", Default: "4"},
				{IndicatorID: 3, Key: "signalPeriod", Type: "int", Default: "2"},
			},
		},
		series: map[int64][]model.SeriesDef{
			3: {
				{IndicatorID: 3, Key: "macd", Name: "MACD", Type: "line", YAxis: "right", DisplayOrder: 1},
				{IndicatorID: 3, Key: "signal", Name: "Signal", Type: "line", YAxis: "right", DisplayOrder: 2},
				{IndicatorID: 3, Key: "hist", Name: "Histogram", Type: "histogram", YAxis: "right", DisplayOrder: 3, ValueExpression: "macd - signal"},
			},
		},
		handlers: map[int64]string{1: "ema", 2: "rsi", 3: "macd"},
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := registry.Load(context.Background(), testStore())
	if err != nil {
		t.Fatalf("registry load: %v", err)
	}
	return New(reg, nil)
}

func rawBar(i int, close float64) candle.Raw {
	return candle.Raw{
		Time: float64(1_700_000_000 + i*60),
		Open: close, High: close + 1, Low: close - 1, Close: close,
		Volume: 100.0,
	}
}

func rawBars(closes ...float64) []candle.Raw {
	out := make([]candle.Raw, len(closes))
	for i, cl := range closes {
		out[i] = rawBar(i, cl)
	}
	return out
}

func findSeries(t *testing.T, res model.IndicatorResult, key string) model.ComputedSeries {
	t.Helper()
	for _, s := range res.Series {
		if s.Key == key {
			return s
		}
	}
	t.Fatalf("series %q not found in %s", key, res.Code)
	return model.ComputedSeries{}
}

// ────────────────────────────────────────────────────────────
// Batch behavior
// ────────────────────────────────────────────────────────────

func TestCompute_EmptyCandlesFailsWholeBatch(t *testing.T) {
	e := testEngine(t)
	resp, err := e.Compute(context.Background(), Request{
		Configurations: []model.Config{{Code: "EMA"}},
	})
	if !errors.Is(err, ErrNoCandles) {
		t.Fatalf("got err=%v, want ErrNoCandles", err)
	}
	if resp.Indicators == nil || len(resp.Indicators) != 0 {
		t.Errorf("indicators must be an empty list, got %#v", resp.Indicators)
	}
}

func TestCompute_AllRowsDroppedEqualsEmpty(t *testing.T) {
	e := testEngine(t)
	_, err := e.Compute(context.Background(), Request{
		Candles:        []candle.Raw{{Time: nil, Close: "junk"}},
		Configurations: []model.Config{{Code: "EMA"}},
	})
	if !errors.Is(err, ErrNoCandles) {
		t.Fatalf("got err=%v, want ErrNoCandles", err)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	e := testEngine(t)
	req := Request{
		Candles: rawBars(100, 102, 104, 103, 105, 107, 106, 109),
		Configurations: []model.Config{
			{Code: "EMA", Params: map[string]any{"period": 3}},
			{Code: "RSI"},
			{Code: "MACD"},
		},
	}
	a, err := e.Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	b, err := e.Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("identical requests produced different responses")
	}
}

func TestCompute_UnknownCodeSkippedOthersSurvive(t *testing.T) {
	e := testEngine(t)
	resp, err := e.Compute(context.Background(), Request{
		Candles: rawBars(100, 102, 104, 103, 105),
		Configurations: []model.Config{
			{Code: "NOPE"},
			{Code: "EMA"},
		},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(resp.Indicators) != 1 || resp.Indicators[0].Code != "EMA" {
		t.Errorf("got %d results, want just EMA", len(resp.Indicators))
	}
}

func TestCompute_InvalidParameterSkipsOnlyThatIndicator(t *testing.T) {
	e := testEngine(t)
	resp, err := e.Compute(context.Background(), Request{
		Candles: rawBars(100, 102, 104, 103, 105),
		Configurations: []model.Config{
			{Code: "EMA", Params: map[string]any{"period": -5}},
			{Code: "RSI"},
		},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(resp.Indicators) != 1 || resp.Indicators[0].Code != "RSI" {
		t.Errorf("bad EMA period must not abort the batch: got %#v", resp.Indicators)
	}
}

func TestCompute_EmptyConfigurationsComputesAllEnabled(t *testing.T) {
	e := testEngine(t)
	resp, err := e.Compute(context.Background(), Request{
		Candles: rawBars(100, 102, 104, 103, 105, 107, 106, 109),
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(resp.Indicators) != 3 {
		t.Fatalf("got %d results, want 3", len(resp.Indicators))
	}
	// Display order from the store.
	for i, code := range []string{"EMA", "RSI", "MACD"} {
		if resp.Indicators[i].Code != code {
			t.Errorf("result %d: got %s, want %s", i, resp.Indicators[i].Code, code)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Series projection
// ────────────────────────────────────────────────────────────

func TestCompute_WarmupPointsAreNull(t *testing.T) {
	e := testEngine(t)
	candles := rawBars(100, 102, 104, 103, 105)
	resp, err := e.Compute(context.Background(), Request{
		Candles:        candles,
		Configurations: []model.Config{{Code: "EMA", Params: map[string]any{"period": 3}}},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	s := findSeries(t, resp.Indicators[0], "value")
	if len(s.Data) != len(candles) {
		t.Fatalf("series length %d, want %d (one point per candle)", len(s.Data), len(candles))
	}
	for i, pt := range s.Data {
		if i > 0 && pt.Time <= s.Data[i-1].Time {
			t.Errorf("point %d: times not strictly increasing", i)
		}
		if i < 2 && pt.Value != nil {
			t.Errorf("point %d: warm-up must be null, got %v", i, *pt.Value)
		}
		if i >= 2 && pt.Value == nil {
			t.Errorf("point %d: expected a value after warm-up", i)
		}
	}
	// EMA(3): seed 102, then 102.5, then 103.75.
	for i, want := range map[int]float64{2: 102, 3: 102.5, 4: 103.75} {
		if got := *s.Data[i].Value; got != want {
			t.Errorf("point %d: got %v, want %v", i, got, want)
		}
	}
}

func TestCompute_DefaultSeriesSynthesized(t *testing.T) {
	e := testEngine(t)
	resp, err := e.Compute(context.Background(), Request{
		Candles:        rawBars(100, 102, 104, 103, 105),
		Configurations: []model.Config{{Code: "RSI"}},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	res := resp.Indicators[0]
	if len(res.Series) != 1 {
		t.Fatalf("got %d series, want 1 synthesized", len(res.Series))
	}
	s := res.Series[0]
	if s.Key != "value" || s.Type != "line" || s.YAxis != "right" {
		t.Errorf("synthesized series wrong: %+v", s)
	}
	if s.Color != res.DefaultColor {
		t.Errorf("synthesized color: got %s, want %s", s.Color, res.DefaultColor)
	}
}

func TestCompute_ExpressionSeries(t *testing.T) {
	e := testEngine(t)
	resp, err := e.Compute(context.Background(), Request{
		Candles:        rawBars(100, 102, 104, 103, 105, 107, 106, 109, 108, 111),
		Configurations: []model.Config{{Code: "MACD"}},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	res := resp.Indicators[0]
	macd := findSeries(t, res, "macd")
	signal := findSeries(t, res, "signal")
	hist := findSeries(t, res, "hist")
	for i := range macd.Data {
		m, s, h := macd.Data[i].Value, signal.Data[i].Value, hist.Data[i].Value
		if s == nil {
			if h != nil {
				t.Errorf("point %d: histogram defined without a signal value", i)
			}
			continue
		}
		if m == nil || h == nil {
			t.Errorf("point %d: macd/hist missing where signal exists", i)
			continue
		}
		if got, want := *h, *m-*s; got != want {
			t.Errorf("point %d: hist=%v, want macd-signal=%v", i, got, want)
		}
	}
}

func TestCompute_FlatMarketRSIReads50(t *testing.T) {
	e := testEngine(t)
	resp, err := e.Compute(context.Background(), Request{
		Candles:        rawBars(10, 10, 10, 10, 10),
		Configurations: []model.Config{{Code: "RSI"}},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	s := resp.Indicators[0].Series[0]
	for i, pt := range s.Data {
		if pt.Value == nil {
			continue
		}
		if *pt.Value != 50 {
			t.Errorf("point %d: flat RSI got %v, want 50", i, *pt.Value)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Parameter merging
// ────────────────────────────────────────────────────────────

func TestMergeParams_StringDefaultsCoerced(t *testing.T) {
	defs := []model.ParamDef{
		{Key: "period", Type: "int", Default: "14"},
		{Key: "stdDev", Type: "float", Default: "2"},
		{Key: "resetDaily", Type: "bool", Default: "true"},
		{Key: "source", Type: "string", Default: "hlc3"},
	}
	p := mergeParams(defs, nil)
	if p["period"] != 14 {
		t.Errorf("period: got %v", p["period"])
	}
	if p["stdDev"] != 2.0 {
		t.Errorf("stdDev: got %v", p["stdDev"])
	}
	if p["resetDaily"] != true {
		t.Errorf("resetDaily: got %v", p["resetDaily"])
	}
	if p["source"] != "hlc3" {
		t.Errorf("source: got %v", p["source"])
	}
}

func TestMergeParams_OverridesWin(t *testing.T) {
	defs := []model.ParamDef{{Key: "period", Type: "int", Default: "14"}}
	// JSON numbers arrive as float64; numeric strings are accepted too.
	p := mergeParams(defs, map[string]any{"period": float64(21)})
	if p["period"] != 21 {
		t.Errorf("float64 override: got %v", p["period"])
	}
	p = mergeParams(defs, map[string]any{"period": "9"})
	if p["period"] != 9 {
		t.Errorf("string override: got %v", p["period"])
	}
}

func TestMergeParams_BadOverrideFallsBackToDefault(t *testing.T) {
	defs := []model.ParamDef{{Key: "period", Type: "int", Default: "14"}}
	p := mergeParams(defs, map[string]any{"period": "lots"})
	if p["period"] != 14 {
		t.Errorf("got %v, want default 14", p["period"])
	}
}

func TestMergeParams_UntypedOverridesPassThrough(t *testing.T) {
	p := mergeParams(nil, map[string]any{"custom": "x"})
	if p["custom"] != "x" {
		t.Errorf("got %v", p["custom"])
	}
}

func TestCompute_NormalizerCounters(t *testing.T) {
	prom := metrics.New()
	reg, err := registry.Load(context.Background(), testStore())
	if err != nil {
		t.Fatalf("registry load: %v", err)
	}
	eng := New(reg, prom)

	req := Request{Candles: append(rawBars(100, 102, 104), candle.Raw{Close: 99})}
	if _, err := eng.Compute(context.Background(), req); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if got := testutil.ToFloat64(prom.CandlesNormalized); got != 3 {
		t.Errorf("candles normalized: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(prom.CandlesDropped); got != 1 {
		t.Errorf("candles dropped: got %v, want 1", got)
	}
}
