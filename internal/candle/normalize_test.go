package candle

import (
	"encoding/json"
	"math"
	"testing"
)

func raw(t, c float64) Raw {
	return Raw{Time: t, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100.0}
}

func TestNormalize_EmptyInput(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Errorf("nil input: got %v, want nil", got)
	}
	if got := Normalize([]Raw{}); got != nil {
		t.Errorf("empty input: got %v, want nil", got)
	}
}

func TestNormalize_CoercesNumericShapes(t *testing.T) {
	rows := []Raw{
		{Time: 100.0, Close: 10.0},
		{Time: "160", Close: "11.5"},
		{Time: json.Number("220"), Close: json.Number("12.25")},
		{Time: int64(280), Close: 13},
	}
	out := Normalize(rows)
	if len(out) != 4 {
		t.Fatalf("got %d candles, want 4", len(out))
	}
	wantTimes := []int64{100, 160, 220, 280}
	wantCloses := []float64{10, 11.5, 12.25, 13}
	for i := range out {
		if out[i].Time != wantTimes[i] {
			t.Errorf("candle %d time: got %d, want %d", i, out[i].Time, wantTimes[i])
		}
		if out[i].Close != wantCloses[i] {
			t.Errorf("candle %d close: got %v, want %v", i, out[i].Close, wantCloses[i])
		}
	}
}

func TestNormalize_DropsUnusableRows(t *testing.T) {
	rows := []Raw{
		raw(100, 10),
		{Time: nil, Close: 11.0},            // no time
		{Time: 160.0, Close: nil},           // no close
		{Time: 220.0, Close: "not a price"}, // junk close
		{Time: math.NaN(), Close: 12.0},     // non-finite time
		{Time: 280.0, Close: math.Inf(1)},   // non-finite close
		raw(340, 12),
	}
	out := Normalize(rows)
	if len(out) != 2 {
		t.Fatalf("got %d candles, want 2", len(out))
	}
	if out[0].Close != 10 || out[1].Close != 12 {
		t.Errorf("survivors wrong: %+v", out)
	}
}

func TestNormalize_MissingOHLFallsBackToClose(t *testing.T) {
	out := Normalize([]Raw{{Time: 100.0, Close: 10.0}})
	if len(out) != 1 {
		t.Fatal("expected one candle")
	}
	c := out[0]
	if c.Open != 10 || c.High != 10 || c.Low != 10 {
		t.Errorf("O/H/L fallback: %+v", c)
	}
	if c.Volume != 0 {
		t.Errorf("volume default: got %v, want 0", c.Volume)
	}
	if c.HL2 != 10 || c.HLC3 != 10 || c.OHLC4 != 10 {
		t.Errorf("derived sources: %+v", c)
	}
}

func TestNormalize_NegativeVolumeClampedToZero(t *testing.T) {
	out := Normalize([]Raw{{Time: 100.0, Close: 10.0, Volume: -5.0}})
	if out[0].Volume != 0 {
		t.Errorf("got volume %v, want 0", out[0].Volume)
	}
}

func TestNormalize_DerivedSources(t *testing.T) {
	out := Normalize([]Raw{{Time: 100.0, Open: 8.0, High: 12.0, Low: 6.0, Close: 10.0}})
	c := out[0]
	if c.HL2 != 9 {
		t.Errorf("hl2: got %v, want 9", c.HL2)
	}
	if c.HLC3 != (12+6+10)/3.0 {
		t.Errorf("hlc3: got %v", c.HLC3)
	}
	if c.OHLC4 != 9 {
		t.Errorf("ohlc4: got %v, want 9", c.OHLC4)
	}
}

func TestNormalize_KeepsFirstOnDuplicateTime(t *testing.T) {
	rows := []Raw{raw(100, 10), raw(100, 99), raw(160, 11)}
	out := Normalize(rows)
	if len(out) != 2 {
		t.Fatalf("got %d candles, want 2", len(out))
	}
	if out[0].Close != 10 {
		t.Errorf("duplicate resolution kept the wrong row: %+v", out[0])
	}
}

func TestNormalize_DropsOutOfOrderRows(t *testing.T) {
	// The normalizer never re-sorts; a row that goes back in time is dropped.
	rows := []Raw{raw(100, 10), raw(160, 11), raw(130, 99), raw(220, 12)}
	out := Normalize(rows)
	if len(out) != 3 {
		t.Fatalf("got %d candles, want 3", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Time <= out[i-1].Time {
			t.Errorf("times not strictly increasing: %d then %d", out[i-1].Time, out[i].Time)
		}
	}
}
