package expr

import (
	"math"
	"testing"
)

func TestEval_Arithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"1 + 2", 3},
		{"2 * 3 + 4", 10},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"-5 + 3", -2},
		{"-(2 + 3)", -5},
		{"1.5 * 2", 3},
		{"2 * -3", -6},
	}
	for _, tc := range cases {
		got, err := Eval(tc.expr, nil)
		if err != nil {
			t.Errorf("Eval(%q): %v", tc.expr, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Eval(%q): got %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEval_Identifiers(t *testing.T) {
	ctx := map[string]float64{"macd": 1.25, "signal": 0.75, "plus_di": 40}
	cases := []struct {
		expr string
		want float64
	}{
		{"macd - signal", 0.5},
		{"macd + signal", 2},
		{"macd * 2", 2.5},
		{"plus_di / 4", 10},
	}
	for _, tc := range cases {
		got, err := Eval(tc.expr, ctx)
		if err != nil {
			t.Errorf("Eval(%q): %v", tc.expr, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Eval(%q): got %v, want %v", tc.expr, got, tc.want)
		}
	}
}

// A histogram expression must not produce a value while one of its inputs
// is still warming up, so a missing identifier is an error rather than 0.
func TestEval_MissingIdentifierIsNotComputable(t *testing.T) {
	ctx := map[string]float64{"macd": 1.25}
	if v, err := Eval("macd - signal", ctx); err == nil {
		t.Fatalf("Eval with absent signal: expected error, got %v", v)
	}
	if _, err := Eval("missing + 1", ctx); err == nil {
		t.Fatal("Eval with absent identifier: expected error, got none")
	}
}

func TestEval_NonFiniteContextIsNotComputable(t *testing.T) {
	ctx := map[string]float64{"x": math.NaN(), "y": math.Inf(1)}
	if _, err := Eval("x + 2", ctx); err == nil {
		t.Fatal("Eval with NaN identifier: expected error, got none")
	}
	if _, err := Eval("y + 2", ctx); err == nil {
		t.Fatal("Eval with Inf identifier: expected error, got none")
	}
}

func TestEval_Errors(t *testing.T) {
	cases := []string{
		"",
		"1 +",
		"(1 + 2",
		"1 2",
		"foo $ bar",
		"1 / 0", // not finite
	}
	for _, expr := range cases {
		if _, err := Eval(expr, nil); err == nil {
			t.Errorf("Eval(%q): expected error, got none", expr)
		}
	}
}
