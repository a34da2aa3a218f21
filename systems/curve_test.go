package systems

import (
	"testing"

	"github.com/pthm-cable/sentinel/config"
)

func TestResponseCurveLinear(t *testing.T) {
	c, err := NewResponseCurve(CurveLinear, []float64{0, 10, 20}, []float64{0, 1, 0})
	if err != nil {
		t.Fatalf("NewResponseCurve: %v", err)
	}

	tests := []struct {
		x, want float64
	}{
		{-5, 0}, // clamps below
		{0, 0},
		{5, 0.5},
		{10, 1},
		{15, 0.5},
		{20, 0},
		{100, 0}, // clamps above
	}
	for _, tc := range tests {
		if got := c.Eval(tc.x); got < tc.want-1e-12 || got > tc.want+1e-12 {
			t.Errorf("Eval(%v) = %v, want %v", tc.x, got, tc.want)
		}
	}
}

func TestResponseCurveDegenerateKeys(t *testing.T) {
	zero, err := NewResponseCurve(CurveLinear, nil, nil)
	if err != nil {
		t.Fatalf("no keys: %v", err)
	}
	if zero.Eval(42) != 0 {
		t.Errorf("no keys should evaluate to 0, got %v", zero.Eval(42))
	}

	one, err := NewResponseCurve(CurveCubic, []float64{3}, []float64{7})
	if err != nil {
		t.Fatalf("one key: %v", err)
	}
	if one.Eval(-100) != 7 || one.Eval(100) != 7 {
		t.Error("single key should be constant")
	}

	if _, err := NewResponseCurve(CurveLinear, []float64{0, 0}, []float64{1, 2}); err == nil {
		t.Error("expected error for repeated x")
	}
	if _, err := NewResponseCurve("bezier", []float64{0, 1}, []float64{1, 2}); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := NewResponseCurve(CurveLinear, []float64{0, 1}, []float64{1}); err == nil {
		t.Error("expected error for mismatched keys")
	}
}

// TestResponseCurveCubicMonotone verifies the cubic mode stays within the
// key range on monotone data.
func TestResponseCurveCubicMonotone(t *testing.T) {
	c, err := CurveFromConfig(config.CurveConfig{
		Mode: CurveCubic,
		Keys: []config.CurveKey{{X: 0, Y: 0}, {X: 1, Y: 0.2}, {X: 2, Y: 0.9}, {X: 3, Y: 1}},
	})
	if err != nil {
		t.Fatalf("CurveFromConfig: %v", err)
	}

	prev := c.Eval(0)
	for x := 0.05; x <= 3; x += 0.05 {
		v := c.Eval(x)
		if v < prev-1e-12 {
			t.Fatalf("curve decreased at x=%v: %v < %v", x, v, prev)
		}
		if v < 0 || v > 1+1e-12 {
			t.Fatalf("curve left [0,1] at x=%v: %v", x, v)
		}
		prev = v
	}
}

func TestConstantAndIdentityCurves(t *testing.T) {
	if ConstantCurve(2.5).Eval(-9) != 2.5 {
		t.Error("ConstantCurve should ignore input")
	}
	if IdentityCurve().Eval(-9) != -9 {
		t.Error("IdentityCurve should return input")
	}
	var zero ResponseCurve
	if zero.Eval(3) != 0 {
		t.Error("zero curve should evaluate to 0")
	}
}
