package systems

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"github.com/pthm-cable/sentinel/config"
)

// Curve interpolation modes.
const (
	CurveLinear   = "linear"
	CurveConstant = "constant"
	CurveCubic    = "cubic"
)

// ResponseCurve maps a raw layer input to a utility value. Inputs outside
// the key range clamp to the end keys.
type ResponseCurve struct {
	eval func(x float64) float64
}

// Eval evaluates the curve at x. The zero curve returns 0.
func (c ResponseCurve) Eval(x float64) float64 {
	if c.eval == nil {
		return 0
	}
	return c.eval(x)
}

// ConstantCurve returns v for every input.
func ConstantCurve(v float64) ResponseCurve {
	return ResponseCurve{eval: func(float64) float64 { return v }}
}

// IdentityCurve returns its input unchanged.
func IdentityCurve() ResponseCurve {
	return ResponseCurve{eval: func(x float64) float64 { return x }}
}

// NewResponseCurve fits a curve through (xs[i], ys[i]). xs must be strictly
// increasing. No keys gives the zero curve and one key a constant. Cubic
// uses monotone Fritsch-Butland interpolation and needs three keys; with
// fewer it falls back to linear.
func NewResponseCurve(mode string, xs, ys []float64) (ResponseCurve, error) {
	if len(xs) != len(ys) {
		return ResponseCurve{}, fmt.Errorf("curve: %d x keys but %d y keys", len(xs), len(ys))
	}
	switch len(xs) {
	case 0:
		return ResponseCurve{}, nil
	case 1:
		return ConstantCurve(ys[0]), nil
	}
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return ResponseCurve{}, fmt.Errorf("curve: x keys not strictly increasing at %d", i)
		}
	}

	var fp interp.FittablePredictor
	switch mode {
	case CurveLinear, "":
		fp = &interp.PiecewiseLinear{}
	case CurveConstant:
		fp = &interp.PiecewiseConstant{}
	case CurveCubic:
		if len(xs) < 3 {
			fp = &interp.PiecewiseLinear{}
		} else {
			fp = &interp.FritschButland{}
		}
	default:
		return ResponseCurve{}, fmt.Errorf("curve: unknown mode %q", mode)
	}
	if err := fp.Fit(xs, ys); err != nil {
		return ResponseCurve{}, fmt.Errorf("fitting %s curve: %w", mode, err)
	}

	lo, hi := xs[0], xs[len(xs)-1]
	return ResponseCurve{eval: func(x float64) float64 {
		return fp.Predict(min(max(x, lo), hi))
	}}, nil
}

// CurveFromConfig builds a curve from YAML key data.
func CurveFromConfig(c config.CurveConfig) (ResponseCurve, error) {
	xs := make([]float64, len(c.Keys))
	ys := make([]float64, len(c.Keys))
	for i, k := range c.Keys {
		xs[i], ys[i] = k.X, k.Y
	}
	return NewResponseCurve(c.Mode, xs, ys)
}
