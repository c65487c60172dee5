package analysis

import (
	"fmt"
	"math"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
)

// Resonator analyses a transmission dip swept over quantity. Values are the
// resonance frequency, the loaded quality factor f0/FWHM and the minimum
// magnitude.
func Resonator(quantity string) Factory {
	return func(ds *dataset.Dataset, element string, fields []string) (Analysis, error) {
		if err := checkFields("resonator", fields, 3); err != nil {
			return nil, err
		}
		return newAnalysis("resonator", element, fields, func() (Result, []string, error) {
			s, err := newSignal(ds)
			if err != nil {
				return Result{}, nil, err
			}
			ax, c, err := s.axis(quantity)
			if err != nil {
				return Result{}, nil, err
			}
			line, _ := s.profile(ax)
			i0 := argExtremum(line, false)
			f0, floor := c.Values[i0], line[i0]

			r := Result{Values: []domain.Value{domain.Some(f0), domain.None(), domain.Some(floor)}, Confidence: contrast(line)}
			width, ok := fullWidth(c.Values, line, i0)
			if ok && width > 0 {
				r.Values[1] = domain.Some(f0 / width)
			} else {
				r.Confidence = 0
			}
			return r, []string{fmt.Sprintf("half depth width %.6g", width)}, nil
		}), nil
	}
}

// fullWidth returns the width of the dip at i0, measured where the signal
// recovers half of its depth on both sides.
func fullWidth(x, y []float64, i0 int) (float64, bool) {
	_, hi := bounds(y)
	half := y[i0] + (hi-y[i0])/2
	left, lok := crossing(x, y, i0, -1, half)
	right, rok := crossing(x, y, i0, 1, half)
	if !lok || !rok {
		return 0, false
	}
	return math.Abs(right - left), true
}

// crossing walks from i0 in direction step until y reaches level and
// interpolates the crossing position.
func crossing(x, y []float64, i0, step int, level float64) (float64, bool) {
	for i := i0 + step; i >= 0 && i < len(y); i += step {
		if y[i] >= level {
			prev := i - step
			return interpolate(x[prev], y[prev], x[i], y[i], level), true
		}
	}
	return 0, false
}

func interpolate(x0, y0, x1, y1, level float64) float64 {
	if y1 == y0 {
		return x1
	}
	return x0 + (level-y0)*(x1-x0)/(y1-y0)
}
