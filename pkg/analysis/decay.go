package analysis

import (
	"fmt"
	"math"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
)

// Decay estimates a relaxation time over quantity: the coordinate at which
// the signal has fallen to 1/e of its initial excursion above the final
// level.
func Decay(quantity string) Factory {
	return func(ds *dataset.Dataset, element string, fields []string) (Analysis, error) {
		if err := checkFields("decay", fields, 1); err != nil {
			return nil, err
		}
		return newAnalysis("decay", element, fields, func() (Result, []string, error) {
			s, err := newSignal(ds)
			if err != nil {
				return Result{}, nil, err
			}
			ax, c, err := s.axis(quantity)
			if err != nil {
				return Result{}, nil, err
			}
			line, _ := s.profile(ax)
			t, ok := decayTime(c.Values, line)
			if !ok {
				return Result{Values: []domain.Value{domain.None()}}, []string{"signal does not decay"}, nil
			}
			return Result{Values: []domain.Value{domain.Some(t)}, Confidence: contrast(line)}, nil, nil
		}), nil
	}
}

func decayTime(x, y []float64) (float64, bool) {
	if len(y) < 2 {
		return 0, false
	}
	end := y[len(y)-1]
	amp := y[0] - end
	if amp <= 0 {
		return 0, false
	}
	level := end + amp/math.E
	for i := 1; i < len(y); i++ {
		if y[i] <= level {
			return interpolate(x[i-1], y[i-1], x[i], y[i], level) - x[0], true
		}
	}
	return 0, false
}

// Excursion returns the coordinate over quantity where the signal first
// departs from its initial value by half of its largest excursion.
func Excursion(quantity string) Factory {
	return func(ds *dataset.Dataset, element string, fields []string) (Analysis, error) {
		if err := checkFields("excursion", fields, 1); err != nil {
			return nil, err
		}
		return newAnalysis("excursion", element, fields, func() (Result, []string, error) {
			s, err := newSignal(ds)
			if err != nil {
				return Result{}, nil, err
			}
			ax, c, err := s.axis(quantity)
			if err != nil {
				return Result{}, nil, err
			}
			line, _ := s.profile(ax)
			var largest float64
			for _, v := range line {
				largest = math.Max(largest, math.Abs(v-line[0]))
			}
			if largest == 0 {
				return Result{Values: []domain.Value{domain.None()}}, []string{"flat signal"}, nil
			}
			for i, v := range line {
				if math.Abs(v-line[0]) >= largest/2 {
					note := fmt.Sprintf("largest excursion %.6g", largest)
					return Result{Values: []domain.Value{domain.Some(c.Values[i])}, Confidence: contrast(line)}, []string{note}, nil
				}
			}
			return Result{Values: []domain.Value{domain.None()}}, nil, nil
		}), nil
	}
}
