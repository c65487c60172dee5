package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
)

// Benchmark estimates the average gate fidelity from a randomized
// benchmarking sweep over quantity. The sweep ends with two calibration
// points, the ground state (length 0) and the excited state (length 1),
// used to normalise the survival probability.
func Benchmark(quantity string) Factory {
	return func(ds *dataset.Dataset, element string, fields []string) (Analysis, error) {
		if err := checkFields("benchmark", fields, 1); err != nil {
			return nil, err
		}
		return newAnalysis("benchmark", element, fields, func() (Result, []string, error) {
			s, err := newSignal(ds)
			if err != nil {
				return Result{}, nil, err
			}
			ax, c, err := s.axis(quantity)
			if err != nil {
				return Result{}, nil, err
			}
			line, _ := s.profile(ax)
			n := len(line)
			if n < 4 {
				return Result{}, nil, fmt.Errorf("need at least two lengths and two calibration points, got %d points", n)
			}
			ground, excited := line[n-2], line[n-1]
			if ground == excited {
				return Result{Values: []domain.Value{domain.None()}}, []string{"calibration points coincide"}, nil
			}

			type point struct{ m, p float64 }
			points := make([]point, 0, n-2)
			for i := 0; i < n-2; i++ {
				points = append(points, point{m: c.Values[i], p: (line[i] - excited) / (ground - excited)})
			}
			sort.Slice(points, func(i, j int) bool { return points[i].m < points[j].m })
			x := make([]float64, len(points))
			y := make([]float64, len(points))
			for i, p := range points {
				x[i], y[i] = p.m, p.p
			}

			mDecay, ok := decayTime(x, y)
			if !ok || mDecay <= 0 {
				return Result{Values: []domain.Value{domain.Some(1)}, Confidence: 0}, []string{"no survival decay"}, nil
			}
			// depolarising parameter per Clifford, single qubit
			r := math.Exp(-1 / (mDecay + x[0]))
			f := 1 - (1-r)/2
			return Result{Values: []domain.Value{domain.Some(f)}, Confidence: contrast(line)},
				[]string{fmt.Sprintf("1/e survival after %.1f Cliffords", mDecay+x[0])}, nil
		}), nil
	}
}

// allXYIdeal is the ideal excited population of the 21 AllXY pulse pairs.
var allXYIdeal = []float64{0, 0, 0, 0, 0, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 1, 1, 1, 1}

// Syndromes measures the RMS deviation of a normalised AllXY sweep over
// quantity from the ideal staircase.
func Syndromes(quantity string) Factory {
	return func(ds *dataset.Dataset, element string, fields []string) (Analysis, error) {
		if err := checkFields("syndromes", fields, 1); err != nil {
			return nil, err
		}
		return newAnalysis("syndromes", element, fields, func() (Result, []string, error) {
			s, err := newSignal(ds)
			if err != nil {
				return Result{}, nil, err
			}
			ax, _, err := s.axis(quantity)
			if err != nil {
				return Result{}, nil, err
			}
			line, _ := s.profile(ax)
			if len(line) != len(allXYIdeal) {
				return Result{}, nil, fmt.Errorf("need %d pulse pairs, got %d", len(allXYIdeal), len(line))
			}
			lo, hi := bounds(line)
			if hi == lo {
				return Result{Values: []domain.Value{domain.None()}}, []string{"flat signal"}, nil
			}
			var sum float64
			for i, v := range line {
				d := (v-lo)/(hi-lo) - allXYIdeal[i]
				sum += d * d
			}
			rms := math.Sqrt(sum / float64(len(line)))
			return Result{Values: []domain.Value{domain.Some(rms)}, Confidence: 1 - math.Min(1, rms)}, nil, nil
		}), nil
	}
}
