package analysis

import (
	"fmt"
	"math"
	"slices"

	"github.com/aescanero/autocal/pkg/dataset"
)

// signal is the averaged magnitude of every variable sharing the dims of
// the first one.
type signal struct {
	ds     *dataset.Dataset
	dims   []string
	shape  []int
	values []float64
}

func newSignal(ds *dataset.Dataset) (*signal, error) {
	vars := ds.Variables()
	if len(vars) == 0 {
		return nil, fmt.Errorf("dataset %s has no data variables", ds.Node)
	}
	s := &signal{ds: ds, dims: vars[0].Dims, shape: vars[0].Shape, values: make([]float64, vars[0].Size())}
	n := 0
	for i := range vars {
		if !slices.Equal(vars[i].Dims, s.dims) {
			continue
		}
		for j, m := range vars[i].Magnitudes() {
			s.values[j] += m
		}
		n++
	}
	for j := range s.values {
		s.values[j] /= float64(n)
	}
	return s, nil
}

// axis returns the index and coordinate of the dim carrying quantity.
func (s *signal) axis(quantity string) (int, dataset.Coordinate, error) {
	return axisOf(s.ds, s.dims, quantity)
}

// profile averages the signal over every axis except keep and returns the
// kept grid in row-major order.
func (s *signal) profile(keep ...int) ([]float64, []int) {
	return profile(s.values, s.shape, keep)
}

func axisOf(ds *dataset.Dataset, dims []string, quantity string) (int, dataset.Coordinate, error) {
	for i, d := range dims {
		c, ok := ds.Coordinate(d)
		if ok && c.Attrs.Quantity == quantity {
			return i, c, nil
		}
	}
	return 0, dataset.Coordinate{}, fmt.Errorf("dataset %s has no %s axis", ds.Node, quantity)
}

func profile(values []float64, shape, keep []int) ([]float64, []int) {
	kept := make([]int, len(keep))
	size := 1
	for i, ax := range keep {
		kept[i] = shape[ax]
		size *= shape[ax]
	}
	sums := make([]float64, size)
	counts := make([]int, size)
	for flat, x := range values {
		idx := dataset.Unravel(flat, shape)
		p := 0
		for i, ax := range keep {
			p = p*kept[i] + idx[ax]
		}
		sums[p] += x
		counts[p]++
	}
	for i := range sums {
		if counts[i] > 0 {
			sums[i] /= float64(counts[i])
		}
	}
	return sums, kept
}

func argExtremum(values []float64, max bool) int {
	best := 0
	for i, x := range values {
		if (max && x > values[best]) || (!max && x < values[best]) {
			best = i
		}
	}
	return best
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range values {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// contrast is the peak to peak variation relative to the maximum, in [0, 1].
func contrast(values []float64) float64 {
	lo, hi := bounds(values)
	if hi <= 0 || math.IsInf(hi, 0) {
		return 0
	}
	return (hi - lo) / hi
}

func checkFields(name string, fields []string, produced int) error {
	if len(fields) != produced {
		return fmt.Errorf("%s analysis produces %d values, node declares %d fields", name, produced, len(fields))
	}
	return nil
}
