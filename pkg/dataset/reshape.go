package dataset

import "fmt"

// ReshuffleLoops reorders a buffer acquired (amplitude, state)-major and
// repeated per loop into (amplitude, loop, state)-major order.
func ReshuffleLoops[T any](in []T, nAmplitudes, nStates, loops int) ([]T, error) {
	perLoop := nAmplitudes * nStates
	if perLoop <= 0 || loops <= 0 {
		return nil, fmt.Errorf("invalid reshuffle shape: %d amplitudes, %d states, %d loops", nAmplitudes, nStates, loops)
	}
	if len(in) != perLoop*loops {
		return nil, fmt.Errorf("reshuffle expects %d points, got %d", perLoop*loops, len(in))
	}
	out := make([]T, len(in))
	for i, v := range in {
		amplitude := (i % perLoop) / nStates
		loop := i / perLoop
		state := i % nStates
		out[amplitude*loops*nStates+loop*nStates+state] = v
	}
	return out, nil
}

// ToRowMajor converts a buffer whose first axis varies fastest into
// row-major order over the same shape.
func ToRowMajor[T any](in []T, shape []int) ([]T, error) {
	if len(in) != product(shape) {
		return nil, fmt.Errorf("buffer has %d points, shape %v needs %d", len(in), shape, product(shape))
	}
	strides := rowMajorStrides(shape)
	out := make([]T, len(in))
	for r, v := range in {
		rem, flat := r, 0
		for j, n := range shape {
			flat += (rem % n) * strides[j]
			rem /= n
		}
		out[flat] = v
	}
	return out, nil
}

// FromRowMajor is the inverse of ToRowMajor.
func FromRowMajor[T any](in []T, shape []int) ([]T, error) {
	if len(in) != product(shape) {
		return nil, fmt.Errorf("buffer has %d points, shape %v needs %d", len(in), shape, product(shape))
	}
	strides := rowMajorStrides(shape)
	out := make([]T, len(in))
	for r := range out {
		rem, flat := r, 0
		for j, n := range shape {
			flat += (rem % n) * strides[j]
			rem /= n
		}
		out[r] = in[flat]
	}
	return out, nil
}

// Unravel returns the row-major multi-index of flat within shape.
func Unravel(flat int, shape []int) []int {
	idx := make([]int, len(shape))
	for j := len(shape) - 1; j >= 0; j-- {
		idx[j] = flat % shape[j]
		flat /= shape[j]
	}
	return idx
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for j := len(shape) - 1; j >= 0; j-- {
		strides[j] = s
		s *= shape[j]
	}
	return strides
}
