package samplespace

import "math"

// Linspace returns n evenly spaced values over [start, stop].
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Arange returns values start, start+step, ... strictly below stop.
func Arange(start, stop, step float64) []float64 {
	if step == 0 {
		return nil
	}
	n := int(math.Ceil((stop-start)/step - 1e-9))
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Centered returns n samples spanning width around center.
func Centered(center, width float64, n int) []float64 {
	return Linspace(center-width/2, center+width/2, n)
}

// Split cuts values into consecutive batches of at most size points.
func Split(values []float64, size int) [][]float64 {
	if size <= 0 {
		return [][]float64{append([]float64(nil), values...)}
	}
	var out [][]float64
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		out = append(out, append([]float64(nil), values[start:end]...))
	}
	return out
}
