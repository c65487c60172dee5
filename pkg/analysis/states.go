package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
)

// Separation finds the point over quantity where the signals acquired with
// the qubit prepared in different states lie furthest apart in the IQ
// plane. Each state is one data variable of the element.
func Separation(quantity string) Factory {
	return func(ds *dataset.Dataset, element string, fields []string) (Analysis, error) {
		if err := checkFields("separation", fields, 1); err != nil {
			return nil, err
		}
		return newAnalysis("separation", element, fields, func() (Result, []string, error) {
			vars := ds.Variables()
			if len(vars) < 2 {
				return Result{}, nil, fmt.Errorf("need at least two prepared states, got %d", len(vars))
			}
			for i := range vars[1:] {
				if !slices.Equal(vars[i+1].Dims, vars[0].Dims) {
					return Result{}, nil, fmt.Errorf("variables %s and %s have different dims", vars[0].Name, vars[i+1].Name)
				}
			}
			ax, c, err := axisOf(ds, vars[0].Dims, quantity)
			if err != nil {
				return Result{}, nil, err
			}

			// distance per point, then averaged down to the swept axis
			dist := make([]float64, vars[0].Size())
			var scale float64
			for p := range dist {
				dist[p] = math.Inf(1)
				for a := range vars {
					scale = math.Max(scale, cmplx.Abs(vars[a].Data[p]))
					for b := a + 1; b < len(vars); b++ {
						dist[p] = math.Min(dist[p], cmplx.Abs(vars[a].Data[p]-vars[b].Data[p]))
					}
				}
			}
			line, _ := profile(dist, vars[0].Shape, []int{ax})
			best := argExtremum(line, true)

			r := Result{Values: []domain.Value{domain.Some(c.Values[best])}}
			if scale > 0 {
				r.Confidence = math.Min(1, line[best]/scale)
			}
			return r, []string{fmt.Sprintf("%d states, separation %.6g", len(vars), line[best])}, nil
		}), nil
	}
}

// AssignmentFidelity analyses a loop repeated readout over amplitude and
// prepared state. For every amplitude the state clouds are estimated from
// the loops; the amplitude with the best assignment fidelity wins. Values
// are the amplitude and its fidelity.
func AssignmentFidelity(amplitudes, states string) Factory {
	return func(ds *dataset.Dataset, element string, fields []string) (Analysis, error) {
		if err := checkFields("assignment fidelity", fields, 2); err != nil {
			return nil, err
		}
		return newAnalysis("assignment fidelity", element, fields, func() (Result, []string, error) {
			vars := ds.Variables()
			if len(vars) == 0 {
				return Result{}, nil, fmt.Errorf("dataset %s has no data variables", ds.Node)
			}
			v := &vars[0]
			aAx, aCoord, err := axisOf(ds, v.Dims, amplitudes)
			if err != nil {
				return Result{}, nil, err
			}
			sAx, sCoord, err := axisOf(ds, v.Dims, states)
			if err != nil {
				return Result{}, nil, err
			}
			lAx, _, err := axisOf(ds, v.Dims, dataset.LoopQuantity)
			if err != nil {
				return Result{}, nil, err
			}

			nStates := len(sCoord.Values)
			fidelities := make([]float64, len(aCoord.Values))
			for a := range aCoord.Values {
				means := make([]complex128, nStates)
				var spread float64
				for s := 0; s < nStates; s++ {
					cloud := make([]complex128, v.Shape[lAx])
					for l := range cloud {
						idx := make([]int, len(v.Shape))
						idx[aAx], idx[sAx], idx[lAx] = a, s, l
						if cloud[l], err = v.At(idx...); err != nil {
							return Result{}, nil, err
						}
					}
					means[s], spread = mean(cloud), spread+deviation(cloud)/float64(nStates)
				}
				fidelities[a] = fidelity(means, spread)
			}
			best := argExtremum(fidelities, true)
			r := Result{
				Values:     []domain.Value{domain.Some(aCoord.Values[best]), domain.Some(fidelities[best])},
				Confidence: fidelities[best],
			}
			return r, []string{fmt.Sprintf("%d states over %d loops", nStates, v.Shape[lAx])}, nil
		}), nil
	}
}

func mean(z []complex128) complex128 {
	var sum complex128
	for _, x := range z {
		sum += x
	}
	return sum / complex(float64(len(z)), 0)
}

func deviation(z []complex128) float64 {
	m := mean(z)
	var sum float64
	for _, x := range z {
		d := cmplx.Abs(x - m)
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(z)))
}

// fidelity of assigning each state to its nearest mean, for Gaussian clouds
// of width sigma around the means.
func fidelity(means []complex128, sigma float64) float64 {
	d := math.Inf(1)
	for a := range means {
		for b := a + 1; b < len(means); b++ {
			d = math.Min(d, cmplx.Abs(means[a]-means[b]))
		}
	}
	switch {
	case d == 0 || math.IsInf(d, 1):
		return 1 / float64(len(means))
	case sigma == 0:
		return 1
	}
	return 1 - 0.5*math.Erfc(d/(2*math.Sqrt2*sigma))
}
