package analysis

import (
	"fmt"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
)

// Dip locates the minimum of the signal over the given quantities, averaged
// over every other axis. Values are the coordinates at the minimum, one per
// quantity.
func Dip(quantities ...string) Factory {
	return extremum("dip", false, quantities)
}

// Peak is Dip for a maximum.
func Peak(quantities ...string) Factory {
	return extremum("peak", true, quantities)
}

func extremum(name string, max bool, quantities []string) Factory {
	return func(ds *dataset.Dataset, element string, fields []string) (Analysis, error) {
		if len(quantities) == 0 {
			return nil, fmt.Errorf("%s analysis needs at least one quantity", name)
		}
		if err := checkFields(name, fields, len(quantities)); err != nil {
			return nil, err
		}
		return newAnalysis(name, element, fields, func() (Result, []string, error) {
			s, err := newSignal(ds)
			if err != nil {
				return Result{}, nil, err
			}
			axes := make([]int, len(quantities))
			coords := make([]dataset.Coordinate, len(quantities))
			for i, q := range quantities {
				if axes[i], coords[i], err = s.axis(q); err != nil {
					return Result{}, nil, err
				}
			}
			grid, shape := s.profile(axes...)
			best := argExtremum(grid, max)
			idx := dataset.Unravel(best, shape)

			r := Result{Values: make([]domain.Value, len(quantities)), Confidence: contrast(grid)}
			for i, c := range coords {
				r.Values[i] = domain.Some(c.Values[idx[i]])
			}
			return r, []string{fmt.Sprintf("extremum %.6g at index %v", grid[best], idx)}, nil
		}), nil
	}
}
