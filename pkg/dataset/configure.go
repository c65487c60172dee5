package dataset

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/aescanero/autocal/pkg/ports"
)

// Configure labels the raw acquisition buffers of one execution. Channel k
// belongs to qubit Qubits[k mod len(Qubits)]; with StateChannels, k divided
// by the qubit count is the prepared state. External quantities become
// leading axes of length one so iterations can be concatenated.
func Configure(raw ports.RawDataset, layout Layout) (*Dataset, error) {
	if len(layout.Qubits) == 0 {
		return nil, fmt.Errorf("node %s: no measured qubits", layout.Node)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("node %s: empty raw dataset", layout.Node)
	}

	axes, err := layout.Axes()
	if err != nil {
		return nil, err
	}

	external := layout.ExternalQuantities()
	for _, q := range external {
		for _, e := range layout.External.Elements(q) {
			values, _ := layout.External.Values(q, e)
			if len(values) != 1 {
				return nil, fmt.Errorf("node %s: external quantity %s of %s has %d points, expected a reduced samplespace",
					layout.Node, q, e, len(values))
			}
		}
	}

	keys := make([]int, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	ds := New(layout.Node)
	n := len(layout.Qubits)
	for _, k := range keys {
		qubit := layout.Qubits[k%n]

		dims := make([]string, 0, len(external)+len(axes))
		shape := make([]int, 0, len(external)+len(axes))
		for _, q := range external {
			c, err := layout.CoordinateFor(q, qubit)
			if err != nil {
				return nil, err
			}
			if err := ds.AddCoordinate(c); err != nil {
				return nil, err
			}
			dims = append(dims, c.Name)
			shape = append(shape, 1)
		}

		axisShape := make([]int, len(axes))
		for i, a := range axes {
			c, err := layout.CoordinateFor(a.Quantity, qubit)
			if err != nil {
				return nil, err
			}
			if len(c.Values) != a.Length {
				return nil, fmt.Errorf("node %s: %s has %d values for %s, dimension is %d",
					layout.Node, a.Quantity, len(c.Values), c.Attrs.Element, a.Length)
			}
			if err := ds.AddCoordinate(c); err != nil {
				return nil, err
			}
			dims = append(dims, c.Name)
			shape = append(shape, a.Length)
			axisShape[i] = a.Length
		}

		data, err := arrange(raw[k], layout, axisShape)
		if err != nil {
			return nil, fmt.Errorf("node %s channel %d: %w", layout.Node, k, err)
		}

		v := Variable{
			Name:  "y" + qubit,
			Dims:  dims,
			Shape: shape,
			Data:  data,
			Attrs: VariableAttrs{Qubit: qubit, LongName: "y" + qubit, Units: DefaultUnits},
		}
		if layout.StateChannels > 1 {
			state := k / n
			v.Name += strconv.Itoa(state)
			v.Attrs.LongName = v.Name
			v.Attrs.QubitState = &state
		}
		if err := ds.AddVariable(v); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// arrange puts one channel buffer into row-major order over axisShape.
func arrange(values []complex128, layout Layout, axisShape []int) ([]complex128, error) {
	if len(values) != product(axisShape) {
		return nil, fmt.Errorf("buffer has %d points, dimensions %v need %d", len(values), axisShape, product(axisShape))
	}
	if layout.Reshuffle != nil {
		return ReshuffleLoops(values, axisShape[0], axisShape[2], axisShape[1])
	}
	if layout.Order == InnerFirst {
		return ToRowMajor(values, axisShape)
	}
	return append([]complex128(nil), values...), nil
}
