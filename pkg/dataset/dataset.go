package dataset

import (
	"fmt"
	"math/cmplx"
)

// ElementType tells whether a coordinate belongs to a qubit or a coupler.
type ElementType string

const (
	ElementQubit   ElementType = "qubit"
	ElementCoupler ElementType = "coupler"
)

// CoordinateAttrs describes a coordinate.
type CoordinateAttrs struct {
	Quantity    string      `json:"quantity"`
	ElementType ElementType `json:"element_type"`
	Element     string      `json:"element"`
	LongName    string      `json:"long_name"`
	Units       string      `json:"units"`
}

// Coordinate is a labelled axis, named quantity+element.
type Coordinate struct {
	Name   string          `json:"name"`
	Values []float64       `json:"values"`
	Attrs  CoordinateAttrs `json:"attrs"`
}

// VariableAttrs describes a data variable.
type VariableAttrs struct {
	Qubit      string `json:"qubit"`
	LongName   string `json:"long_name"`
	Units      string `json:"units"`
	QubitState *int   `json:"qubit_state,omitempty"`
}

// Variable is an N-dimensional complex array stored row-major.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	Data  []complex128
	Attrs VariableAttrs
}

// Size returns the number of points.
func (v *Variable) Size() int {
	return product(v.Shape)
}

// At returns the value at a multi-index.
func (v *Variable) At(idx ...int) (complex128, error) {
	if len(idx) != len(v.Shape) {
		return 0, fmt.Errorf("variable %s has %d dims, got %d indices", v.Name, len(v.Shape), len(idx))
	}
	flat := 0
	for i, n := range v.Shape {
		if idx[i] < 0 || idx[i] >= n {
			return 0, fmt.Errorf("index %d out of range for dim %s", idx[i], v.Dims[i])
		}
		flat = flat*n + idx[i]
	}
	return v.Data[flat], nil
}

// Magnitudes returns |z| for every point.
func (v *Variable) Magnitudes() []float64 {
	out := make([]float64, len(v.Data))
	for i, z := range v.Data {
		out[i] = cmplx.Abs(z)
	}
	return out
}

// AxisOf returns the index of the dim named name.
func (v *Variable) AxisOf(name string) (int, bool) {
	for i, d := range v.Dims {
		if d == name {
			return i, true
		}
	}
	return 0, false
}

func (v *Variable) clone() Variable {
	c := *v
	c.Dims = append([]string(nil), v.Dims...)
	c.Shape = append([]int(nil), v.Shape...)
	c.Data = append([]complex128(nil), v.Data...)
	if v.Attrs.QubitState != nil {
		s := *v.Attrs.QubitState
		c.Attrs.QubitState = &s
	}
	return c
}

// Dataset is a set of coordinates and data variables.
type Dataset struct {
	Node  string
	Attrs map[string]string

	coords []Coordinate
	vars   []Variable
}

// New returns an empty dataset for node.
func New(node string) *Dataset {
	return &Dataset{Node: node, Attrs: make(map[string]string)}
}

// Coordinates returns the coordinates in insertion order.
func (d *Dataset) Coordinates() []Coordinate {
	return append([]Coordinate(nil), d.coords...)
}

// Coordinate returns a coordinate by name.
func (d *Dataset) Coordinate(name string) (Coordinate, bool) {
	for _, c := range d.coords {
		if c.Name == name {
			return c, true
		}
	}
	return Coordinate{}, false
}

// Variables returns the data variables in insertion order.
func (d *Dataset) Variables() []Variable {
	return append([]Variable(nil), d.vars...)
}

// Variable returns a data variable by name.
func (d *Dataset) Variable(name string) (*Variable, bool) {
	for i := range d.vars {
		if d.vars[i].Name == name {
			return &d.vars[i], true
		}
	}
	return nil, false
}

// AddCoordinate adds c. Re-adding an identical coordinate is a no-op.
func (d *Dataset) AddCoordinate(c Coordinate) error {
	if existing, ok := d.Coordinate(c.Name); ok {
		if !equalFloats(existing.Values, c.Values) {
			return fmt.Errorf("coordinate %s redefined with different values", c.Name)
		}
		return nil
	}
	c.Values = append([]float64(nil), c.Values...)
	d.coords = append(d.coords, c)
	return nil
}

// AddVariable adds v after checking its dims against the coordinates.
func (d *Dataset) AddVariable(v Variable) error {
	if _, ok := d.Variable(v.Name); ok {
		return fmt.Errorf("duplicate data variable %s", v.Name)
	}
	if len(v.Dims) != len(v.Shape) {
		return fmt.Errorf("variable %s: %d dims for %d axes", v.Name, len(v.Dims), len(v.Shape))
	}
	for i, dim := range v.Dims {
		c, ok := d.Coordinate(dim)
		if !ok {
			return fmt.Errorf("variable %s: unknown coordinate %s", v.Name, dim)
		}
		if len(c.Values) != v.Shape[i] {
			return fmt.Errorf("variable %s: coordinate %s has %d values, axis has %d", v.Name, dim, len(c.Values), v.Shape[i])
		}
	}
	if len(v.Data) != product(v.Shape) {
		return fmt.Errorf("variable %s: %d points for shape %v", v.Name, len(v.Data), v.Shape)
	}
	d.vars = append(d.vars, v.clone())
	return nil
}

// Qubits returns the distinct qubit attributes of the variables in order.
func (d *Dataset) Qubits() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range d.vars {
		if !seen[v.Attrs.Qubit] {
			seen[v.Attrs.Qubit] = true
			out = append(out, v.Attrs.Qubit)
		}
	}
	return out
}

// Subset returns the variables of the given qubits with their coordinates.
func (d *Dataset) Subset(qubits ...string) (*Dataset, error) {
	keep := make(map[string]bool, len(qubits))
	for _, q := range qubits {
		keep[q] = true
	}
	out := New(d.Node)
	for k, v := range d.Attrs {
		out.Attrs[k] = v
	}
	for _, v := range d.vars {
		if !keep[v.Attrs.Qubit] {
			continue
		}
		for _, dim := range v.Dims {
			c, _ := d.Coordinate(dim)
			if err := out.AddCoordinate(c); err != nil {
				return nil, err
			}
		}
		if err := out.AddVariable(v); err != nil {
			return nil, err
		}
	}
	if len(out.vars) == 0 {
		return nil, fmt.Errorf("no data variables for %v", qubits)
	}
	return out, nil
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
