package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aescanero/autocal/pkg/samplespace"
)

// ErrAmbiguousElement is returned when a quantity cannot be tied to exactly
// one qubit or coupler of a measured qubit.
var ErrAmbiguousElement = errors.New("cannot map quantity to a single element")

// LoopQuantity names the axis of repeated loops.
const LoopQuantity = "loops"

// DefaultUnits is used for every coordinate and variable.
const DefaultUnits = "NA"

// FlattenOrder is how the hardware flattens the swept dimensions of one
// channel into its acquisition buffer.
type FlattenOrder int

const (
	// InnerFirst: the first declared quantity varies fastest.
	InnerFirst FlattenOrder = iota
	// OuterFirst: row-major, the last declared axis varies fastest.
	OuterFirst
)

func (o FlattenOrder) String() string {
	switch o {
	case InnerFirst:
		return "inner_first"
	case OuterFirst:
		return "outer_first"
	default:
		return fmt.Sprintf("flatten_order(%d)", int(o))
	}
}

// ReshuffleAxes names the amplitude and state quantities of a loop
// reshuffled measurement.
type ReshuffleAxes struct {
	Amplitudes string
	States     string
}

// Axis is one dimension of a configured variable.
type Axis struct {
	Quantity string
	Length   int
}

// Layout describes how the acquisition buffers of a node are organised.
type Layout struct {
	Node     string
	Qubits   []string
	Schedule *samplespace.Samplespace
	// External holds the reduced external samplespace of this iteration.
	External *samplespace.Samplespace
	Loops    int
	Order    FlattenOrder
	// Reshuffle is set for loop measurements acquired (amplitude, state)
	// major and repeated per loop.
	Reshuffle *ReshuffleAxes
	// StateChannels is the number of channels per qubit, one per prepared
	// state. Above one, variables are named y<qubit><state>.
	StateChannels int
}

// Dimensions returns the schedule dimensions, with the loop count appended.
func (l Layout) Dimensions() ([]int, error) {
	dims, err := l.Schedule.Dimensions()
	if err != nil {
		return nil, err
	}
	if l.Loops > 0 {
		dims = append(dims, l.Loops)
	}
	return dims, nil
}

// Axes returns the axes of a configured variable, outermost first,
// excluding the external axes.
func (l Layout) Axes() ([]Axis, error) {
	if l.Schedule.Len() == 0 {
		return nil, fmt.Errorf("node %s has an empty schedule samplespace", l.Node)
	}
	dims, err := l.Schedule.Dimensions()
	if err != nil {
		return nil, err
	}

	if l.Reshuffle != nil {
		return l.reshuffledAxes(dims)
	}

	quantities := l.Schedule.Quantities()
	axes := make([]Axis, 0, len(dims)+1)
	for i, q := range quantities {
		axes = append(axes, Axis{Quantity: q, Length: dims[i]})
	}
	if l.Loops > 0 {
		axes = append(axes, Axis{Quantity: LoopQuantity, Length: l.Loops})
	}
	return axes, nil
}

func (l Layout) reshuffledAxes(dims []int) ([]Axis, error) {
	if l.Order != OuterFirst {
		return nil, fmt.Errorf("node %s: loop reshuffle produces %s data, layout declares %s", l.Node, OuterFirst, l.Order)
	}
	if l.Loops <= 0 {
		return nil, fmt.Errorf("node %s: loop reshuffle requires loop repetitions", l.Node)
	}
	quantities := l.Schedule.Quantities()
	if len(quantities) != 2 || !l.Schedule.Has(l.Reshuffle.Amplitudes) || !l.Schedule.Has(l.Reshuffle.States) {
		return nil, fmt.Errorf("node %s: loop reshuffle needs exactly the %s and %s quantities, got %v",
			l.Node, l.Reshuffle.Amplitudes, l.Reshuffle.States, quantities)
	}
	nAmplitudes := dims[0]
	if quantities[1] == l.Reshuffle.Amplitudes {
		nAmplitudes = dims[1]
	}
	states, err := l.stateValues()
	if err != nil {
		return nil, err
	}
	return []Axis{
		{Quantity: l.Reshuffle.Amplitudes, Length: nAmplitudes},
		{Quantity: LoopQuantity, Length: l.Loops},
		{Quantity: l.Reshuffle.States, Length: len(states)},
	}, nil
}

// stateValues returns the distinct prepared states in order of appearance.
func (l Layout) stateValues() ([]float64, error) {
	elements := l.Schedule.Elements(l.Reshuffle.States)
	if len(elements) == 0 {
		return nil, fmt.Errorf("node %s: no elements for %s", l.Node, l.Reshuffle.States)
	}
	values, _ := l.Schedule.Values(l.Reshuffle.States, elements[0])
	return unique(values), nil
}

// AcquisitionAxes returns the axes in the order the hardware acquires them,
// outermost first: a row-major walk over them yields the raw buffer.
func (l Layout) AcquisitionAxes() ([]Axis, error) {
	axes, err := l.Axes()
	if err != nil {
		return nil, err
	}
	if l.Reshuffle != nil {
		return []Axis{axes[1], axes[0], axes[2]}, nil
	}
	if l.Order == InnerFirst {
		reversed := make([]Axis, len(axes))
		for i, a := range axes {
			reversed[len(axes)-1-i] = a
		}
		return reversed, nil
	}
	return axes, nil
}

// ExternalQuantities returns the quantities of the external samplespace.
func (l Layout) ExternalQuantities() []string {
	return l.External.Quantities()
}

// CoordinateFor returns the coordinate of quantity for a measured qubit.
// A quantity keyed by the qubit itself is qubit-scoped; otherwise exactly
// one coupler containing the qubit must carry it.
func (l Layout) CoordinateFor(quantity, qubit string) (Coordinate, error) {
	if quantity == LoopQuantity {
		values := make([]float64, l.Loops)
		for i := range values {
			values[i] = float64(i)
		}
		return newCoordinate(quantity, qubit, ElementQubit, values), nil
	}

	ss := l.Schedule
	if !ss.Has(quantity) {
		ss = l.External
	}
	if !ss.Has(quantity) {
		return Coordinate{}, fmt.Errorf("%w: %s", samplespace.ErrUnknownQuantity, quantity)
	}

	element, kind, err := resolveElement(ss.Elements(quantity), quantity, qubit)
	if err != nil {
		return Coordinate{}, err
	}
	values, _ := ss.Values(quantity, element)
	if l.Reshuffle != nil && quantity == l.Reshuffle.States {
		values = unique(values)
	}
	return newCoordinate(quantity, element, kind, values), nil
}

func resolveElement(elements []string, quantity, qubit string) (string, ElementType, error) {
	var couplers []string
	for _, e := range elements {
		if e == qubit {
			return e, ElementQubit, nil
		}
		if strings.Contains(e, "_") {
			for _, part := range strings.Split(e, "_") {
				if part == qubit {
					couplers = append(couplers, e)
					break
				}
			}
		}
	}
	if len(couplers) == 1 {
		return couplers[0], ElementCoupler, nil
	}
	return "", "", fmt.Errorf("%w: %s for qubit %s among %v", ErrAmbiguousElement, quantity, qubit, elements)
}

func newCoordinate(quantity, element string, kind ElementType, values []float64) Coordinate {
	return Coordinate{
		Name:   quantity + element,
		Values: append([]float64(nil), values...),
		Attrs: CoordinateAttrs{
			Quantity:    quantity,
			ElementType: kind,
			Element:     element,
			LongName:    quantity,
			Units:       DefaultUnits,
		},
	}
}

func unique(values []float64) []float64 {
	seen := make(map[float64]bool, len(values))
	var out []float64
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
