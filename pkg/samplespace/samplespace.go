package samplespace

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownQuantity is returned when a quantity is not part of a samplespace.
var ErrUnknownQuantity = errors.New("quantity not in any samplespace")

type sweep struct {
	quantity string
	elements []string
	values   map[string][]float64
	batches  map[string][][]float64
}

func (w *sweep) addElement(element string) {
	for _, e := range w.elements {
		if e == element {
			return
		}
	}
	w.elements = append(w.elements, element)
}

func (w *sweep) batched() bool {
	return len(w.batches) > 0
}

func (w *sweep) length(element string) int {
	if w.batched() {
		n := 0
		for _, b := range w.batches[element] {
			n += len(b)
		}
		return n
	}
	return len(w.values[element])
}

func (w *sweep) clone() *sweep {
	c := &sweep{
		quantity: w.quantity,
		elements: append([]string(nil), w.elements...),
		values:   make(map[string][]float64, len(w.values)),
	}
	for e, v := range w.values {
		c.values[e] = append([]float64(nil), v...)
	}
	if w.batched() {
		c.batches = make(map[string][][]float64, len(w.batches))
		for e, bs := range w.batches {
			cp := make([][]float64, len(bs))
			for i, b := range bs {
				cp[i] = append([]float64(nil), b...)
			}
			c.batches[e] = cp
		}
	}
	return c
}

// Samplespace is an ordered mapping quantity -> element -> values.
type Samplespace struct {
	sweeps []*sweep
	index  map[string]int
}

// New returns an empty samplespace.
func New() *Samplespace {
	return &Samplespace{index: make(map[string]int)}
}

// FromMap builds a samplespace with quantities and elements in lexical order.
func FromMap(m map[string]map[string][]float64) *Samplespace {
	s := New()
	for _, q := range sortedKeys(m) {
		for _, e := range sortedKeys(m[q]) {
			s.Set(q, e, m[q][e])
		}
	}
	return s
}

func (s *Samplespace) sweepFor(quantity string) *sweep {
	if i, ok := s.index[quantity]; ok {
		return s.sweeps[i]
	}
	w := &sweep{quantity: quantity, values: make(map[string][]float64)}
	s.index[quantity] = len(s.sweeps)
	s.sweeps = append(s.sweeps, w)
	return w
}

// Set stores the values of quantity for element. New quantities are appended.
func (s *Samplespace) Set(quantity, element string, values []float64) *Samplespace {
	w := s.sweepFor(quantity)
	w.addElement(element)
	w.values[element] = append([]float64(nil), values...)
	if w.batches != nil {
		delete(w.batches, element)
	}
	return s
}

// SetBatched stores the values of quantity for element as a list of batches.
func (s *Samplespace) SetBatched(quantity, element string, batches [][]float64) *Samplespace {
	w := s.sweepFor(quantity)
	w.addElement(element)
	if w.batches == nil {
		w.batches = make(map[string][][]float64)
	}
	cp := make([][]float64, len(batches))
	for i, b := range batches {
		cp[i] = append([]float64(nil), b...)
	}
	w.batches[element] = cp
	delete(w.values, element)
	return s
}

// Len returns the number of quantities.
func (s *Samplespace) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sweeps)
}

// Has reports whether quantity is present.
func (s *Samplespace) Has(quantity string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[quantity]
	return ok
}

// Quantities returns quantity names in insertion order.
func (s *Samplespace) Quantities() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.sweeps))
	for i, w := range s.sweeps {
		out[i] = w.quantity
	}
	return out
}

// Elements returns the elements of quantity in insertion order.
func (s *Samplespace) Elements(quantity string) []string {
	if !s.Has(quantity) {
		return nil
	}
	return append([]string(nil), s.sweeps[s.index[quantity]].elements...)
}

// Values returns the flat values of quantity for element. Batched
// quantities return their batches concatenated.
func (s *Samplespace) Values(quantity, element string) ([]float64, bool) {
	if !s.Has(quantity) {
		return nil, false
	}
	w := s.sweeps[s.index[quantity]]
	if bs, ok := w.batches[element]; ok {
		var flat []float64
		for _, b := range bs {
			flat = append(flat, b...)
		}
		return flat, true
	}
	v, ok := w.values[element]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

// Clone returns a deep copy.
func (s *Samplespace) Clone() *Samplespace {
	c := New()
	if s == nil {
		return c
	}
	for _, w := range s.sweeps {
		c.index[w.quantity] = len(c.sweeps)
		c.sweeps = append(c.sweeps, w.clone())
	}
	return c
}

// Merge returns the union of s and other. Quantities of other are appended
// after those of s; on conflicting elements other wins.
func (s *Samplespace) Merge(other *Samplespace) *Samplespace {
	out := s.Clone()
	if other == nil {
		return out
	}
	for _, w := range other.sweeps {
		for _, e := range w.elements {
			if bs, ok := w.batches[e]; ok {
				out.SetBatched(w.quantity, e, bs)
				continue
			}
			out.Set(w.quantity, e, w.values[e])
		}
	}
	return out
}

// Replace swaps the element values of an existing quantity. The quantity
// keeps its position.
func (s *Samplespace) Replace(quantity string, elements map[string][]float64) error {
	if !s.Has(quantity) {
		return fmt.Errorf("%s: %w", quantity, ErrUnknownQuantity)
	}
	w := &sweep{quantity: quantity, values: make(map[string][]float64, len(elements))}
	for _, e := range sortedKeys(elements) {
		w.addElement(e)
		w.values[e] = append([]float64(nil), elements[e]...)
	}
	s.sweeps[s.index[quantity]] = w
	return nil
}

// Dimensions returns, per quantity, the number of values of its first
// element. Batched quantities count all of their batches.
func (s *Samplespace) Dimensions() ([]int, error) {
	dims := make([]int, 0, s.Len())
	for _, w := range s.sweeps {
		if len(w.elements) == 0 {
			return nil, fmt.Errorf("quantity %s has no elements", w.quantity)
		}
		dims = append(dims, w.length(w.elements[0]))
	}
	return dims, nil
}

// Iterations returns the number of points of the first quantity, which is
// the number of iterations of an external sweep. An empty samplespace has
// zero iterations.
func (s *Samplespace) Iterations() (int, error) {
	if s.Len() == 0 {
		return 0, nil
	}
	dims, err := s.Dimensions()
	if err != nil {
		return 0, err
	}
	return dims[0], nil
}

// Reduce keeps only the i-th point of every quantity and element.
func (s *Samplespace) Reduce(i int) (*Samplespace, error) {
	out := New()
	for _, w := range s.sweeps {
		for _, e := range w.elements {
			values, _ := s.Values(w.quantity, e)
			if i < 0 || i >= len(values) {
				return nil, fmt.Errorf("iteration %d out of range for %s of %s (%d points)", i, w.quantity, e, len(values))
			}
			out.Set(w.quantity, e, []float64{values[i]})
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
