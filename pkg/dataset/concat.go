package dataset

import "fmt"

// Concat joins b to a along the coordinates of quantity. Every variable of
// a must exist in b with the same dims. A nil a yields a copy of b.
func Concat(a, b *Dataset, quantity string) (*Dataset, error) {
	if b == nil {
		return nil, fmt.Errorf("nothing to concatenate")
	}
	if a == nil {
		return b.clone(), nil
	}

	out := New(a.Node)
	for k, v := range a.Attrs {
		out.Attrs[k] = v
	}

	for _, c := range a.coords {
		if c.Attrs.Quantity != quantity {
			out.coords = append(out.coords, c)
			continue
		}
		other, ok := b.Coordinate(c.Name)
		if !ok {
			return nil, fmt.Errorf("coordinate %s missing from concatenated dataset", c.Name)
		}
		joined := c
		joined.Values = append(append([]float64(nil), c.Values...), other.Values...)
		out.coords = append(out.coords, joined)
	}

	for _, va := range a.vars {
		vb, ok := b.Variable(va.Name)
		if !ok {
			return nil, fmt.Errorf("variable %s missing from concatenated dataset", va.Name)
		}
		joined, err := concatVariable(a, &va, vb, quantity)
		if err != nil {
			return nil, err
		}
		out.vars = append(out.vars, joined)
	}
	return out, nil
}

func concatVariable(ds *Dataset, a, b *Variable, quantity string) (Variable, error) {
	if len(a.Dims) != len(b.Dims) {
		return Variable{}, fmt.Errorf("variable %s: dims differ", a.Name)
	}
	axis := -1
	for i, dim := range a.Dims {
		if b.Dims[i] != dim {
			return Variable{}, fmt.Errorf("variable %s: dim %s != %s", a.Name, dim, b.Dims[i])
		}
		if c, ok := ds.Coordinate(dim); ok && c.Attrs.Quantity == quantity {
			axis = i
		}
	}
	if axis < 0 {
		return Variable{}, fmt.Errorf("variable %s has no %s axis", a.Name, quantity)
	}
	for i := range a.Shape {
		if i != axis && a.Shape[i] != b.Shape[i] {
			return Variable{}, fmt.Errorf("variable %s: shape %v incompatible with %v", a.Name, a.Shape, b.Shape)
		}
	}

	outer := product(a.Shape[:axis])
	blockA := product(a.Shape[axis:])
	blockB := product(b.Shape[axis:])

	joined := a.clone()
	joined.Shape[axis] = a.Shape[axis] + b.Shape[axis]
	joined.Data = make([]complex128, 0, len(a.Data)+len(b.Data))
	for o := 0; o < outer; o++ {
		joined.Data = append(joined.Data, a.Data[o*blockA:(o+1)*blockA]...)
		joined.Data = append(joined.Data, b.Data[o*blockB:(o+1)*blockB]...)
	}
	return joined, nil
}

func (d *Dataset) clone() *Dataset {
	out := New(d.Node)
	for k, v := range d.Attrs {
		out.Attrs[k] = v
	}
	for _, c := range d.coords {
		c.Values = append([]float64(nil), c.Values...)
		out.coords = append(out.coords, c)
	}
	for i := range d.vars {
		out.vars = append(out.vars, d.vars[i].clone())
	}
	return out
}
