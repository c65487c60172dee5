package samplespace

import "fmt"

// IsBatched reports whether any quantity is batched.
func (s *Samplespace) IsBatched() bool {
	_, ok := s.BatchedQuantity()
	return ok
}

// BatchedQuantity returns the first batched quantity.
func (s *Samplespace) BatchedQuantity() (string, bool) {
	if s == nil {
		return "", false
	}
	for _, w := range s.sweeps {
		if w.batched() {
			return w.quantity, true
		}
	}
	return "", false
}

// NumberOfBatches returns the batch count shared by every batched quantity
// and element. A samplespace without batches has one batch.
func (s *Samplespace) NumberOfBatches() (int, error) {
	n := -1
	for _, w := range s.sweeps {
		if !w.batched() {
			continue
		}
		for _, e := range w.elements {
			count := len(w.batches[e])
			if n == -1 {
				n = count
				continue
			}
			if count != n {
				return 0, fmt.Errorf("inconsistent batch count for %s of %s: %d != %d", w.quantity, e, count, n)
			}
		}
	}
	if n == -1 {
		return 1, nil
	}
	return n, nil
}

// ReduceBatch returns a copy in which every batched quantity is replaced by
// the values of one batch.
func (s *Samplespace) ReduceBatch(batch int) (*Samplespace, error) {
	n, err := s.NumberOfBatches()
	if err != nil {
		return nil, err
	}
	if batch < 0 || batch >= n {
		return nil, fmt.Errorf("batch %d out of range (%d batches)", batch, n)
	}
	out := New()
	for _, w := range s.sweeps {
		for _, e := range w.elements {
			if w.batched() {
				out.Set(w.quantity, e, w.batches[e][batch])
				continue
			}
			out.Set(w.quantity, e, w.values[e])
		}
	}
	return out, nil
}
