package analysis

import (
	"errors"
	"fmt"
	"io"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
)

// ErrRejected is returned by a Policy that refuses a result.
var ErrRejected = errors.New("analysis result rejected")

// Result holds one value per target field, in field order.
type Result struct {
	Values     []domain.Value `json:"values"`
	Confidence float64        `json:"confidence"`
}

// Analysis processes the data of one element.
type Analysis interface {
	Run() (Result, error)
	// Report renders a human readable diagnostic of the last run.
	Report(w io.Writer) error
}

// Factory creates the analysis of one element from its subset of the
// dataset. fields are the target fields of the node.
type Factory func(ds *dataset.Dataset, element string, fields []string) (Analysis, error)

// Policy decides whether a result is written back.
type Policy interface {
	Accept(node, element string, r Result) error
}

// MinConfidence rejects results below a confidence threshold. MinConfidence(0)
// accepts every result; unset values are written back as unset.
type MinConfidence float64

// Accept implements Policy.
func (m MinConfidence) Accept(node, element string, r Result) error {
	if r.Confidence < float64(m) {
		return fmt.Errorf("%w: %s on %s has confidence %.3f below %.3f", ErrRejected, node, element, r.Confidence, float64(m))
	}
	return nil
}

// AcceptAll accepts every result.
func AcceptAll() Policy {
	return MinConfidence(0)
}

// RequireComplete rejects results with an unset value before consulting next.
func RequireComplete(next Policy) Policy {
	return requireComplete{next: next}
}

type requireComplete struct {
	next Policy
}

func (p requireComplete) Accept(node, element string, r Result) error {
	for i, v := range r.Values {
		if !v.IsSet() {
			return fmt.Errorf("%w: %s on %s has no value for field %d", ErrRejected, node, element, i)
		}
	}
	if p.next == nil {
		return nil
	}
	return p.next.Accept(node, element, r)
}
