package analysis

import (
	"errors"
	"fmt"
	"io"
)

// errNotRun is returned by Report before a successful Run.
var errNotRun = errors.New("analysis has not run")

type runFunc func() (Result, []string, error)

// analysis runs one computation and keeps its result for reporting.
type analysis struct {
	name    string
	element string
	fields  []string
	compute runFunc

	result *Result
	notes  []string
}

func newAnalysis(name, element string, fields []string, compute runFunc) *analysis {
	return &analysis{name: name, element: element, fields: fields, compute: compute}
}

// Run implements Analysis.
func (a *analysis) Run() (Result, error) {
	r, notes, err := a.compute()
	if err != nil {
		return Result{}, fmt.Errorf("%s analysis of %s: %w", a.name, a.element, err)
	}
	a.result = &r
	a.notes = notes
	return r, nil
}

// Report implements Analysis.
func (a *analysis) Report(w io.Writer) error {
	if a.result == nil {
		return errNotRun
	}
	if _, err := fmt.Fprintf(w, "%s analysis of %s\n", a.name, a.element); err != nil {
		return err
	}
	for i, f := range a.fields {
		if _, err := fmt.Fprintf(w, "  %-40s %s\n", f, a.result.Values[i]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "  %-40s %.3f\n", "confidence", a.result.Confidence); err != nil {
		return err
	}
	for _, n := range a.notes {
		if _, err := fmt.Fprintf(w, "  %s\n", n); err != nil {
			return err
		}
	}
	return nil
}
