// Package analysis implements the GBCS survival analysis pipeline:
// residual diagnostics, model fitting and selection, assumption and
// influence checks, and the parametric Weibull comparison.
package analysis

import (
	"fmt"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/gbcs"
	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// Term is one covariate term of a model specification: a base
// covariate, or the product of two base covariates.  Specifications
// are built from Term values, never from formula strings.
type Term struct {

	// X is the base covariate name.
	X string

	// By, if non-empty, makes the term the product X*By.
	By string
}

// Main returns a main-effect term for the named covariate.
func Main(name string) Term {
	return Term{X: name}
}

// Interaction returns a two-way interaction term.
func Interaction(a, b string) Term {
	return Term{X: a, By: b}
}

// IsInteraction reports whether the term is a two-way product.
func (t Term) IsInteraction() bool {
	return t.By != ""
}

// Name returns the column name of the term.
func (t Term) Name() string {
	if t.By == "" {
		return t.X
	}
	return t.X + ":" + t.By
}

// involves reports whether the term references the named base covariate.
func (t Term) involves(name string) bool {
	return t.X == name || t.By == name
}

// ModelSpec is an explicit model specification: the outcome columns and
// an ordered list of covariate terms.
type ModelSpec struct {
	Time   string
	Status string
	Terms  []Term
}

// Names returns the covariate column names of the specification, in order.
func (ms ModelSpec) Names() []string {
	var names []string
	for _, t := range ms.Terms {
		names = append(names, t.Name())
	}
	return names
}

// HasTerm reports whether the specification contains the given term.
func (ms ModelSpec) HasTerm(t Term) bool {
	for _, u := range ms.Terms {
		if u == t {
			return true
		}
	}
	return false
}

// WithTerm returns a copy of the specification with the term appended.
func (ms ModelSpec) WithTerm(t Term) ModelSpec {
	terms := make([]Term, len(ms.Terms), len(ms.Terms)+1)
	copy(terms, ms.Terms)
	ms.Terms = append(terms, t)
	return ms
}

// WithoutTerm returns a copy of the specification with the term removed.
func (ms ModelSpec) WithoutTerm(t Term) ModelSpec {
	var terms []Term
	for _, u := range ms.Terms {
		if u != t {
			terms = append(terms, u)
		}
	}
	ms.Terms = terms
	return ms
}

// redundantPairs maps each continuous covariate to the binary split
// derived from it.  A model may contain one of the pair, never both.
var redundantPairs = map[string]string{
	gbcs.Age:     gbcs.AgeMed,
	gbcs.Rectime: gbcs.RectimeMed,
}

// Validate checks the specification for duplicate terms and for
// redundant continuous/split pairs.
func (ms ModelSpec) Validate() error {

	if ms.Time == "" || ms.Status == "" {
		return fmt.Errorf("analysis: model specification must name time and status columns")
	}

	seen := make(map[Term]bool)
	base := make(map[string]bool)
	for _, t := range ms.Terms {
		if seen[t] {
			return fmt.Errorf("analysis: duplicate term '%s' in model specification", t.Name())
		}
		seen[t] = true
		base[t.X] = true
		if t.By != "" {
			base[t.By] = true
		}
	}

	for cont, split := range redundantPairs {
		if base[cont] && base[split] {
			return fmt.Errorf("analysis: model may not contain both '%s' and its split '%s'", cont, split)
		}
	}

	return nil
}

// Materialize prepares the dataset for fitting the specification,
// adding a product column for each interaction term that is not already
// present.  It returns the possibly extended dataset and the covariate
// column names in term order.
func Materialize(ds statmodel.Dataset, ms ModelSpec) (statmodel.Dataset, []string, error) {

	if err := ms.Validate(); err != nil {
		return statmodel.Dataset{}, nil, err
	}

	for _, t := range ms.Terms {
		if !t.IsInteraction() || ds.HasColumn(t.Name()) {
			continue
		}

		xa, err := ds.Column(t.X)
		if err != nil {
			return statmodel.Dataset{}, nil, err
		}
		xb, err := ds.Column(t.By)
		if err != nil {
			return statmodel.Dataset{}, nil, err
		}

		prod := make([]statmodel.Dtype, len(xa))
		for i := range xa {
			prod[i] = xa[i] * xb[i]
		}

		ds, err = ds.WithColumn(t.Name(), prod)
		if err != nil {
			return statmodel.Dataset{}, nil, err
		}
	}

	return ds, ms.Names(), nil
}
