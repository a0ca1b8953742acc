package analysis

import (
	"fmt"
	"log"

	"github.com/exascience/pargo/parallel"

	"github.com/niecestroa/survival-analysis-german-breast-cancer/statmodel"
)

// InteractionScreen holds the result of testing one candidate
// interaction term against a shared base model.
type InteractionScreen struct {
	Term Term
	Fit  *ModelFit
	LR   *statmodel.LRTestResult
	Err  error
}

// ScreenInteractions fits, for each candidate interaction, the base
// model extended by that single term, and compares it to the base fit
// with a likelihood ratio test.  Candidates are fit in parallel; each
// writes only its own result slot.
func ScreenInteractions(ds statmodel.Dataset, base ModelSpec, baseFit *ModelFit, candidates []Term, logger *log.Logger) ([]InteractionScreen, error) {

	if !baseFit.OK() {
		return nil, fmt.Errorf("analysis: interaction screen requires a converged base model: %w", baseFit.Err)
	}

	out := make([]InteractionScreen, len(candidates))

	parallel.Range(0, len(candidates), 0, func(low, high int) {
		for i := low; i < high; i++ {
			t := candidates[i]
			out[i] = InteractionScreen{Term: t}

			if !t.IsInteraction() {
				out[i].Err = fmt.Errorf("analysis: screen candidate '%s' is not an interaction", t.Name())
				continue
			}

			spec := base
			if !spec.HasTerm(Main(t.X)) {
				spec = spec.WithTerm(Main(t.X))
			}
			if !spec.HasTerm(Main(t.By)) {
				spec = spec.WithTerm(Main(t.By))
			}
			spec = spec.WithTerm(t)

			fit := FitCox(ds, spec, logger)
			out[i].Fit = fit
			if !fit.OK() {
				out[i].Err = fit.Err
				continue
			}

			lr, err := statmodel.LRTest(baseFit.Result, fit.Result)
			if err != nil {
				out[i].Err = err
				continue
			}
			out[i].LR = lr
		}
	})

	return out, nil
}

// ReexamineResult holds the result of individually re-adding one
// previously excluded covariate to a working model.
type ReexamineResult struct {
	Covariate string
	Fit       *ModelFit
	Coeff     float64
	LR        *statmodel.LRTestResult
	Err       error
}

// Reexamine refits the base model with each excluded covariate added
// back one at a time, reporting the covariate's coefficient and a
// likelihood ratio test against the base fit.  Covariates are examined
// in parallel.
func Reexamine(ds statmodel.Dataset, base ModelSpec, baseFit *ModelFit, excluded []string, logger *log.Logger) ([]ReexamineResult, error) {

	if !baseFit.OK() {
		return nil, fmt.Errorf("analysis: re-examination requires a converged base model: %w", baseFit.Err)
	}

	out := make([]ReexamineResult, len(excluded))

	parallel.Range(0, len(excluded), 0, func(low, high int) {
		for i := low; i < high; i++ {
			name := excluded[i]
			out[i] = ReexamineResult{Covariate: name}

			if base.HasTerm(Main(name)) {
				out[i].Err = fmt.Errorf("analysis: covariate '%s' is already in the base model", name)
				continue
			}

			fit := FitCox(ds, base.WithTerm(Main(name)), logger)
			out[i].Fit = fit
			if !fit.OK() {
				out[i].Err = fit.Err
				continue
			}

			coef, err := fit.Result.ParamByName(name)
			if err != nil {
				out[i].Err = err
				continue
			}
			out[i].Coeff = coef

			lr, err := statmodel.LRTest(baseFit.Result, fit.Result)
			if err != nil {
				out[i].Err = err
				continue
			}
			out[i].LR = lr
		}
	})

	return out, nil
}
